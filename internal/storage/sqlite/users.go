package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const userColumns = `id, firstname, lastname, email, password_hash, lifecycle, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Lifecycle, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) validateUser(ctx context.Context, u models.User, excludeID int64) error {
	verr := apperr.NewValidation()

	email := strings.TrimSpace(u.Email)
	switch {
	case email == "":
		verr.Add("email", "email must not be empty")
	case !emailPattern.MatchString(email):
		verr.Add("email", "email must look like example@example.com")
	default:
		var count int64
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE email = ? AND id != ?`, email, excludeID).Scan(&count)
		if err != nil {
			return fmt.Errorf("check email uniqueness: %w", err)
		}
		// Uniqueness holds across both lifecycle states.
		if count > 0 {
			verr.Add("email", fmt.Sprintf("email '%s' is already registered", email))
		}
	}

	if u.PasswordHash == "" {
		verr.Add("password", "password must be set")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// CreateUser inserts a new active user. The password hash must already be
// derived by the caller.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if err := s.validateUser(ctx, u, 0); err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(firstname, lastname, email, password_hash) VALUES(?, ?, ?, ?)`,
		strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), strings.TrimSpace(u.Email), u.PasswordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.UserByID(ctx, id, models.ScopeActive)
}

// UserByID fetches a user by primary key within the given lifecycle scope.
func (s *Store) UserByID(ctx context.Context, id int64, scope models.Scope) (models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = ? AND %s`, userColumns, scopeClause("lifecycle", scope))
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UserByEmail fetches a user by email regardless of lifecycle state, so
// deleted accounts can still authenticate for the restore flow.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = ?`, userColumns)
	u, err := scanUser(s.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns users in the given scope ordered by id.
func (s *Store) ListUsers(ctx context.Context, scope models.Scope) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY id`, userColumns, scopeClause("lifecycle", scope))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser persists name, email and password hash changes.
func (s *Store) UpdateUser(ctx context.Context, u models.User) (models.User, error) {
	if err := s.validateUser(ctx, u, u.ID); err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET firstname = ?, lastname = ?, email = ?, password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), strings.TrimSpace(u.Email), u.PasswordHash, u.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, apperr.ErrNotFound
	}
	return s.UserByID(ctx, u.ID, models.ScopeAny)
}

// SetUserLifecycle applies a soft-delete transition with a compare-and-swap
// on the lifecycle column.
func (s *Store) SetUserLifecycle(ctx context.Context, id int64, event models.LifecycleEvent) error {
	return s.applyLifecycle(ctx, "users", id, event)
}

// applyLifecycle runs the pure transition against the row's current state
// and persists it only if the state has not changed in between.
func (s *Store) applyLifecycle(ctx context.Context, table string, id int64, event models.LifecycleEvent) error {
	var current models.Lifecycle
	query := fmt.Sprintf(`SELECT lifecycle FROM %s WHERE id = ?`, table)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get lifecycle: %w", err)
	}

	next, err := models.Transition(current, event)
	if err != nil {
		verr := apperr.NewValidation()
		verr.Add("lifecycle", err.Error())
		return verr
	}

	update := fmt.Sprintf(`UPDATE %s SET lifecycle = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND lifecycle = ?`, table)
	res, err := s.db.ExecContext(ctx, update, next, id, current)
	if err != nil {
		return fmt.Errorf("set lifecycle: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrLifecycleConflict
	}
	return nil
}
