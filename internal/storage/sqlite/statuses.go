package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
)

const statusColumns = `id, name, is_built_in, lifecycle, created_at, updated_at`

func scanStatus(row interface{ Scan(...any) error }) (models.TaskStatus, error) {
	var st models.TaskStatus
	err := row.Scan(&st.ID, &st.Name, &st.IsBuiltIn, &st.Lifecycle, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

func (s *Store) validateStatusName(ctx context.Context, name string, excludeID int64) error {
	verr := apperr.NewValidation()
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "status name must not be empty")
		return verr
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_statuses WHERE name = ? AND id != ?`, strings.TrimSpace(name), excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("check status name uniqueness: %w", err)
	}
	// Uniqueness holds across both lifecycle states; creating a status with
	// the name of a soft-deleted one must go through restore instead.
	if count > 0 {
		verr.Add("name", fmt.Sprintf("status '%s' already exists", strings.TrimSpace(name)))
		return verr
	}
	return nil
}

// CreateStatus inserts a new user-defined status.
func (s *Store) CreateStatus(ctx context.Context, name string) (models.TaskStatus, error) {
	if err := s.validateStatusName(ctx, name, 0); err != nil {
		return models.TaskStatus{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task_statuses(name) VALUES(?)`, strings.TrimSpace(name))
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("insert status: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("status id: %w", err)
	}
	return s.StatusByID(ctx, id, models.ScopeActive)
}

// StatusByID fetches a status by primary key within the given scope.
func (s *Store) StatusByID(ctx context.Context, id int64, scope models.Scope) (models.TaskStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_statuses WHERE id = ? AND %s`, statusColumns, scopeClause("lifecycle", scope))
	st, err := scanStatus(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskStatus{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("get status: %w", err)
	}
	return st, nil
}

// StatusByName fetches a status by its unique name within the given scope.
func (s *Store) StatusByName(ctx context.Context, name string, scope models.Scope) (models.TaskStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_statuses WHERE name = ? AND %s`, statusColumns, scopeClause("lifecycle", scope))
	st, err := scanStatus(s.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskStatus{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("get status by name: %w", err)
	}
	return st, nil
}

// DefaultStatus returns the built-in status assigned to new tasks.
func (s *Store) DefaultStatus(ctx context.Context) (models.TaskStatus, error) {
	return s.StatusByName(ctx, models.DefaultStatusName, models.ScopeActive)
}

// ListStatuses returns statuses in the given scope ordered by id.
func (s *Store) ListStatuses(ctx context.Context, scope models.Scope) ([]models.TaskStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_statuses WHERE %s ORDER BY id`, statusColumns, scopeClause("lifecycle", scope))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.TaskStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// RenameStatus updates the status name.
func (s *Store) RenameStatus(ctx context.Context, id int64, name string) (models.TaskStatus, error) {
	if err := s.validateStatusName(ctx, name, id); err != nil {
		return models.TaskStatus{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE task_statuses SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(name), id)
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("rename status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.TaskStatus{}, err
	}
	if affected == 0 {
		return models.TaskStatus{}, apperr.ErrNotFound
	}
	return s.StatusByID(ctx, id, models.ScopeAny)
}

// DeleteStatus soft-deletes a status. The delete is refused while any
// active task still references the status.
func (s *Store) DeleteStatus(ctx context.Context, id int64) error {
	count, err := s.CountActiveTasksWithStatus(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrDependencyConflict
	}
	return s.applyLifecycle(ctx, "task_statuses", id, models.EventDelete)
}

// RestoreStatus reactivates a soft-deleted status.
func (s *Store) RestoreStatus(ctx context.Context, id int64) error {
	return s.applyLifecycle(ctx, "task_statuses", id, models.EventRestore)
}

// CountActiveTasksWithStatus counts active tasks referencing the status.
func (s *Store) CountActiveTasksWithStatus(ctx context.Context, statusID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status_id = ? AND lifecycle = 'active'`, statusID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks for status: %w", err)
	}
	return count, nil
}
