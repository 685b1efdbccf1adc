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

// TaskFilter narrows ListTasks. Zero values mean "no filter". Filters by a
// tag name that does not exist yield an empty result, not an error.
type TaskFilter struct {
	TagName     string
	StatusID    int64
	PerformerID int64
	CreatorID   int64
}

const taskColumns = `t.id, t.name, t.description, t.status_id, t.creator_id, t.assigned_to_id, t.lifecycle, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var assignedTo sql.NullInt64
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.StatusID, &t.CreatorID, &assignedTo, &t.Lifecycle, &t.CreatedAt, &t.UpdatedAt)
	if assignedTo.Valid {
		t.AssignedToID = &assignedTo.Int64
	}
	return t, err
}

func (s *Store) validateTask(ctx context.Context, t models.Task) error {
	verr := apperr.NewValidation()

	if strings.TrimSpace(t.Name) == "" {
		verr.Add("name", "task name must not be empty")
	}

	if t.StatusID == 0 {
		verr.Add("statusId", "task status must be set")
	} else if _, err := s.StatusByID(ctx, t.StatusID, models.ScopeAny); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			verr.Add("statusId", "task status does not exist")
		} else {
			return err
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// CreateTask inserts a new active task.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if err := s.validateTask(ctx, t); err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(name, description, status_id, creator_id, assigned_to_id) VALUES(?, ?, ?, ?, ?)`,
		strings.TrimSpace(t.Name), strings.TrimSpace(t.Description), t.StatusID, t.CreatorID, nullableID(t.AssignedToID))
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.TaskByID(ctx, id, models.ScopeActive)
}

// TaskByID fetches a task with its status, creator, assignee and tags
// loaded, within the given lifecycle scope.
func (s *Store) TaskByID(ctx context.Context, id int64, scope models.Scope) (models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks t WHERE t.id = ? AND %s`, taskColumns, scopeClause("t.lifecycle", scope))
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	if err := s.loadTaskRelations(ctx, &t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListTasks returns tasks in the given scope, optionally filtered, with
// relations loaded.
func (s *Store) ListTasks(ctx context.Context, scope models.Scope, filter TaskFilter) ([]models.Task, error) {
	conditions := []string{scopeClause("t.lifecycle", scope)}
	var args []any

	if filter.TagName != "" {
		conditions = append(conditions,
			`t.id IN (SELECT tt.task_id FROM task_tags tt JOIN tags g ON g.id = tt.tag_id WHERE g.name = ?)`)
		args = append(args, filter.TagName)
	}
	if filter.StatusID != 0 {
		conditions = append(conditions, `t.status_id = ?`)
		args = append(args, filter.StatusID)
	}
	if filter.PerformerID != 0 {
		conditions = append(conditions, `t.assigned_to_id = ?`)
		args = append(args, filter.PerformerID)
	}
	if filter.CreatorID != 0 {
		conditions = append(conditions, `t.creator_id = ?`)
		args = append(args, filter.CreatorID)
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks t WHERE %s ORDER BY t.id`,
		taskColumns, strings.Join(conditions, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadTaskRelations(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateTask persists name, description, status and assignee changes.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if err := s.validateTask(ctx, t); err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET name = ?, description = ?, status_id = ?, assigned_to_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(t.Name), strings.TrimSpace(t.Description), t.StatusID, nullableID(t.AssignedToID), t.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, apperr.ErrNotFound
	}
	return s.TaskByID(ctx, t.ID, models.ScopeAny)
}

// DeleteTask soft-deletes a task.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.applyLifecycle(ctx, "tasks", id, models.EventDelete)
}

// RestoreTask reactivates a soft-deleted task. Not exposed over HTTP, but
// the transition is symmetric with DeleteTask.
func (s *Store) RestoreTask(ctx context.Context, id int64) error {
	return s.applyLifecycle(ctx, "tasks", id, models.EventRestore)
}

// SetTaskTags replaces the task's tag set with the named tags, creating
// missing tags on the fly. The whole swap runs in one transaction.
func (s *Store) SetTaskTags(ctx context.Context, taskID int64, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tag update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}

	for _, name := range names {
		var tagID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.ExecContext(ctx, `INSERT INTO tags(name) VALUES(?)`, name)
			if err != nil {
				return fmt.Errorf("insert tag: %w", err)
			}
			tagID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("tag id: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("get tag: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_tags(task_id, tag_id) VALUES(?, ?)`, taskID, tagID); err != nil {
			return fmt.Errorf("associate tag: %w", err)
		}
	}

	return tx.Commit()
}

// ListTags returns all known tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *Store) loadTaskRelations(ctx context.Context, t *models.Task) error {
	status, err := s.StatusByID(ctx, t.StatusID, models.ScopeAny)
	if err != nil {
		return fmt.Errorf("load task status: %w", err)
	}
	t.Status = &status

	creator, err := s.UserByID(ctx, t.CreatorID, models.ScopeAny)
	if err != nil {
		return fmt.Errorf("load task creator: %w", err)
	}
	t.Creator = &creator

	if t.AssignedToID != nil {
		assignee, err := s.UserByID(ctx, *t.AssignedToID, models.ScopeAny)
		if err != nil {
			return fmt.Errorf("load task assignee: %w", err)
		}
		t.AssignedTo = &assignee
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name FROM tags g JOIN task_tags tt ON tt.tag_id = g.id WHERE tt.task_id = ? ORDER BY g.name`, t.ID)
	if err != nil {
		return fmt.Errorf("load task tags: %w", err)
	}
	defer rows.Close()

	t.Tags = nil
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan task tag: %w", err)
		}
		t.Tags = append(t.Tags, tag)
	}
	return rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
