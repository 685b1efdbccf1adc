package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
	"taskmanager/internal/storage/sqlite"
)

// parseTags splits a comma-separated tag string into trimmed, de-duplicated
// names, dropping empties.
func parseTags(raw string) []string {
	var names []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func tagsString(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ", ")
}

func taskFormData(c *gin.Context) map[string]string {
	return map[string]string{
		"name":         c.PostForm("name"),
		"description":  c.PostForm("description"),
		"statusId":     c.PostForm("statusId"),
		"assignedToId": c.PostForm("assignedToId"),
		"tags":         c.PostForm("tags"),
	}
}

// selectsMenuData loads the dropdown contents shared by the task forms.
func (s *Server) selectsMenuData(c *gin.Context) (gin.H, error) {
	statuses, err := s.store.ListStatuses(c.Request.Context(), models.ScopeActive)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(c.Request.Context(), models.ScopeActive)
	if err != nil {
		return nil, err
	}
	return gin.H{"taskStatuses": statuses, "users": users}, nil
}

// handleTasksIndex lists active tasks, optionally filtered by tag, status
// or performer. Filters matching nothing yield an empty list.
func (s *Server) handleTasksIndex(c *gin.Context) {
	filter := sqlite.TaskFilter{TagName: c.Query("tag")}
	if v := c.Query("statusId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			id = -1
		}
		filter.StatusID = id
	}
	if v := c.Query("performerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			id = -1
		}
		filter.PerformerID = id
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), models.ScopeActive, filter)
	if err != nil {
		s.renderError(c, err)
		return
	}

	selects, err := s.selectsMenuData(c)
	if err != nil {
		s.renderError(c, err)
		return
	}

	s.render(c, http.StatusOK, "tasks/index", gin.H{
		"pageTitle":       "Tasks",
		"tasks":           tasks,
		"selectsMenuData": selects,
	})
}

// handleMyTasks lists tasks the signed-in user created or performs.
func (s *Server) handleMyTasks(c *gin.Context) {
	user := currentUser(c)

	created, err := s.store.ListTasks(c.Request.Context(), models.ScopeActive, sqlite.TaskFilter{CreatorID: user.ID})
	if err != nil {
		s.renderError(c, err)
		return
	}
	assigned, err := s.store.ListTasks(c.Request.Context(), models.ScopeActive, sqlite.TaskFilter{PerformerID: user.ID})
	if err != nil {
		s.renderError(c, err)
		return
	}

	s.render(c, http.StatusOK, "tasks/my", gin.H{
		"pageTitle":     "My tasks",
		"createdTasks":  created,
		"assignedTasks": assigned,
	})
}

// handleNewTask renders the task creation form.
func (s *Server) handleNewTask(c *gin.Context) {
	selects, err := s.selectsMenuData(c)
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.render(c, http.StatusOK, "tasks/new", gin.H{
		"pageTitle":       "New task",
		"selectsMenuData": selects,
	})
}

// handleCreateTask creates a task owned by the signed-in user. A missing
// status falls back to the default built-in one.
func (s *Server) handleCreateTask(c *gin.Context) {
	task := models.Task{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		CreatorID:   currentUser(c).ID,
	}

	if v := c.PostForm("statusId"); v != "" {
		task.StatusID, _ = strconv.ParseInt(v, 10, 64)
	} else {
		status, err := s.store.DefaultStatus(c.Request.Context())
		if err != nil {
			s.renderError(c, err)
			return
		}
		task.StatusID = status.ID
	}

	if v := c.PostForm("assignedToId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			task.AssignedToID = &id
		}
	}

	created, err := s.store.CreateTask(c.Request.Context(), task)
	if err != nil {
		if verr, ok := apperr.AsValidation(err); ok {
			selects, serr := s.selectsMenuData(c)
			if serr != nil {
				s.renderError(c, serr)
				return
			}
			s.render(c, http.StatusUnprocessableEntity, "tasks/new", gin.H{
				"pageTitle":       "New task",
				"selectsMenuData": selects,
				"errors":          verr.Fields,
				"formData":        taskFormData(c),
			})
			return
		}
		s.renderError(c, err)
		return
	}

	if err := s.store.SetTaskTags(c.Request.Context(), created.ID, parseTags(c.PostForm("tags"))); err != nil {
		s.renderError(c, err)
		return
	}

	if err := s.writeSessionFlash(c, fmt.Sprintf("Task '%s' has been created", created.Name)); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tasks")
}

// handleShowTask renders a single task.
func (s *Server) handleShowTask(c *gin.Context) {
	task := requestedTask(c)
	s.render(c, http.StatusOK, "tasks/show", gin.H{
		"pageTitle": task.Name,
		"task":      task,
	})
}

// handleEditTask renders the edit form. The performer sees a narrowed form;
// only the creator gets the full one.
func (s *Server) handleEditTask(c *gin.Context) {
	task := requestedTask(c)

	selects, err := s.selectsMenuData(c)
	if err != nil {
		s.renderError(c, err)
		return
	}

	assignedTo := ""
	if task.AssignedToID != nil {
		assignedTo = strconv.FormatInt(*task.AssignedToID, 10)
	}

	s.render(c, http.StatusOK, "tasks/edit", gin.H{
		"pageTitle":          "Edit task",
		"taskId":             task.ID,
		"selectsMenuData":    selects,
		"isFullEditableForm": task.CreatorID == currentUser(c).ID,
		"formData": map[string]string{
			"name":         task.Name,
			"description":  task.Description,
			"statusId":     strconv.FormatInt(task.StatusID, 10),
			"assignedToId": assignedTo,
			"tags":         tagsString(task.Tags),
		},
	})
}

// handleUpdateTask edits a task. When the actor is the performer rather
// than the creator, only the submitted status is honored; every other field
// is silently dropped.
func (s *Server) handleUpdateTask(c *gin.Context) {
	task := *requestedTask(c)
	actor := currentUser(c)

	narrowed := task.CreatorID != actor.ID && task.IsAssignedTo(actor.ID)

	if v := c.PostForm("statusId"); v != "" {
		task.StatusID, _ = strconv.ParseInt(v, 10, 64)
	}

	if !narrowed {
		task.Name = c.PostForm("name")
		task.Description = c.PostForm("description")
		task.AssignedToID = nil
		if v := c.PostForm("assignedToId"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				task.AssignedToID = &id
			}
		}
	}

	updated, err := s.store.UpdateTask(c.Request.Context(), task)
	if err != nil {
		if verr, ok := apperr.AsValidation(err); ok {
			selects, serr := s.selectsMenuData(c)
			if serr != nil {
				s.renderError(c, serr)
				return
			}
			s.render(c, http.StatusUnprocessableEntity, "tasks/edit", gin.H{
				"pageTitle":          "Edit task",
				"taskId":             task.ID,
				"selectsMenuData":    selects,
				"isFullEditableForm": !narrowed,
				"errors":             verr.Fields,
				"formData":           taskFormData(c),
			})
			return
		}
		s.renderError(c, err)
		return
	}

	if !narrowed {
		if err := s.store.SetTaskTags(c.Request.Context(), updated.ID, parseTags(c.PostForm("tags"))); err != nil {
			s.renderError(c, err)
			return
		}
	}

	if err := s.writeSessionFlash(c, fmt.Sprintf("Task '%s' has been updated", updated.Name)); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tasks")
}

// handleDeleteTask soft-deletes a task; only its creator may do this.
func (s *Server) handleDeleteTask(c *gin.Context) {
	task := requestedTask(c)

	if err := s.store.DeleteTask(c.Request.Context(), task.ID); err != nil {
		s.renderError(c, err)
		return
	}

	if err := s.writeSessionFlash(c, fmt.Sprintf("Task '%s' has been deleted", task.Name)); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tasks")
}
