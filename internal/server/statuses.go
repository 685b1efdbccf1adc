package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
)

func (s *Server) renderStatusesPage(c *gin.Context, code int, data gin.H) {
	statuses, err := s.store.ListStatuses(c.Request.Context(), models.ScopeActive)
	if err != nil {
		s.renderError(c, err)
		return
	}
	data["pageTitle"] = "Task statuses"
	data["taskStatuses"] = statuses
	s.render(c, code, "task-statuses/index", data)
}

// handleStatusesIndex lists active statuses.
func (s *Server) handleStatusesIndex(c *gin.Context) {
	s.renderStatusesPage(c, http.StatusOK, gin.H{})
}

// handleCreateStatus creates a status, or reactivates a soft-deleted one
// with the same name instead of duplicating it.
func (s *Server) handleCreateStatus(c *gin.Context) {
	name := c.PostForm("name")

	deleted, err := s.store.StatusByName(c.Request.Context(), name, models.ScopeDeleted)
	switch {
	case err == nil:
		if err := s.store.RestoreStatus(c.Request.Context(), deleted.ID); err != nil {
			s.renderError(c, err)
			return
		}
		if err := s.writeSessionFlash(c, fmt.Sprintf("Status '%s' has been restored", deleted.Name)); err != nil {
			s.renderError(c, err)
			return
		}

	case errors.Is(err, apperr.ErrNotFound):
		created, err := s.store.CreateStatus(c.Request.Context(), name)
		if err != nil {
			if verr, ok := apperr.AsValidation(err); ok {
				s.renderStatusesPage(c, http.StatusUnprocessableEntity, gin.H{
					"errors":   verr.Fields,
					"formData": map[string]string{"name": name},
				})
				return
			}
			s.renderError(c, err)
			return
		}
		if err := s.writeSessionFlash(c, fmt.Sprintf("Status '%s' has been created", created.Name)); err != nil {
			s.renderError(c, err)
			return
		}

	default:
		s.renderError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/task-statuses")
}

// handleUpdateStatus renames a user-defined status.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	status := requestedStatus(c)
	name := c.PostForm("name")

	updated, err := s.store.RenameStatus(c.Request.Context(), status.ID, name)
	if err != nil {
		if verr, ok := apperr.AsValidation(err); ok {
			s.renderStatusesPage(c, http.StatusUnprocessableEntity, gin.H{
				"errors":   verr.Fields,
				"formData": map[string]string{"name": name},
			})
			return
		}
		s.renderError(c, err)
		return
	}

	flash := fmt.Sprintf("Status '%s' has been renamed to '%s'", status.Name, updated.Name)
	if err := s.writeSessionFlash(c, flash); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/task-statuses")
}

// handleDeleteStatus soft-deletes a status unless active tasks still
// reference it, which is a dependency conflict rather than a permission
// failure.
func (s *Server) handleDeleteStatus(c *gin.Context) {
	status := requestedStatus(c)

	if err := s.store.DeleteStatus(c.Request.Context(), status.ID); err != nil {
		if errors.Is(err, apperr.ErrDependencyConflict) {
			s.renderStatusesPage(c, http.StatusFailedDependency, gin.H{
				"errors": map[string]string{
					"name": "active tasks still use this status; move them first",
				},
			})
			return
		}
		s.renderError(c, err)
		return
	}

	if err := s.writeSessionFlash(c, fmt.Sprintf("Status '%s' has been deleted", status.Name)); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/task-statuses")
}
