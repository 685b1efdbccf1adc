package server

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
)

// Passwords: at least six characters, no whitespace.
var passwordPattern = regexp.MustCompile(`^\S{6,}$`)

func validatePassword(password string) *apperr.ValidationError {
	if passwordPattern.MatchString(password) {
		return nil
	}
	verr := apperr.NewValidation()
	verr.Add("password", "password must be at least 6 characters and contain no whitespace")
	return verr
}

func restoreQueryPath(userID int64) string {
	return fmt.Sprintf("/users/deleted/%d/restore", userID)
}

func userFormData(c *gin.Context) map[string]string {
	return map[string]string{
		"firstname": c.PostForm("firstname"),
		"lastname":  c.PostForm("lastname"),
		"email":     c.PostForm("email"),
	}
}

// handleUsersIndex lists active users.
func (s *Server) handleUsersIndex(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context(), models.ScopeActive)
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.render(c, http.StatusOK, "users/index", gin.H{"pageTitle": "Users", "users": users})
}

// handleNewUser renders the registration form.
func (s *Server) handleNewUser(c *gin.Context) {
	s.render(c, http.StatusOK, "users/new", gin.H{"pageTitle": "Registration"})
}

// handleCreateUser registers a new account and signs it in right away.
func (s *Server) handleCreateUser(c *gin.Context) {
	password := c.PostForm("password")

	verr := apperr.NewValidation()
	if pwErr := validatePassword(password); pwErr != nil {
		verr.Merge(pwErr)
	}

	user := models.User{
		FirstName: c.PostForm("firstname"),
		LastName:  c.PostForm("lastname"),
		Email:     c.PostForm("email"),
	}
	if verr.Empty() {
		user.PasswordHash = s.auth.HashPassword(password)
	}

	created, err := s.store.CreateUser(c.Request.Context(), user)
	if err != nil {
		if storeErr, ok := apperr.AsValidation(err); ok {
			verr.Merge(storeErr)
		} else {
			s.renderError(c, err)
			return
		}
	}

	if !verr.Empty() {
		s.render(c, http.StatusUnprocessableEntity, "users/new", gin.H{
			"pageTitle": "Registration",
			"errors":    verr.Fields,
			"formData":  userFormData(c),
		})
		return
	}

	flash := fmt.Sprintf("User '%s' has been registered and signed in", created.Email)
	if err := s.signIn(c, created.ID, flash); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleUserProfile renders a profile. The form is editable only for the
// profile's owner; viewing is open to everyone.
func (s *Server) handleUserProfile(c *gin.Context) {
	user := requestedUser(c)
	editPermission := currentUser(c) != nil && currentUser(c).ID == user.ID

	title := fmt.Sprintf("Profile of %s", user.FullName())
	if editPermission {
		title = "My profile"
	}

	s.render(c, http.StatusOK, "users/profile", gin.H{
		"pageTitle":      title,
		"userId":         user.ID,
		"editPermission": editPermission,
		"formData": map[string]string{
			"firstname": user.FirstName,
			"lastname":  user.LastName,
			"email":     user.Email,
		},
	})
}

// handleUpdateUser edits the caller's own profile. A blank password keeps
// the current one.
func (s *Server) handleUpdateUser(c *gin.Context) {
	user := *requestedUser(c)
	user.FirstName = c.PostForm("firstname")
	user.LastName = c.PostForm("lastname")
	user.Email = c.PostForm("email")

	verr := apperr.NewValidation()
	if password := c.PostForm("password"); password != "" {
		if pwErr := validatePassword(password); pwErr != nil {
			verr.Merge(pwErr)
		} else {
			user.PasswordHash = s.auth.HashPassword(password)
		}
	}

	if verr.Empty() {
		if _, err := s.store.UpdateUser(c.Request.Context(), user); err != nil {
			if storeErr, ok := apperr.AsValidation(err); ok {
				verr.Merge(storeErr)
			} else {
				s.renderError(c, err)
				return
			}
		}
	}

	if !verr.Empty() {
		s.render(c, http.StatusUnprocessableEntity, "users/profile", gin.H{
			"pageTitle":      "My profile",
			"userId":         user.ID,
			"editPermission": true,
			"errors":         verr.Fields,
			"formData":       userFormData(c),
		})
		return
	}

	if err := s.writeSessionFlash(c, "Your profile has been updated"); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/users/%d", user.ID))
}

// handleDeleteUser soft-deletes the caller's own account and clears the
// session.
func (s *Server) handleDeleteUser(c *gin.Context) {
	user := requestedUser(c)

	if err := s.store.SetUserLifecycle(c.Request.Context(), user.ID, models.EventDelete); err != nil {
		s.renderError(c, err)
		return
	}

	flash := fmt.Sprintf("User '%s' has been deleted", user.Email)
	if err := s.clearSession(c, flash); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// handleQueryToRestoreUser shows the restore confirmation page, greeting
// the restorable identity bound to the session.
func (s *Server) handleQueryToRestoreUser(c *gin.Context) {
	owner := restorableUser(c)
	s.render(c, http.StatusOK, "users/query-to-restore", gin.H{
		"pageTitle": "Restore account",
		"userId":    owner.ID,
		"userName":  owner.FullName(),
	})
}

// handleRestoreUser reactivates a deleted account. The session is cleared;
// the owner signs in again afterwards.
func (s *Server) handleRestoreUser(c *gin.Context) {
	user := requestedUser(c)

	if err := s.store.SetUserLifecycle(c.Request.Context(), user.ID, models.EventRestore); err != nil {
		s.renderError(c, err)
		return
	}

	flash := fmt.Sprintf("User '%s' has been restored, you can sign in now", user.Email)
	if err := s.clearSession(c, flash); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
