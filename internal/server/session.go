package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/auth"
	"taskmanager/internal/session"
)

// writeSession persists the payload under the request's session id (minting
// one on first use) and refreshes the cookie.
func (s *Server) writeSession(c *gin.Context, payload session.Payload) error {
	id := ""
	if v, ok := c.Get(ctxKeySessionID); ok {
		id = v.(string)
	}

	id, err := s.sessions.Write(c.Request.Context(), payload, id, s.sessionMaxAge)
	if err != nil {
		return err
	}

	c.Set(ctxKeySessionID, id)
	c.Set(ctxKeyPayload, payload)
	c.SetCookie(session.CookieName, id, int(s.sessionMaxAge.Seconds()), "/", "", false, true)
	return nil
}

// signIn binds the user id to the session together with a flash message for
// the next page.
func (s *Server) signIn(c *gin.Context, userID int64, flash string) error {
	return s.writeSession(c, session.Payload{UserID: userID, Flash: flash})
}

// clearSession drops the stored user id, keeping only the flash. Resource
// state is untouched.
func (s *Server) clearSession(c *gin.Context, flash string) error {
	return s.writeSession(c, session.Payload{Flash: flash})
}

// writeSessionFlash stores a flash message for the next page without
// touching the signed-in identity.
func (s *Server) writeSessionFlash(c *gin.Context, flash string) error {
	payload := session.Payload{Flash: flash}
	if v, ok := c.Get(ctxKeyPayload); ok {
		payload = v.(session.Payload)
		payload.Flash = flash
	}
	return s.writeSession(c, payload)
}

// handleNewSession renders the sign-in form.
func (s *Server) handleNewSession(c *gin.Context) {
	s.render(c, http.StatusOK, "session/new", gin.H{"pageTitle": "Sign in"})
}

// handleSignIn validates credentials. Active accounts sign in; deleted ones
// are routed to the restore flow.
func (s *Server) handleSignIn(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, result, err := s.auth.SignIn(c.Request.Context(), email, password)
	if err != nil {
		s.renderError(c, err)
		return
	}

	switch result {
	case auth.SignInOK:
		if err := s.signIn(c, user.ID, "You have signed in"); err != nil {
			s.renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")

	case auth.SignInRestorable:
		if err := s.signIn(c, user.ID, ""); err != nil {
			s.renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, restoreQueryPath(user.ID))

	default:
		s.render(c, http.StatusUnprocessableEntity, "session/new", gin.H{
			"pageTitle": "Sign in",
			"errors":    map[string]string{"email": "Invalid email/password combination"},
			"formData":  map[string]string{"email": email},
		})
	}
}

// handleSignOut forgets the session's user id.
func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.clearSession(c, "You have signed out"); err != nil {
		s.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
