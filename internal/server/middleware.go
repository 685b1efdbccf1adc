package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/auth"
	"taskmanager/internal/models"
	"taskmanager/internal/session"
)

const (
	ctxKeySessionID = "sessionID"
	ctxKeyPayload   = "sessionPayload"
	ctxKeyActor     = "actor"
	ctxKeyFlash     = "flash"
	ctxKeyUser      = "requestedUser"
	ctxKeyStatus    = "requestedStatus"
	ctxKeyTask      = "requestedTask"
)

// methodOverride rewrites POST requests carrying a _method form field into
// the PATCH/DELETE the HTML form cannot express. It must run before
// routing, so it wraps the engine instead of joining the middleware chain.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err == nil {
				switch r.PostForm.Get("_method") {
				case http.MethodPatch:
					r.Method = http.MethodPatch
				case http.MethodDelete:
					r.Method = http.MethodDelete
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoverErrors is the outermost boundary: panics become a 500 page and a
// report to the error sink.
func (s *Server) recoverErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err, ok := recovered.(error)
				if !ok {
					err = fmt.Errorf("%v", recovered)
				}
				s.reporter.Report(err, c.Request)
				s.logger.Error("panic in handler",
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("error", err.Error()))
				c.Abort()
				s.render(c, http.StatusInternalServerError, "errors/500",
					gin.H{"pageTitle": "Something went wrong"})
			}
		}()
		c.Next()
	}
}

// parseSession resolves the session cookie into the request's actor and
// pops a pending flash message.
func (s *Server) parseSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(session.CookieName)
		payload, err := s.sessions.Read(c.Request.Context(), id)
		if err != nil {
			s.renderError(c, err)
			return
		}

		c.Set(ctxKeySessionID, id)

		if payload.Flash != "" {
			c.Set(ctxKeyFlash, payload.Flash)
			payload.Flash = ""
			if _, err := s.sessions.Write(c.Request.Context(), payload, id, s.sessionMaxAge); err != nil {
				s.renderError(c, err)
				return
			}
		}
		c.Set(ctxKeyPayload, payload)

		actor, err := s.auth.ResolveActor(c.Request.Context(), payload.UserID)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Set(ctxKeyActor, actor)

		c.Next()
	}
}

// loadUser resolves the :id path parameter against the given lifecycle
// scope before any permission check runs.
func (s *Server) loadUser(scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			s.renderNotFound(c)
			return
		}
		user, err := s.store.UserByID(c.Request.Context(), id, scope)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Set(ctxKeyUser, &user)
		c.Next()
	}
}

func (s *Server) loadStatus(scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			s.renderNotFound(c)
			return
		}
		status, err := s.store.StatusByID(c.Request.Context(), id, scope)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Set(ctxKeyStatus, &status)
		c.Next()
	}
}

func (s *Server) loadTask(scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			s.renderNotFound(c)
			return
		}
		task, err := s.store.TaskByID(c.Request.Context(), id, scope)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Set(ctxKeyTask, &task)
		c.Next()
	}
}

// requirePermission evaluates the policy table for the route class against
// the resolved actor and resource. Denial renders 403 and stops the chain
// before any mutation.
func (s *Server) requirePermission(route auth.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := auth.Resource{
			User:   requestedUser(c),
			Status: requestedStatus(c),
			Task:   requestedTask(c),
		}
		if !auth.Allowed(route, c.Request.Method, actorOf(c), res) {
			s.logger.Info("permission denied",
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("route", string(route)))
			c.Abort()
			s.render(c, http.StatusForbidden, "errors/403", gin.H{"pageTitle": "Access denied"})
			return
		}
		c.Next()
	}
}

func actorOf(c *gin.Context) auth.Actor {
	if v, ok := c.Get(ctxKeyActor); ok {
		return v.(auth.Actor)
	}
	return auth.Actor{}
}

func currentUser(c *gin.Context) *models.User {
	return actorOf(c).Current
}

func restorableUser(c *gin.Context) *models.User {
	return actorOf(c).Restorable
}

func flashMessage(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyFlash); ok {
		return v.(string)
	}
	return ""
}

func requestedUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxKeyUser); ok {
		return v.(*models.User)
	}
	return nil
}

func requestedStatus(c *gin.Context) *models.TaskStatus {
	if v, ok := c.Get(ctxKeyStatus); ok {
		return v.(*models.TaskStatus)
	}
	return nil
}

func requestedTask(c *gin.Context) *models.Task {
	if v, ok := c.Get(ctxKeyTask); ok {
		return v.(*models.Task)
	}
	return nil
}
