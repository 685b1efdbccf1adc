package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/apperr"
)

// renderError terminates the request with the error page matching the
// error's place in the taxonomy. Validation errors that reach this point
// had no form to re-render and fall back to a bare 500.
func (s *Server) renderError(c *gin.Context, err error) {
	c.Abort()

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.render(c, http.StatusNotFound, "errors/404", gin.H{"pageTitle": "Not found"})
	case errors.Is(err, apperr.ErrForbidden):
		s.render(c, http.StatusForbidden, "errors/403", gin.H{"pageTitle": "Access denied"})
	default:
		s.reporter.Report(err, c.Request)
		s.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()))
		s.render(c, http.StatusInternalServerError, "errors/500", gin.H{"pageTitle": "Something went wrong"})
	}
}

func (s *Server) renderNotFound(c *gin.Context) {
	c.Abort()
	s.render(c, http.StatusNotFound, "errors/404", gin.H{"pageTitle": "Not found"})
}
