// Package server wires the HTTP surface: routing, session parsing,
// resource resolution, permission checks and the form handlers.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/auth"
	"taskmanager/internal/models"
	"taskmanager/internal/report"
	"taskmanager/internal/session"
	"taskmanager/internal/storage/sqlite"
	"taskmanager/internal/view"
)

// Config carries the HTTP layer settings.
type Config struct {
	SessionMaxAge time.Duration
	StaticDir     string
}

// Server provides the task manager's HTTP handlers.
type Server struct {
	engine        *gin.Engine
	store         *sqlite.Store
	sessions      *session.Store
	auth          *auth.Service
	views         *view.Renderer
	reporter      report.Reporter
	logger        *slog.Logger
	sessionMaxAge time.Duration
	staticDir     string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, sessions *session.Store, authSvc *auth.Service, views *view.Renderer, reporter report.Reporter, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionMaxAge == 0 {
		cfg.SessionMaxAge = session.DefaultMaxAge
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.SetHTMLTemplate(views.Template())

	srv := &Server{
		engine:        router,
		store:         store,
		sessions:      sessions,
		auth:          authSvc,
		views:         views,
		reporter:      reporter,
		logger:        logger,
		sessionMaxAge: cfg.SessionMaxAge,
		staticDir:     cfg.StaticDir,
	}

	router.Use(srv.recoverErrors())
	router.Use(srv.parseSession())

	srv.registerRoutes()
	return srv
}

// Handler exposes the server as an http.Handler with form method override
// applied ahead of routing.
func (s *Server) Handler() http.Handler {
	return methodOverride(s.engine)
}

// registerRoutes wires all page and form handlers together.
func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/", s.handleIndex)

	r.GET("/session/new", s.handleNewSession)
	r.POST("/session", s.handleSignIn)
	r.DELETE("/session", s.handleSignOut)

	r.GET("/users", s.handleUsersIndex)
	r.GET("/users/new", s.handleNewUser)
	r.POST("/users", s.handleCreateUser)
	r.GET("/users/:id",
		s.loadUser(models.ScopeActive), s.handleUserProfile)
	r.PATCH("/users/:id",
		s.loadUser(models.ScopeActive), s.requirePermission(auth.RouteUserProfile), s.handleUpdateUser)
	r.DELETE("/users/:id",
		s.loadUser(models.ScopeActive), s.requirePermission(auth.RouteUserProfile), s.handleDeleteUser)
	r.GET("/users/deleted/:id/restore",
		s.loadUser(models.ScopeDeleted), s.requirePermission(auth.RouteUserRestoreQuery), s.handleQueryToRestoreUser)
	r.PATCH("/users/deleted/:id",
		s.loadUser(models.ScopeDeleted), s.requirePermission(auth.RouteUserRestore), s.handleRestoreUser)

	r.GET("/task-statuses", s.handleStatusesIndex)
	r.POST("/task-statuses",
		s.requirePermission(auth.RouteStatusCollection), s.handleCreateStatus)
	r.PATCH("/task-statuses/:id",
		s.loadStatus(models.ScopeActive), s.requirePermission(auth.RouteStatus), s.handleUpdateStatus)
	r.DELETE("/task-statuses/:id",
		s.loadStatus(models.ScopeActive), s.requirePermission(auth.RouteStatus), s.handleDeleteStatus)

	r.GET("/tasks", s.handleTasksIndex)
	r.GET("/tasks/my",
		s.requirePermission(auth.RouteTasksMy), s.handleMyTasks)
	r.GET("/tasks/new",
		s.requirePermission(auth.RouteTaskNew), s.handleNewTask)
	r.POST("/tasks",
		s.requirePermission(auth.RouteTaskCollection), s.handleCreateTask)
	r.GET("/tasks/:id",
		s.loadTask(models.ScopeActive), s.requirePermission(auth.RouteTask), s.handleShowTask)
	r.GET("/tasks/:id/edit",
		s.loadTask(models.ScopeActive), s.requirePermission(auth.RouteTask), s.handleEditTask)
	r.PATCH("/tasks/:id",
		s.loadTask(models.ScopeActive), s.requirePermission(auth.RouteTask), s.handleUpdateTask)
	r.DELETE("/tasks/:id",
		s.loadTask(models.ScopeActive), s.requirePermission(auth.RouteTask), s.handleDeleteTask)

	s.mountStatic()
	r.NoRoute(func(c *gin.Context) {
		s.renderNotFound(c)
	})
}

// handleIndex renders the landing page.
func (s *Server) handleIndex(c *gin.Context) {
	s.render(c, http.StatusOK, "index", gin.H{"pageTitle": "Task manager"})
}

// parseID converts a path parameter to int64. Unparseable ids behave like
// ids that match no row.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// render writes a view, merging in the request-scoped defaults every page
// shows: flash message, signed-in user, empty form data and errors.
func (s *Server) render(c *gin.Context, code int, name string, data gin.H) {
	if _, ok := data["formData"]; !ok {
		data["formData"] = map[string]string{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = map[string]string{}
	}
	data["flash"] = flashMessage(c)
	data["currentUser"] = currentUser(c)
	s.views.HTML(c, code, name, data)
}
