package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/report"
	"taskmanager/internal/secure"
	"taskmanager/internal/server"
	"taskmanager/internal/session"
	"taskmanager/internal/storage/sqlite"
	"taskmanager/internal/util"
	"taskmanager/internal/view"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("TASKMANAGER_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("TASKMANAGER_DB_PATH", "data/taskmanager.db"), "Path to sqlite database file")
	secretFlag := flag.String("secret", util.EnvOrDefault("SECRET_KEY", "abcdef"), "Secret key for password hashing")
	staticFlag := flag.String("static", util.EnvOrDefault("TASKMANAGER_STATIC_DIR", "public"), "Directory with static assets")
	sessionAgeFlag := flag.Duration("session-max-age",
		util.EnvDurationOrDefault("TASKMANAGER_SESSION_MAX_AGE", session.DefaultMaxAge), "Session lifetime")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("task manager is starting")

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	views, err := view.NewRenderer()
	if err != nil {
		logger.Error("unable to load templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hasher := secure.NewHasher(*secretFlag)
	sessions := session.NewStore(store)
	authSvc := auth.NewService(store, hasher)
	reporter := report.NewSlogReporter(logger)

	srv := server.New(store, sessions, authSvc, views, reporter, logger, server.Config{
		SessionMaxAge: *sessionAgeFlag,
		StaticDir:     *staticFlag,
	})

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
