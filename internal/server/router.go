// Package server wires handlers, middleware and static files into the root
// http.Handler.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/base-app/internal/auth"
	"github.com/diewo77/base-app/internal/config"
	"github.com/diewo77/base-app/internal/handlers"
	"github.com/diewo77/base-app/internal/httpx"
	"github.com/diewo77/base-app/internal/repository"
)

// New constructs the application handler with all routes and middleware.
func New(dbConn *gorm.DB, cfg *config.Config, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	repo := repository.NewUserRepository(dbConn, log)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := dbConn.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	wh := handlers.NewWebHandler(repo, log, cfg.StaticDir, cfg.AvatarDir)
	wh.Register(mux)
	mux.Handle("/profile", auth.RequireAuth(http.HandlerFunc(wh.Profile)))

	ah := handlers.NewAuthHandler(repo, log)
	ah.Register(mux)

	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler(cfg)))

	return auth.Middleware(withRecover(withLogging(mux, log), log))
}

// staticHandler serves the static root with cache headers appropriate for
// the environment.
func staticHandler(cfg *config.Config) http.Handler {
	fs := http.FileServer(http.Dir(cfg.StaticDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Env == "development" {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=86400")
		}
		fs.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func withRecover(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("http", "event", "panic", "path", r.URL.Path, "panic", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
