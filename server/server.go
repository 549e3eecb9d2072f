package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackcrate/config"
	"trackcrate/core/auth"
	"trackcrate/core/csvimport"
	"trackcrate/core/spotify"
	"trackcrate/db"
	"trackcrate/logger"
	"trackcrate/repository"
	"trackcrate/storage"

	"github.com/gorilla/mux"
)

// newRouter builds the API router. Every route also accepts OPTIONS:
// mux skips router middlewares on a method mismatch, so preflight
// requests must match the route for the CORS middleware to answer them.
func newRouter(apiHandler *APIHandler) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	// Track endpoints
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tracks/filter-options", apiHandler.AuthMiddleware(apiHandler.FilterOptionsHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tracks/import", apiHandler.AuthMiddleware(apiHandler.ImportTrackHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/tracks/import-csv", apiHandler.AuthMiddleware(apiHandler.ImportCSVHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/import-and-relate", apiHandler.AuthMiddleware(apiHandler.ImportAndRelateHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/tracks/{id}/related", apiHandler.AuthMiddleware(apiHandler.AddRelatedHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/tracks/{id}/related/{relatedId}", apiHandler.AuthMiddleware(apiHandler.RemoveRelatedHandler)).Methods(http.MethodDelete, http.MethodOptions)

	// Playlist endpoints
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.GetPlaylistsHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.AddPlaylistTrackHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/playlists/{id}/import-and-add", apiHandler.AuthMiddleware(apiHandler.ImportAndAddHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", apiHandler.AuthMiddleware(apiHandler.RemovePlaylistTrackHandler)).Methods(http.MethodDelete, http.MethodOptions)

	return router
}

// Start initializes the application and runs the HTTP server until an
// interrupt arrives, then shuts down gracefully.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
	})
	auth.SetSecret(cfg.JWTSecret)

	if err := db.Connect(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.Migrate(db.DB); err != nil {
		logger.Fatal("failed to migrate database", logger.ErrorField(err))
	}

	if err := storage.Init(cfg); err != nil {
		logger.Fatal("failed to initialize csv archive", logger.ErrorField(err))
	}

	userRepo := repository.NewUserRepository(db.DB)
	trackRepo := repository.NewTrackRepository(db.DB)
	fetcher := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	apiHandler := NewAPIHandler(db.DB, userRepo, trackRepo, fetcher)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.CSVWatchDir != "" && cfg.CSVWatchUserID > 0 {
		watcher := csvimport.NewWatcher(csvimport.NewReconciler(db.DB), cfg.CSVWatchDir, cfg.CSVWatchUserID)
		if err := watcher.Start(watchCtx); err != nil {
			logger.Fatal("failed to start csv watcher", logger.ErrorField(err))
		}
	}

	router := newRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")
	stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}
