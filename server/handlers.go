// Package server exposes the library over HTTP. Handlers stay thin:
// decode, call into core, map domain errors to status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"trackcrate/core/csvimport"
	"trackcrate/core/library"
	"trackcrate/core/playlist"
	"trackcrate/core/spotify"
	"trackcrate/logger"
	"trackcrate/repository"

	"gorm.io/gorm"
)

// TrackFetcher resolves a track reference to its canonical description.
type TrackFetcher interface {
	GetTrack(ctx context.Context, ref string) (*spotify.TrackData, error)
}

// APIHandler holds the handler dependencies.
type APIHandler struct {
	db           *gorm.DB
	userRepo     repository.UserRepository
	trackRepo    repository.TrackRepository
	fetcher      TrackFetcher
	materializer *library.Materializer
	relations    *library.RelationManager
	engine       *playlist.Engine
	reconciler   *csvimport.Reconciler
}

// NewAPIHandler creates a new APIHandler with the given dependencies.
func NewAPIHandler(
	db *gorm.DB,
	userRepo repository.UserRepository,
	trackRepo repository.TrackRepository,
	fetcher TrackFetcher,
) *APIHandler {
	return &APIHandler{
		db:           db,
		userRepo:     userRepo,
		trackRepo:    trackRepo,
		fetcher:      fetcher,
		materializer: library.NewMaterializer(db),
		relations:    library.NewRelationManager(db),
		engine:       playlist.NewEngine(db),
		reconciler:   csvimport.NewReconciler(db),
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps core errors onto HTTP statuses. Unrecognized
// errors become a 500 with the detail logged, not leaked.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrTrackNotFound),
		errors.Is(err, playlist.ErrTrackNotFound):
		respondError(w, http.StatusNotFound, "Track not found")
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		respondError(w, http.StatusNotFound, "Playlist not found")
	case errors.Is(err, library.ErrAlreadyImported):
		respondError(w, http.StatusConflict, "This track is already in your library")
	case errors.Is(err, library.ErrSelfRelation):
		respondError(w, http.StatusConflict, "A track cannot be related to itself")
	case errors.Is(err, library.ErrDuplicateRelation):
		respondError(w, http.StatusConflict, "These tracks are already related")
	case errors.Is(err, playlist.ErrAlreadyInPlaylist):
		respondError(w, http.StatusConflict, "Track is already in this playlist")
	case errors.Is(err, spotify.ErrInvalidTrackURL):
		respondError(w, http.StatusBadRequest, "Please provide a valid Spotify track URL")
	case errors.Is(err, spotify.ErrAuthFailed),
		errors.Is(err, spotify.ErrFetchFailed):
		logger.Error("track import failed", logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "Failed to import track. Please check the URL and try again.")
	default:
		logger.Error("unhandled request error", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
