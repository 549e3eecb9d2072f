package server

import (
	"encoding/json"
	"net/http"

	"trackcrate/core/playlist"
)

// GetPlaylistsHandler lists the user's playlists with member counts.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summaries, err := h.engine.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"playlists": summaries})
}

// CreatePlaylistHandler creates a playlist with an optional initial
// track list.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	in, ok := decodePlaylistInput(w, r)
	if !ok {
		return
	}

	created, err := h.engine.Create(r.Context(), userID, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"playlist": created})
}

// GetPlaylistHandler returns one playlist with its members in order.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.engine.Get(r.Context(), userID, playlistID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"playlist": detail})
}

// UpdatePlaylistHandler edits the playlist fields and replaces its
// membership with the submitted track list.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	in, ok := decodePlaylistInput(w, r)
	if !ok {
		return
	}

	updated, err := h.engine.Update(r.Context(), userID, playlistID, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"playlist": updated})
}

// DeletePlaylistHandler removes a playlist.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.engine.Delete(r.Context(), userID, playlistID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted"})
}

// AddPlaylistTrackHandler appends an existing library track to the end of
// the playlist.
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.AddTrack(r.Context(), userID, playlistID, req.TrackID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Track added to playlist"})
}

// ImportAndAddHandler imports (or resolves) a track by Spotify URL and
// appends it to the playlist in one request.
func (h *APIHandler) ImportAndAddHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ref, ok := decodeImportRequest(w, r)
	if !ok {
		return
	}

	data, err := h.fetcher.GetTrack(r.Context(), ref)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	track, err := h.materializer.Resolve(r.Context(), userID, data)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.engine.AddTrack(r.Context(), userID, playlistID, track.ID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"track": track})
}

// RemovePlaylistTrackHandler detaches a track; remaining members are
// renumbered densely.
func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	trackID, ok := pathID(w, r, "trackId")
	if !ok {
		return
	}

	if err := h.engine.RemoveTrack(r.Context(), userID, playlistID, trackID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Track removed from playlist"})
}

// decodePlaylistInput reads the playlist body and validates the name.
func decodePlaylistInput(w http.ResponseWriter, r *http.Request) (playlist.Input, bool) {
	var in playlist.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return playlist.Input{}, false
	}
	if in.Name == "" {
		respondError(w, http.StatusBadRequest, "Playlist name is required")
		return playlist.Input{}, false
	}
	return in, true
}
