package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"trackcrate/core/library"
	"trackcrate/core/spotify"
	"trackcrate/logger"
	"trackcrate/storage"

	"github.com/gorilla/mux"
)

// importRequest carries a Spotify track reference.
type importRequest struct {
	URL string `json:"url"`
}

// GetTracksHandler lists the user's tracks, narrowed by query-param filters.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.List(r.Context(), userID, parseTrackFilter(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// FilterOptionsHandler returns the distinct filterable values plus the
// artists and albums present in the user's library.
func (h *APIHandler) FilterOptionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	opts, err := h.trackRepo.Options(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	artists, err := h.trackRepo.LibraryArtists(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	albums, err := h.trackRepo.LibraryAlbums(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"genres":         opts.Genres,
		"parentGenres":   opts.ParentGenres,
		"keys":           opts.Keys,
		"camelots":       opts.Camelots,
		"timeSignatures": opts.TimeSignatures,
		"artists":        artists,
		"albums":         albums,
	})
}

// GetTrackHandler returns one track with its related tracks, normalized
// artists and the playlists containing it.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	track, err := h.trackRepo.GetByID(r.Context(), userID, trackID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	related, err := h.relations.Related(r.Context(), userID, trackID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	artists, err := h.trackRepo.Artists(r.Context(), trackID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	playlists, err := h.trackRepo.PlaylistsContaining(r.Context(), userID, trackID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"track":         track,
		"relatedTracks": related,
		"artists":       artists,
		"playlists":     playlists,
	})
}

// DeleteTrackHandler removes a track together with its playlist
// memberships, relations and artist links.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := library.DeleteTrack(r.Context(), h.db, userID, trackID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Track deleted"})
}

// ImportTrackHandler imports a track by Spotify URL into the library.
func (h *APIHandler) ImportTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
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
	track, err := h.materializer.Import(r.Context(), userID, data)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"track": track})
}

// ImportAndRelateHandler imports (or resolves) a track by URL and relates
// it to the base track in one request.
func (h *APIHandler) ImportAndRelateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ref, ok := decodeImportRequest(w, r)
	if !ok {
		return
	}

	base, err := h.trackRepo.GetByID(r.Context(), userID, trackID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	data, err := h.fetcher.GetTrack(r.Context(), ref)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	// Relating the base track to itself via its own URL is caught before
	// any row is written.
	if base.SpotifyID == data.SpotifyID {
		respondDomainError(w, library.ErrSelfRelation)
		return
	}

	related, err := h.materializer.Resolve(r.Context(), userID, data)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.relations.Add(r.Context(), userID, trackID, related.ID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"track": related})
}

// AddRelatedHandler relates two existing library tracks.
func (h *APIHandler) AddRelatedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		RelatedTrackID int64 `json:"relatedTrackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.relations.Add(r.Context(), userID, trackID, req.RelatedTrackID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Tracks related"})
}

// RemoveRelatedHandler severs the relation between two tracks.
func (h *APIHandler) RemoveRelatedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	trackID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	relatedID, ok := pathID(w, r, "relatedId")
	if !ok {
		return
	}

	if err := h.relations.Remove(r.Context(), userID, trackID, relatedID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Relation removed"})
}

// ImportCSVHandler reconciles an uploaded analysis CSV against the user's
// library. The batch is optionally archived; an archive failure is logged
// but never fails the reconciliation.
func (h *APIHandler) ImportCSVHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "A csv_file upload is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Error("failed to read csv upload", logger.ErrorField(err))
		respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	if storage.Enabled() {
		_, err := storage.ArchiveCSV(r.Context(), bytes.NewReader(content), int64(len(content)))
		if err != nil {
			logger.Warn("failed to archive csv batch", logger.ErrorField(err))
		}
	}

	report, err := h.reconciler.Reconcile(r.Context(), userID, bytes.NewReader(content))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// decodeImportRequest reads {url} and validates the track reference shape.
func decodeImportRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	if !spotify.ValidTrackRef(req.URL) {
		respondError(w, http.StatusBadRequest, "Please provide a valid Spotify track URL")
		return "", false
	}
	return req.URL, true
}

// pathID parses a numeric path variable; writes a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id in path")
		return 0, false
	}
	return id, true
}

// parseTrackFilter builds the list filter from query params. Absent or
// malformed params are simply skipped.
func parseTrackFilter(r *http.Request) library.TrackFilter {
	q := r.URL.Query()

	return library.TrackFilter{
		ArtistID: queryInt64(q.Get("artistId")),
		AlbumID:  queryInt64(q.Get("albumId")),

		BPMMin:          queryInt(q.Get("bpmMin")),
		BPMMax:          queryInt(q.Get("bpmMax")),
		EnergyMin:       queryInt(q.Get("energyMin")),
		EnergyMax:       queryInt(q.Get("energyMax")),
		PopularityMin:   queryInt(q.Get("popularityMin")),
		PopularityMax:   queryInt(q.Get("popularityMax")),
		DanceMin:        queryInt(q.Get("danceMin")),
		DanceMax:        queryInt(q.Get("danceMax")),
		AcousticMin:     queryInt(q.Get("acousticMin")),
		AcousticMax:     queryInt(q.Get("acousticMax")),
		InstrumentalMin: queryInt(q.Get("instrumentalMin")),
		InstrumentalMax: queryInt(q.Get("instrumentalMax")),
		ValenceMin:      queryInt(q.Get("valenceMin")),
		ValenceMax:      queryInt(q.Get("valenceMax")),
		SpeechMin:       queryInt(q.Get("speechMin")),
		SpeechMax:       queryInt(q.Get("speechMax")),
		LiveMin:         queryInt(q.Get("liveMin")),
		LiveMax:         queryInt(q.Get("liveMax")),
		LoudDBMin:       queryFloat(q.Get("loudDbMin")),
		LoudDBMax:       queryFloat(q.Get("loudDbMax")),

		Genre:         q.Get("genre"),
		ParentGenre:   q.Get("parentGenre"),
		Key:           q.Get("key"),
		Camelot:       q.Get("camelot"),
		TimeSignature: q.Get("timeSignature"),
		Label:         q.Get("label"),
		ISRC:          q.Get("isrc"),
	}
}

func queryInt(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}

func queryInt64(value string) *int64 {
	if value == "" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}
