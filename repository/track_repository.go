package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"trackcrate/core/library"
	"trackcrate/model"

	"gorm.io/gorm"
)

// FilterOptions are the distinct attribute values present in a user's
// library, used to populate list-view filter dropdowns.
type FilterOptions struct {
	Genres         []string `json:"genres"`
	ParentGenres   []string `json:"parentGenres"`
	Keys           []string `json:"keys"`
	Camelots       []string `json:"camelots"`
	TimeSignatures []string `json:"timeSignatures"`
}

// TrackRepository defines the read-side interface for track data.
type TrackRepository interface {
	GetByID(ctx context.Context, userID, id int64) (*model.Track, error)
	List(ctx context.Context, userID int64, filter library.TrackFilter) ([]model.Track, error)
	Artists(ctx context.Context, trackID int64) ([]model.Artist, error)
	LibraryArtists(ctx context.Context, userID int64) ([]model.Artist, error)
	LibraryAlbums(ctx context.Context, userID int64) ([]model.Album, error)
	Options(ctx context.Context, userID int64) (*FilterOptions, error)
	PlaylistsContaining(ctx context.Context, userID, trackID int64) ([]model.Playlist, error)
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a GORM-backed track repository.
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// GetByID fetches a track scoped to its owner.
func (r *gormTrackRepository) GetByID(ctx context.Context, userID, id int64) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track %d: %w", id, err)
	}
	return &track, nil
}

// List returns the user's tracks, newest first, narrowed by the filter.
func (r *gormTrackRepository) List(ctx context.Context, userID int64, filter library.TrackFilter) ([]model.Track, error) {
	q := r.db.WithContext(ctx).Model(&model.Track{}).Where("user_id = ?", userID)
	q = filter.Apply(q)

	tracks := make([]model.Track, 0)
	if err := q.Order("created_at DESC, id DESC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to query tracks for user %d: %w", userID, err)
	}
	return tracks, nil
}

// Artists returns the normalized artists linked to a track.
func (r *gormTrackRepository) Artists(ctx context.Context, trackID int64) ([]model.Artist, error) {
	artists := make([]model.Artist, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN track_artist ON track_artist.artist_id = artists.id").
		Where("track_artist.track_id = ?", trackID).
		Find(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query artists for track %d: %w", trackID, err)
	}
	return artists, nil
}

// LibraryArtists returns every artist appearing in the user's library.
func (r *gormTrackRepository) LibraryArtists(ctx context.Context, userID int64) ([]model.Artist, error) {
	artists := make([]model.Artist, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN track_artist ON track_artist.artist_id = artists.id").
		Joins("JOIN tracks ON tracks.id = track_artist.track_id").
		Where("tracks.user_id = ?", userID).
		Distinct("artists.*").
		Order("artists.name").
		Find(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query library artists: %w", err)
	}
	return artists, nil
}

// LibraryAlbums returns every album appearing in the user's library.
func (r *gormTrackRepository) LibraryAlbums(ctx context.Context, userID int64) ([]model.Album, error) {
	albums := make([]model.Album, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN tracks ON tracks.album_id = albums.id").
		Where("tracks.user_id = ?", userID).
		Distinct("albums.*").
		Order("albums.name").
		Find(&albums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query library albums: %w", err)
	}
	return albums, nil
}

// Options collects the distinct filterable values across the user's tracks.
func (r *gormTrackRepository) Options(ctx context.Context, userID int64) (*FilterOptions, error) {
	opts := &FilterOptions{
		Genres:         []string{},
		ParentGenres:   []string{},
		Keys:           []string{},
		Camelots:       []string{},
		TimeSignatures: []string{},
	}

	var tracks []model.Track
	err := r.db.WithContext(ctx).
		Select("genres", "parent_genres", "`key`", "camelot", "time_signature").
		Where("user_id = ?", userID).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query filter options: %w", err)
	}

	genres := make(map[string]bool)
	parents := make(map[string]bool)
	keys := make(map[string]bool)
	camelots := make(map[string]bool)
	signatures := make(map[string]bool)
	for _, track := range tracks {
		for _, genre := range track.Genres {
			genres[genre] = true
		}
		for _, parent := range track.ParentGenres {
			parents[parent] = true
		}
		if track.Key != "" {
			keys[track.Key] = true
		}
		if track.Camelot != "" {
			camelots[track.Camelot] = true
		}
		if track.TimeSignature != "" {
			signatures[track.TimeSignature] = true
		}
	}

	opts.Genres = sortedKeys(genres)
	opts.ParentGenres = sortedKeys(parents)
	opts.Keys = sortedKeys(keys)
	opts.Camelots = sortedKeys(camelots)
	opts.TimeSignatures = sortedKeys(signatures)
	return opts, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// PlaylistsContaining returns the user's playlists that include the track.
func (r *gormTrackRepository) PlaylistsContaining(ctx context.Context, userID, trackID int64) ([]model.Playlist, error) {
	playlists := make([]model.Playlist, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN playlist_track ON playlist_track.playlist_id = playlists.id").
		Where("playlist_track.track_id = ? AND playlists.user_id = ?", trackID, userID).
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for track %d: %w", trackID, err)
	}
	return playlists, nil
}
