// Package library implements the track materialization, deletion and
// related-tracks logic of the music library.
package library

import (
	"context"
	"errors"
	"fmt"

	"trackcrate/core/spotify"
	"trackcrate/logger"
	"trackcrate/model"

	"gorm.io/gorm"
)

// Materializer turns track descriptions from the import adapter into
// persisted Track rows with their normalized Album/Artist entities.
type Materializer struct {
	db *gorm.DB
}

// NewMaterializer creates a materializer on the given database handle.
func NewMaterializer(db *gorm.DB) *Materializer {
	return &Materializer{db: db}
}

// Import adds a track to the user's library. It fails with
// ErrAlreadyImported when the user already holds the Spotify id.
func (m *Materializer) Import(ctx context.Context, userID int64, data *spotify.TrackData) (*model.Track, error) {
	var track *model.Track
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := trackBySpotifyID(tx, userID, data.SpotifyID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyImported
		}

		track, err = materialize(tx, userID, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("track imported",
		logger.Int64("userId", userID),
		logger.Int64("trackId", track.ID),
		logger.String("spotifyId", track.SpotifyID))
	return track, nil
}

// Resolve returns the user's existing track for the Spotify id, or
// materializes a new one. Used by the relate and add-to-playlist import
// paths, where an existing row is a resolution, not a conflict.
func (m *Materializer) Resolve(ctx context.Context, userID int64, data *spotify.TrackData) (*model.Track, error) {
	var track *model.Track
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := trackBySpotifyID(tx, userID, data.SpotifyID)
		if err != nil {
			return err
		}
		if existing != nil {
			track = existing
			return nil
		}

		track, err = materialize(tx, userID, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// materialize creates the Track row plus its normalized album and artists
// inside the caller's transaction.
func materialize(tx *gorm.DB, userID int64, data *spotify.TrackData) (*model.Track, error) {
	var albumID *int64
	if data.AlbumData != nil {
		album := model.Album{SpotifyID: data.AlbumData.SpotifyID}
		err := tx.Where(model.Album{SpotifyID: data.AlbumData.SpotifyID}).
			Attrs(model.Album{Name: data.AlbumData.Name, AlbumArtURL: data.AlbumData.AlbumArtURL}).
			FirstOrCreate(&album).Error
		if err != nil {
			return nil, fmt.Errorf("failed to find or create album: %w", err)
		}
		albumID = &album.ID
	}

	track := &model.Track{
		UserID:      userID,
		AlbumID:     albumID,
		SpotifyID:   data.SpotifyID,
		Name:        data.Name,
		Artists:     model.StringList(data.ArtistNames),
		Album:       data.AlbumName,
		AlbumArtURL: data.AlbumArtURL,
		SpotifyURL:  data.SpotifyURL,
		PreviewURL:  data.PreviewURL,
	}
	if data.DurationMS > 0 {
		duration := data.DurationMS
		track.DurationMS = &duration
	}
	if err := tx.Create(track).Error; err != nil {
		return nil, fmt.Errorf("failed to create track: %w", err)
	}

	if len(data.ArtistData) > 0 {
		artistIDs := make([]int64, 0, len(data.ArtistData))
		for _, artistData := range data.ArtistData {
			artist := model.Artist{SpotifyID: artistData.SpotifyID}
			err := tx.Where(model.Artist{SpotifyID: artistData.SpotifyID}).
				Attrs(model.Artist{Name: artistData.Name}).
				FirstOrCreate(&artist).Error
			if err != nil {
				return nil, fmt.Errorf("failed to find or create artist: %w", err)
			}
			artistIDs = append(artistIDs, artist.ID)
		}
		if err := replaceTrackArtists(tx, track.ID, artistIDs); err != nil {
			return nil, err
		}
	}

	return track, nil
}

// replaceTrackArtists swaps the track's artist association set.
func replaceTrackArtists(tx *gorm.DB, trackID int64, artistIDs []int64) error {
	if err := tx.Where("track_id = ?", trackID).Delete(&model.TrackArtist{}).Error; err != nil {
		return fmt.Errorf("failed to clear track artists: %w", err)
	}
	for _, artistID := range artistIDs {
		link := model.TrackArtist{TrackID: trackID, ArtistID: artistID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link artist %d: %w", artistID, err)
		}
	}
	return nil
}

// trackBySpotifyID finds a user's track by Spotify id; nil when absent.
func trackBySpotifyID(tx *gorm.DB, userID int64, spotifyID string) (*model.Track, error) {
	var track model.Track
	err := tx.Where("user_id = ? AND spotify_id = ?", userID, spotifyID).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track by spotify id: %w", err)
	}
	return &track, nil
}

// ownedTrack fetches a track scoped to its owner; ErrTrackNotFound otherwise.
func ownedTrack(tx *gorm.DB, userID, trackID int64) (*model.Track, error) {
	var track model.Track
	err := tx.Where("user_id = ? AND id = ?", userID, trackID).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track %d: %w", trackID, err)
	}
	return &track, nil
}
