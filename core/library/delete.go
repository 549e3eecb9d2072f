package library

import (
	"context"
	"fmt"

	"trackcrate/core/playlist"
	"trackcrate/logger"
	"trackcrate/model"

	"gorm.io/gorm"
)

// DeleteTrack removes a user's track together with its playlist
// memberships, artist links and relation edges, then restores the dense
// position sequence of every playlist the track was part of.
func DeleteTrack(ctx context.Context, db *gorm.DB, userID, trackID int64) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTrack(tx, userID, trackID); err != nil {
			return err
		}

		var memberships []model.PlaylistTrack
		if err := tx.Where("track_id = ?", trackID).Find(&memberships).Error; err != nil {
			return fmt.Errorf("failed to load playlist memberships: %w", err)
		}

		if err := tx.Where("track_id = ?", trackID).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return fmt.Errorf("failed to remove playlist memberships: %w", err)
		}
		if err := tx.Where("track_id = ?", trackID).Delete(&model.TrackArtist{}).Error; err != nil {
			return fmt.Errorf("failed to remove artist links: %w", err)
		}
		if err := tx.Where("track_id = ? OR related_track_id = ?", trackID, trackID).
			Delete(&model.RelatedTrack{}).Error; err != nil {
			return fmt.Errorf("failed to remove relation edges: %w", err)
		}
		if err := tx.Where("user_id = ? AND id = ?", userID, trackID).
			Delete(&model.Track{}).Error; err != nil {
			return fmt.Errorf("failed to delete track: %w", err)
		}

		for _, membership := range memberships {
			if err := playlist.CompactPositions(tx, membership.PlaylistID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("track deleted",
		logger.Int64("userId", userID),
		logger.Int64("trackId", trackID))
	return nil
}
