package library

import (
	"context"
	"fmt"

	"trackcrate/logger"
	"trackcrate/model"

	"gorm.io/gorm"
)

// RelationManager maintains the symmetric related-tracks relation.
// Each undirected relation is stored as two directed rows, written and
// removed together.
type RelationManager struct {
	db *gorm.DB
}

// NewRelationManager creates a relation manager on the given database handle.
func NewRelationManager(db *gorm.DB) *RelationManager {
	return &RelationManager{db: db}
}

// Add relates two of the user's tracks. Fails with ErrTrackNotFound when
// either track is absent or foreign, ErrSelfRelation when the ids are equal,
// and ErrDuplicateRelation when an edge already exists in either direction.
func (r *RelationManager) Add(ctx context.Context, userID, trackID, relatedID int64) error {
	if trackID == relatedID {
		return ErrSelfRelation
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		err := tx.Model(&model.Track{}).
			Where("user_id = ? AND id IN ?", userID, []int64{trackID, relatedID}).
			Count(&owned).Error
		if err != nil {
			return fmt.Errorf("failed to check track ownership: %w", err)
		}
		if owned != 2 {
			return ErrTrackNotFound
		}

		var existing int64
		err = tx.Model(&model.RelatedTrack{}).
			Where("(track_id = ? AND related_track_id = ?) OR (track_id = ? AND related_track_id = ?)",
				trackID, relatedID, relatedID, trackID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing relation: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateRelation
		}

		// Both directions or neither.
		edges := []model.RelatedTrack{
			{TrackID: trackID, RelatedTrackID: relatedID},
			{TrackID: relatedID, RelatedTrackID: trackID},
		}
		if err := tx.Create(&edges).Error; err != nil {
			return fmt.Errorf("failed to create relation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("tracks related",
		logger.Int64("userId", userID),
		logger.Int64("trackId", trackID),
		logger.Int64("relatedTrackId", relatedID))
	return nil
}

// Remove deletes the relation between two of the user's tracks in both
// directions. Removing an absent relation is not an error.
func (r *RelationManager) Remove(ctx context.Context, userID, trackID, relatedID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTrack(tx, userID, trackID); err != nil {
			return err
		}
		if _, err := ownedTrack(tx, userID, relatedID); err != nil {
			return err
		}

		err := tx.Where("(track_id = ? AND related_track_id = ?) OR (track_id = ? AND related_track_id = ?)",
			trackID, relatedID, relatedID, trackID).
			Delete(&model.RelatedTrack{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove relation: %w", err)
		}
		return nil
	})
}

// Related returns the tracks related to the given track: the union of both
// edge directions, deduplicated, excluding the track itself, in edge
// insertion order.
func (r *RelationManager) Related(ctx context.Context, userID, trackID int64) ([]model.Track, error) {
	tx := r.db.WithContext(ctx)
	if _, err := ownedTrack(tx, userID, trackID); err != nil {
		return nil, err
	}

	var edges []model.RelatedTrack
	err := tx.Where("track_id = ? OR related_track_id = ?", trackID, trackID).
		Order("id").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	seen := make(map[int64]bool)
	ids := make([]int64, 0, len(edges))
	for _, edge := range edges {
		other := edge.RelatedTrackID
		if other == trackID {
			other = edge.TrackID
		}
		if other == trackID || seen[other] {
			continue
		}
		seen[other] = true
		ids = append(ids, other)
	}
	if len(ids) == 0 {
		return []model.Track{}, nil
	}

	var tracks []model.Track
	if err := tx.Where("id IN ?", ids).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to load related tracks: %w", err)
	}

	// Restore insertion order.
	byID := make(map[int64]model.Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}
	ordered := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		if track, ok := byID[id]; ok {
			ordered = append(ordered, track)
		}
	}
	return ordered, nil
}
