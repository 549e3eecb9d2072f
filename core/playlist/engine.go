// Package playlist implements the playlist ordering engine. Membership
// positions within one playlist always form a dense sequence 1..N; every
// mutation below restores that invariant before its transaction commits.
package playlist

import (
	"context"
	"errors"
	"fmt"

	"trackcrate/logger"
	"trackcrate/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrPlaylistNotFound means the playlist does not exist or is not
	// owned by the requesting user.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrTrackNotFound means the track is absent, foreign, or (for
	// removal) not a member of the playlist.
	ErrTrackNotFound = errors.New("track not found")

	// ErrAlreadyInPlaylist means the track is already a member.
	ErrAlreadyInPlaylist = errors.New("track is already in this playlist")
)

// Input carries the user-editable playlist fields plus the candidate
// membership list for create/replace operations.
type Input struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IsPublic    bool    `json:"isPublic"`
	TrackIDs    []int64 `json:"trackIds"`
}

// Entry is a playlist member with its position.
type Entry struct {
	model.Track
	Position int `json:"position"`
}

// Detail is a playlist with its ordered members.
type Detail struct {
	model.Playlist
	Tracks []Entry `json:"tracks"`
}

// Summary is a playlist with its member count, for list views.
type Summary struct {
	model.Playlist
	TrackCount int64 `json:"trackCount"`
}

// Engine maintains playlist membership and ordering.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates an engine on the given database handle.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Create stores a new playlist. Candidate track ids are filtered to those
// the user owns — unknown or foreign ids are dropped silently — and the
// survivors get positions 1..K in candidate order.
func (e *Engine) Create(ctx context.Context, userID int64, in Input) (*model.Playlist, error) {
	created := &model.Playlist{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		IsPublic:    in.IsPublic,
	}

	var attached int
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}

		valid, err := ownedTrackIDs(tx, userID, in.TrackIDs)
		if err != nil {
			return err
		}
		attached = len(valid)
		return attachAll(tx, created.ID, valid)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("playlist created",
		logger.Int64("userId", userID),
		logger.Int64("playlistId", created.ID),
		logger.Int("tracks", attached))
	return created, nil
}

// Update edits the playlist fields and replaces its membership: former
// members absent from the new list are detached and every survivor gets
// its position reassigned 1..K in the new filtered order. A nil or empty
// list detaches everything.
func (e *Engine) Update(ctx context.Context, userID, playlistID int64, in Input) (*model.Playlist, error) {
	var updated *model.Playlist
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pl, err := lockPlaylist(tx, userID, playlistID)
		if err != nil {
			return err
		}

		pl.Name = in.Name
		pl.Description = in.Description
		pl.IsPublic = in.IsPublic
		if err := tx.Save(pl).Error; err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}
		updated = pl

		valid, err := ownedTrackIDs(tx, userID, in.TrackIDs)
		if err != nil {
			return err
		}
		return syncMembers(tx, playlistID, valid)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a playlist and its membership rows.
func (e *Engine) Delete(ctx context.Context, userID, playlistID int64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPlaylist(tx, userID, playlistID); err != nil {
			return err
		}
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return fmt.Errorf("failed to detach playlist tracks: %w", err)
		}
		if err := tx.Delete(&model.Playlist{}, playlistID).Error; err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		return nil
	})
}

// AddTrack appends one of the user's tracks at position max+1.
func (e *Engine) AddTrack(ctx context.Context, userID, playlistID, trackID int64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPlaylist(tx, userID, playlistID); err != nil {
			return err
		}

		var owned int64
		err := tx.Model(&model.Track{}).
			Where("user_id = ? AND id = ?", userID, trackID).
			Count(&owned).Error
		if err != nil {
			return fmt.Errorf("failed to check track ownership: %w", err)
		}
		if owned == 0 {
			return ErrTrackNotFound
		}

		var member int64
		err = tx.Model(&model.PlaylistTrack{}).
			Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Count(&member).Error
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if member > 0 {
			return ErrAlreadyInPlaylist
		}

		var maxPosition int
		err = tx.Model(&model.PlaylistTrack{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error
		if err != nil {
			return fmt.Errorf("failed to read max position: %w", err)
		}

		row := model.PlaylistTrack{PlaylistID: playlistID, TrackID: trackID, Position: maxPosition + 1}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to attach track: %w", err)
		}
		return nil
	})
}

// RemoveTrack detaches a member and renumbers the remaining members
// densely, preserving their relative order. Costs O(N) per removal.
func (e *Engine) RemoveTrack(ctx context.Context, userID, playlistID, trackID int64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPlaylist(tx, userID, playlistID); err != nil {
			return err
		}

		res := tx.Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Delete(&model.PlaylistTrack{})
		if res.Error != nil {
			return fmt.Errorf("failed to detach track: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTrackNotFound
		}

		return CompactPositions(tx, playlistID)
	})
}

// Get returns a user's playlist with its members in position order.
func (e *Engine) Get(ctx context.Context, userID, playlistID int64) (*Detail, error) {
	tx := e.db.WithContext(ctx)

	var pl model.Playlist
	err := tx.Where("user_id = ? AND id = ?", userID, playlistID).First(&pl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	var rows []model.PlaylistTrack
	err = tx.Where("playlist_id = ?", playlistID).Order("position").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}

	detail := &Detail{Playlist: pl, Tracks: []Entry{}}
	if len(rows) == 0 {
		return detail, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TrackID)
	}
	var tracks []model.Track
	if err := tx.Where("id IN ?", ids).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	byID := make(map[int64]model.Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}
	for _, row := range rows {
		if track, ok := byID[row.TrackID]; ok {
			detail.Tracks = append(detail.Tracks, Entry{Track: track, Position: row.Position})
		}
	}
	return detail, nil
}

// List returns the user's playlists, newest first, with member counts.
func (e *Engine) List(ctx context.Context, userID int64) ([]Summary, error) {
	tx := e.db.WithContext(ctx)

	var playlists []model.Playlist
	err := tx.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	summaries := make([]Summary, 0, len(playlists))
	for _, pl := range playlists {
		var count int64
		err := tx.Model(&model.PlaylistTrack{}).Where("playlist_id = ?", pl.ID).Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count playlist tracks: %w", err)
		}
		summaries = append(summaries, Summary{Playlist: pl, TrackCount: count})
	}
	return summaries, nil
}

// CompactPositions rewrites the playlist's positions to 1..N in ascending
// existing-position order, inside the caller's transaction.
func CompactPositions(tx *gorm.DB, playlistID int64) error {
	var rows []model.PlaylistTrack
	err := tx.Where("playlist_id = ?", playlistID).Order("position").Find(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load memberships for renumbering: %w", err)
	}

	for i, row := range rows {
		if row.Position == i+1 {
			continue
		}
		err := tx.Model(&model.PlaylistTrack{}).
			Where("playlist_id = ? AND track_id = ?", playlistID, row.TrackID).
			Update("position", i+1).Error
		if err != nil {
			return fmt.Errorf("failed to renumber position %d: %w", i+1, err)
		}
	}
	return nil
}

// lockPlaylist fetches the user's playlist under a row lock so concurrent
// membership mutations serialize for the rest of the transaction. SQLite
// has no FOR UPDATE; its single-writer transactions give the same guarantee.
func lockPlaylist(tx *gorm.DB, userID, playlistID int64) (*model.Playlist, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var pl model.Playlist
	err := q.Where("user_id = ? AND id = ?", userID, playlistID).First(&pl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist %d: %w", playlistID, err)
	}
	return &pl, nil
}

// ownedTrackIDs filters candidate ids to tracks the user owns, preserving
// candidate order and dropping duplicates.
func ownedTrackIDs(tx *gorm.DB, userID int64, candidates []int64) ([]int64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var owned []int64
	err := tx.Model(&model.Track{}).
		Where("user_id = ? AND id IN ?", userID, candidates).
		Pluck("id", &owned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to filter owned tracks: %w", err)
	}

	ownedSet := make(map[int64]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	valid := make([]int64, 0, len(owned))
	seen := make(map[int64]bool, len(owned))
	for _, id := range candidates {
		if ownedSet[id] && !seen[id] {
			seen[id] = true
			valid = append(valid, id)
		}
	}
	return valid, nil
}

// attachAll inserts membership rows with positions 1..K.
func attachAll(tx *gorm.DB, playlistID int64, trackIDs []int64) error {
	for i, trackID := range trackIDs {
		row := model.PlaylistTrack{PlaylistID: playlistID, TrackID: trackID, Position: i + 1}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to attach track %d: %w", trackID, err)
		}
	}
	return nil
}

// syncMembers reconciles the membership set against the new ordered list:
// absentees are detached, keepers repositioned, newcomers attached.
func syncMembers(tx *gorm.DB, playlistID int64, trackIDs []int64) error {
	var current []model.PlaylistTrack
	if err := tx.Where("playlist_id = ?", playlistID).Find(&current).Error; err != nil {
		return fmt.Errorf("failed to load current members: %w", err)
	}
	existing := make(map[int64]bool, len(current))
	for _, row := range current {
		existing[row.TrackID] = true
	}

	wanted := make(map[int64]bool, len(trackIDs))
	for _, id := range trackIDs {
		wanted[id] = true
	}

	for _, row := range current {
		if !wanted[row.TrackID] {
			err := tx.Where("playlist_id = ? AND track_id = ?", playlistID, row.TrackID).
				Delete(&model.PlaylistTrack{}).Error
			if err != nil {
				return fmt.Errorf("failed to detach track %d: %w", row.TrackID, err)
			}
		}
	}

	for i, trackID := range trackIDs {
		if existing[trackID] {
			err := tx.Model(&model.PlaylistTrack{}).
				Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
				Update("position", i+1).Error
			if err != nil {
				return fmt.Errorf("failed to reposition track %d: %w", trackID, err)
			}
			continue
		}
		row := model.PlaylistTrack{PlaylistID: playlistID, TrackID: trackID, Position: i + 1}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to attach track %d: %w", trackID, err)
		}
	}
	return nil
}
