package library

import (
	"context"
	"testing"

	"trackcrate/core/playlist"
	"trackcrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteTrackCleansUpAndRenumbers(t *testing.T) {
	gdb := openTestDB(t)
	relations := NewRelationManager(gdb)
	engine := playlist.NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")
	t3 := seedTrack(t, gdb, owner, "sp3")

	created, err := engine.Create(ctx, owner, playlist.Input{
		Name:     "mix",
		TrackIDs: []int64{t1, t2, t3},
	})
	require.NoError(t, err)
	require.NoError(t, relations.Add(ctx, owner, t1, t2))

	require.NoError(t, DeleteTrack(ctx, gdb, owner, t2))

	var tracks int64
	require.NoError(t, gdb.Model(&model.Track{}).Where("id = ?", t2).Count(&tracks).Error)
	assert.Zero(t, tracks)

	var edges int64
	require.NoError(t, gdb.Model(&model.RelatedTrack{}).
		Where("track_id = ? OR related_track_id = ?", t2, t2).
		Count(&edges).Error)
	assert.Zero(t, edges)

	// Remaining members are renumbered densely with order preserved.
	var rows []model.PlaylistTrack
	require.NoError(t, gdb.Where("playlist_id = ?", created.ID).Order("position").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, t1, rows[0].TrackID)
	assert.Equal(t, 1, rows[0].Position)
	assert.Equal(t, t3, rows[1].TrackID)
	assert.Equal(t, 2, rows[1].Position)
}

func TestDeleteTrackRejectsForeignTrack(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	other := seedUser(t, gdb, "other")
	foreign := seedTrack(t, gdb, other, "spF")

	err := DeleteTrack(ctx, gdb, owner, foreign)
	assert.ErrorIs(t, err, ErrTrackNotFound)

	var tracks int64
	require.NoError(t, gdb.Model(&model.Track{}).Where("id = ?", foreign).Count(&tracks).Error)
	assert.Equal(t, int64(1), tracks)
}
