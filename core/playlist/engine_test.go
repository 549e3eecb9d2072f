package playlist

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"trackcrate/db"
	"trackcrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, username string) int64 {
	t.Helper()
	user := model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	return user.ID
}

func seedTrack(t *testing.T, gdb *gorm.DB, userID int64, spotifyID string) int64 {
	t.Helper()
	track := model.Track{
		UserID:     userID,
		SpotifyID:  spotifyID,
		Name:       "track " + spotifyID,
		SpotifyURL: "https://open.spotify.com/track/" + spotifyID,
	}
	require.NoError(t, gdb.Create(&track).Error)
	return track.ID
}

// positions returns trackID->position plus the ordered track ids.
func positions(t *testing.T, gdb *gorm.DB, playlistID int64) (map[int64]int, []int64) {
	t.Helper()
	var rows []model.PlaylistTrack
	require.NoError(t, gdb.Where("playlist_id = ?", playlistID).Order("position").Find(&rows).Error)

	byTrack := make(map[int64]int, len(rows))
	order := make([]int64, 0, len(rows))
	for _, row := range rows {
		byTrack[row.TrackID] = row.Position
		order = append(order, row.TrackID)
	}
	return byTrack, order
}

func assertDense(t *testing.T, gdb *gorm.DB, playlistID int64) {
	t.Helper()
	var rows []model.PlaylistTrack
	require.NoError(t, gdb.Where("playlist_id = ?", playlistID).Order("position").Find(&rows).Error)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Position, "position %d of playlist %d is not dense", i, playlistID)
	}
}

func TestCreateFiltersUnownedTracks(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	other := seedUser(t, gdb, "other")

	t5 := seedTrack(t, gdb, owner, "sp5")
	t7 := seedTrack(t, gdb, owner, "sp7")
	foreign := seedTrack(t, gdb, other, "sp-foreign")

	// Candidate list holds two owned tracks, a foreign one and an unknown id.
	created, err := engine.Create(ctx, owner, Input{
		Name:     "mix",
		TrackIDs: []int64{t5, t7, foreign, 99999},
	})
	require.NoError(t, err)

	byTrack, order := positions(t, gdb, created.ID)
	assert.Equal(t, []int64{t5, t7}, order)
	assert.Equal(t, 1, byTrack[t5])
	assert.Equal(t, 2, byTrack[t7])
	assertDense(t, gdb, created.ID)
}

func TestAddTrackAppendsAtEnd(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")
	t3 := seedTrack(t, gdb, owner, "sp3")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1, t2}})
	require.NoError(t, err)

	require.NoError(t, engine.AddTrack(ctx, owner, created.ID, t3))

	byTrack, _ := positions(t, gdb, created.ID)
	assert.Equal(t, 3, byTrack[t3])
	assertDense(t, gdb, created.ID)
}

func TestAddTrackRejectsDuplicateMember(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1}})
	require.NoError(t, err)

	err = engine.AddTrack(ctx, owner, created.ID, t1)
	assert.ErrorIs(t, err, ErrAlreadyInPlaylist)
}

func TestAddTrackRejectsForeignTrack(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	other := seedUser(t, gdb, "other")
	foreign := seedTrack(t, gdb, other, "sp-foreign")

	created, err := engine.Create(ctx, owner, Input{Name: "mix"})
	require.NoError(t, err)

	err = engine.AddTrack(ctx, owner, created.ID, foreign)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestRemoveTrackRenumbersDensely(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")
	t3 := seedTrack(t, gdb, owner, "sp3")
	t4 := seedTrack(t, gdb, owner, "sp4")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1, t2, t3, t4}})
	require.NoError(t, err)

	// Removing from the middle closes the gap and keeps relative order.
	require.NoError(t, engine.RemoveTrack(ctx, owner, created.ID, t2))

	byTrack, order := positions(t, gdb, created.ID)
	assert.Equal(t, []int64{t1, t3, t4}, order)
	assert.Equal(t, 1, byTrack[t1])
	assert.Equal(t, 2, byTrack[t3])
	assert.Equal(t, 3, byTrack[t4])
	assertDense(t, gdb, created.ID)
}

func TestRemoveTrackNotMember(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1}})
	require.NoError(t, err)

	err = engine.RemoveTrack(ctx, owner, created.ID, t2)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestUpdateReplacesMembership(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")
	t3 := seedTrack(t, gdb, owner, "sp3")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1, t2}})
	require.NoError(t, err)

	// New list drops t1, reorders t2 and introduces t3.
	updated, err := engine.Update(ctx, owner, created.ID, Input{
		Name:     "renamed",
		TrackIDs: []int64{t3, t2},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	byTrack, order := positions(t, gdb, created.ID)
	assert.Equal(t, []int64{t3, t2}, order)
	assert.Equal(t, 1, byTrack[t3])
	assert.Equal(t, 2, byTrack[t2])
	assertDense(t, gdb, created.ID)
}

func TestUpdateWithEmptyListDetachesAll(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1, t2}})
	require.NoError(t, err)

	_, err = engine.Update(ctx, owner, created.ID, Input{Name: "mix"})
	require.NoError(t, err)

	_, order := positions(t, gdb, created.ID)
	assert.Empty(t, order)
}

func TestGetReturnsMembersInOrder(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")
	t3 := seedTrack(t, gdb, owner, "sp3")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t2, t3, t1}})
	require.NoError(t, err)

	detail, err := engine.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tracks, 3)
	assert.Equal(t, t2, detail.Tracks[0].ID)
	assert.Equal(t, t3, detail.Tracks[1].ID)
	assert.Equal(t, t1, detail.Tracks[2].ID)
	for i, entry := range detail.Tracks {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestGetForeignPlaylist(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	other := seedUser(t, gdb, "other")

	created, err := engine.Create(ctx, owner, Input{Name: "mix"})
	require.NoError(t, err)

	_, err = engine.Get(ctx, other, created.ID)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestListReportsTrackCounts(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")
	t2 := seedTrack(t, gdb, owner, "sp2")

	_, err := engine.Create(ctx, owner, Input{Name: "full", TrackIDs: []int64{t1, t2}})
	require.NoError(t, err)
	_, err = engine.Create(ctx, owner, Input{Name: "empty"})
	require.NoError(t, err)

	summaries, err := engine.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	counts := make(map[string]int64, 2)
	for _, s := range summaries {
		counts[s.Name] = s.TrackCount
	}
	assert.Equal(t, int64(2), counts["full"])
	assert.Equal(t, int64(0), counts["empty"])
}

func TestDeleteRemovesMembershipRows(t *testing.T) {
	gdb := openTestDB(t)
	engine := NewEngine(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	t1 := seedTrack(t, gdb, owner, "sp1")

	created, err := engine.Create(ctx, owner, Input{Name: "mix", TrackIDs: []int64{t1}})
	require.NoError(t, err)

	require.NoError(t, engine.Delete(ctx, owner, created.ID))

	var rows int64
	require.NoError(t, gdb.Model(&model.PlaylistTrack{}).Where("playlist_id = ?", created.ID).Count(&rows).Error)
	assert.Zero(t, rows)

	_, err = engine.Get(ctx, owner, created.ID)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}
