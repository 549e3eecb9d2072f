package library

import (
	"context"
	"testing"

	"trackcrate/core/spotify"
	"trackcrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(spotifyID string) *spotify.TrackData {
	preview := "https://p.scdn.co/mp3-preview/" + spotifyID
	return &spotify.TrackData{
		SpotifyID:   spotifyID,
		Name:        "Song " + spotifyID,
		ArtistNames: []string{"Artist One", "Artist Two"},
		ArtistData: []spotify.ArtistData{
			{Name: "Artist One", SpotifyID: "artist1"},
			{Name: "Artist Two", SpotifyID: "artist2"},
		},
		AlbumName: "Album X",
		AlbumData: &spotify.AlbumData{
			Name:        "Album X",
			SpotifyID:   "album1",
			AlbumArtURL: "https://i.scdn.co/image/art",
		},
		AlbumArtURL: "https://i.scdn.co/image/art",
		DurationMS:  215000,
		SpotifyURL:  "https://open.spotify.com/track/" + spotifyID,
		PreviewURL:  &preview,
	}
}

func TestImportMaterializesTrackWithEntities(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	track, err := materializer.Import(ctx, owner, sampleData("sp1"))
	require.NoError(t, err)
	assert.Equal(t, "sp1", track.SpotifyID)
	assert.Equal(t, model.StringList{"Artist One", "Artist Two"}, track.Artists)
	assert.Equal(t, "Album X", track.Album)
	require.NotNil(t, track.DurationMS)
	assert.Equal(t, 215000, *track.DurationMS)
	require.NotNil(t, track.AlbumID)

	var album model.Album
	require.NoError(t, gdb.First(&album, *track.AlbumID).Error)
	assert.Equal(t, "album1", album.SpotifyID)

	var links int64
	require.NoError(t, gdb.Model(&model.TrackArtist{}).Where("track_id = ?", track.ID).Count(&links).Error)
	assert.Equal(t, int64(2), links)
}

func TestImportRejectsDuplicateSpotifyID(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	_, err := materializer.Import(ctx, owner, sampleData("sp1"))
	require.NoError(t, err)

	_, err = materializer.Import(ctx, owner, sampleData("sp1"))
	assert.ErrorIs(t, err, ErrAlreadyImported)
}

func TestImportSameTrackForDifferentUsers(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	first := seedUser(t, gdb, "first")
	second := seedUser(t, gdb, "second")

	a, err := materializer.Import(ctx, first, sampleData("sp1"))
	require.NoError(t, err)
	b, err := materializer.Import(ctx, second, sampleData("sp1"))
	require.NoError(t, err)

	// Each user gets their own row, both pointing at the shared album.
	assert.NotEqual(t, a.ID, b.ID)
	require.NotNil(t, a.AlbumID)
	require.NotNil(t, b.AlbumID)
	assert.Equal(t, *a.AlbumID, *b.AlbumID)

	var albums int64
	require.NoError(t, gdb.Model(&model.Album{}).Count(&albums).Error)
	assert.Equal(t, int64(1), albums)
}

func TestResolveReusesExistingTrack(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	imported, err := materializer.Import(ctx, owner, sampleData("sp1"))
	require.NoError(t, err)

	resolved, err := materializer.Resolve(ctx, owner, sampleData("sp1"))
	require.NoError(t, err)
	assert.Equal(t, imported.ID, resolved.ID)

	var tracks int64
	require.NoError(t, gdb.Model(&model.Track{}).Where("user_id = ?", owner).Count(&tracks).Error)
	assert.Equal(t, int64(1), tracks)
}

func TestResolveMaterializesWhenAbsent(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	resolved, err := materializer.Resolve(ctx, owner, sampleData("sp2"))
	require.NoError(t, err)
	assert.NotZero(t, resolved.ID)
	assert.Equal(t, "sp2", resolved.SpotifyID)
}

func TestImportSharedArtistsAreReused(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	_, err := materializer.Import(ctx, owner, sampleData("sp1"))
	require.NoError(t, err)
	_, err = materializer.Import(ctx, owner, sampleData("sp2"))
	require.NoError(t, err)

	var artists int64
	require.NoError(t, gdb.Model(&model.Artist{}).Count(&artists).Error)
	assert.Equal(t, int64(2), artists)
}

func TestImportWithoutAlbum(t *testing.T) {
	gdb := openTestDB(t)
	materializer := NewMaterializer(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")

	data := sampleData("sp1")
	data.AlbumName = ""
	data.AlbumData = nil

	track, err := materializer.Import(ctx, owner, data)
	require.NoError(t, err)
	assert.Nil(t, track.AlbumID)
	assert.Empty(t, track.Album)
}
