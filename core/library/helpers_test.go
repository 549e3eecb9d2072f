package library

import (
	"fmt"
	"strings"
	"testing"

	"trackcrate/db"
	"trackcrate/model"

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
