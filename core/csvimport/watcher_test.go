package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trackcrate/model"

	"github.com/stretchr/testify/require"
)

func writeDropFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	// Write elsewhere first so the watcher sees a complete file on create.
	tmp := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(tmp, content, 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestWatcherReconcilesDroppedFiles(t *testing.T) {
	gdb := openTestDB(t)

	first := seedLibraryTrack(t, gdb, 1, "sp1")
	second := seedLibraryTrack(t, gdb, 1, "sp2")

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := NewWatcher(NewReconciler(gdb), dir, 1)
	require.NoError(t, watcher.Start(ctx))

	one := buildCSV(t, [][]string{
		analysisRow(map[int]string{colSpotifyID: "sp1", colBPM: "120"}),
	})
	two := buildCSV(t, [][]string{
		analysisRow(map[int]string{colSpotifyID: "sp2", colBPM: "130"}),
	})
	writeDropFile(t, dir, "one.csv", one.Bytes())
	writeDropFile(t, dir, "two.csv", two.Bytes())

	bpm := func(id int64) *int {
		var track model.Track
		require.NoError(t, gdb.First(&track, id).Error)
		return track.BPM
	}

	require.Eventually(t, func() bool {
		a, b := bpm(first), bpm(second)
		return a != nil && *a == 120 && b != nil && *b == 130
	}, 10*time.Second, 100*time.Millisecond)
}

func TestWatcherIgnoresNonCSVFiles(t *testing.T) {
	gdb := openTestDB(t)

	trackID := seedLibraryTrack(t, gdb, 1, "sp1")

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := NewWatcher(NewReconciler(gdb), dir, 1)
	require.NoError(t, watcher.Start(ctx))

	content := buildCSV(t, [][]string{
		analysisRow(map[int]string{colSpotifyID: "sp1", colBPM: "120"}),
	})
	writeDropFile(t, dir, "notes.txt", content.Bytes())

	time.Sleep(1 * time.Second)

	var track model.Track
	require.NoError(t, gdb.First(&track, trackID).Error)
	require.Nil(t, track.BPM)
}
