package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStageTracksAndRestore(t *testing.T) {
	root := t.TempDir()
	track := filepath.Join(root, "library", "song.mp3")
	writeFile(t, track, "bytes")

	m := New(root, "test-version", "duperscooper scan")
	manifest, err := m.StageTracks([]string{track})
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.ItemsDeleted)
	assert.Equal(t, 1, manifest.TracksDeleted)

	_, err = os.Stat(track)
	assert.True(t, os.IsNotExist(err))

	manifestPath := filepath.Join(root, StagingDirName, manifest.BatchID, "manifest.json")
	info, err := os.Stat(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())

	restored, err := m.Restore(manifest.BatchID)
	require.NoError(t, err)
	assert.Equal(t, manifest.BatchID, restored.BatchID)

	content, err := os.ReadFile(track)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(content))

	_, err = os.Stat(filepath.Join(root, StagingDirName, manifest.BatchID))
	assert.True(t, os.IsNotExist(err))
}

func TestStageAlbumRemovesEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	albumDir := filepath.Join(root, "library", "Album")
	track1 := filepath.Join(albumDir, "1.flac")
	track2 := filepath.Join(albumDir, "2.flac")
	writeFile(t, track1, "a")
	writeFile(t, track2, "b")

	m := New(root, "v", "cmd")
	manifest, err := m.StageAlbums(map[string][]string{albumDir: {track1, track2}})
	require.NoError(t, err)
	assert.Equal(t, 2, manifest.TracksDeleted)

	_, err = os.Stat(albumDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRestoreConflictAbortsWithoutMoving(t *testing.T) {
	root := t.TempDir()
	track := filepath.Join(root, "library", "song.mp3")
	writeFile(t, track, "original")

	m := New(root, "v", "cmd")
	manifest, err := m.StageTracks([]string{track})
	require.NoError(t, err)

	// Recreate a conflicting file at the original path.
	writeFile(t, track, "someone else wrote this")

	_, err = m.Restore(manifest.BatchID)
	require.ErrorIs(t, err, ErrRestoreConflict)

	// Batch directory must still be intact.
	_, statErr := os.Stat(filepath.Join(root, StagingDirName, manifest.BatchID, "manifest.json"))
	require.NoError(t, statErr)
}

func TestStageTracksPartialFailureStillWritesManifest(t *testing.T) {
	root := t.TempDir()
	ok := filepath.Join(root, "library", "ok.mp3")
	missing := filepath.Join(root, "library", "missing.mp3")
	writeFile(t, ok, "bytes")
	// missing is never created, so staging it fails at the fileSize stat.

	m := New(root, "v", "cmd")
	manifest, err := m.StageTracks([]string{ok, missing})
	require.Error(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, 1, manifest.ItemsDeleted)
	assert.Equal(t, 1, manifest.TracksDeleted)

	manifestPath := filepath.Join(root, StagingDirName, manifest.BatchID, "manifest.json")
	_, statErr := os.Stat(manifestPath)
	assert.NoError(t, statErr, "manifest must be written even after a partial failure, so the batch stays inspectable")

	batches, listErr := m.ListBatches()
	require.NoError(t, listErr)
	require.Len(t, batches, 1)
	assert.Equal(t, manifest.BatchID, batches[0].BatchID)
}

func TestListBatchesIgnoresDirectoryWithoutManifest(t *testing.T) {
	root := t.TempDir()
	track := filepath.Join(root, "library", "song.mp3")
	writeFile(t, track, "bytes")

	m := New(root, "v", "cmd")
	_, err := m.StageTracks([]string{track})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, StagingDirName, "not-a-batch"), 0o755))

	batches, err := m.ListBatches()
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestEmptyWithKeepLast(t *testing.T) {
	root := t.TempDir()
	m := New(root, "v", "cmd")

	var ids []string
	for i := 0; i < 3; i++ {
		track := filepath.Join(root, "library", filenameFor(i))
		writeFile(t, track, "x")
		manifest, err := m.StageTracks([]string{track})
		require.NoError(t, err)
		ids = append(ids, manifest.BatchID)
	}

	removed, err := m.Empty(EmptyFilter{KeepLastN: len(ids)})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	batches, err := m.ListBatches()
	require.NoError(t, err)
	assert.Len(t, batches, len(ids))
}

func filenameFor(i int) string {
	return "song" + string(rune('0'+i)) + ".mp3"
}
