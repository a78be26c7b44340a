// Package staging implements the staging manager (C11): the
// reversible deletion mechanism. Condemned files are moved into a
// per-batch holding directory rather than removed outright, with a
// manifest sufficient to restore them, and the manifest is made
// read-only the instant it is written.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// StagingDirName is the fixed name of the holding directory created at
// the parent of the scan root.
const StagingDirName = ".deletedByDuperscooper"

// manifestName is fixed so list/restore can find it without searching.
const manifestName = "manifest.json"

// ItemType distinguishes a single staged track from a staged album
// (a directory's worth of tracks moved together).
type ItemType string

const (
	ItemTrack ItemType = "track"
	ItemAlbum ItemType = "album"
)

// TrackRef is one track's record within a staged item: enough to move
// it back to its exact original location.
type TrackRef struct {
	OriginalPath string `json:"original_path"`
	StagedName   string `json:"staged_name"`
	Bytes        int64  `json:"bytes"`
}

// StagedItem is one deletion target within a batch: either a single
// track or an entire album directory.
type StagedItem struct {
	Type         ItemType   `json:"type"`
	OriginalPath string     `json:"original_path"` // file path or album directory
	Tracks       []TrackRef `json:"tracks"`
}

// Manifest is the immutable record of one deletion invocation, written
// once to manifest.json and then marked read-only.
type Manifest struct {
	BatchID        string       `json:"batch_id"`
	Timestamp      string       `json:"timestamp"`
	ToolVersion    string       `json:"tool_version"`
	Command        string       `json:"command"`
	Items          []StagedItem `json:"items"`
	ItemsDeleted   int          `json:"items_deleted"`
	TracksDeleted  int          `json:"tracks_deleted"`
	BytesFreed     int64        `json:"bytes_freed"`
}

// ErrRestoreConflict means the restore target already exists; the
// restore is aborted before moving anything.
var ErrRestoreConflict = errors.New("staging: restore target already occupied")

// ErrStagingConflict means a staging destination collided or the
// filesystem refused the move.
var ErrStagingConflict = errors.New("staging: destination occupied or move refused")

// ErrNotABatch means the directory has no manifest and is therefore
// not a finalised batch (e.g. one interrupted mid-populate).
var ErrNotABatch = errors.New("staging: directory has no manifest")

// Manager stages deletions under baseDir/StagingDirName and restores
// or empties them later.
type Manager struct {
	BaseDir     string // parent of the scan root
	ToolVersion string
	Command     string
}

// New returns a Manager whose staging area is baseDir/.deletedByDuperscooper.
func New(baseDir, toolVersion, command string) *Manager {
	return &Manager{BaseDir: baseDir, ToolVersion: toolVersion, Command: command}
}

func (m *Manager) stagingRoot() string {
	return filepath.Join(m.BaseDir, StagingDirName)
}

// StageTracks moves the given individual track files into a new
// batch and returns the finalised manifest. If a move fails partway
// through, the items already moved are left in staging (not rolled
// back) and the manifest is still written for them, so the partial
// batch remains inspectable and restorable; the staging error is
// returned alongside that manifest rather than discarding it.
func (m *Manager) StageTracks(paths []string) (*Manifest, error) {
	batchDir, batchID, err := m.newBatchDir()
	if err != nil {
		return nil, err
	}

	var items []StagedItem
	var tracksDeleted int
	var bytesFreed int64
	var moveErr error

	for i, path := range paths {
		size, serr := fileSize(path)
		if serr != nil {
			moveErr = serr
			break
		}
		stagedName := stagedFileName(i, path)
		if merr := moveFile(path, filepath.Join(batchDir, stagedName)); merr != nil {
			moveErr = fmt.Errorf("%w: %v", ErrStagingConflict, merr)
			break
		}
		items = append(items, StagedItem{
			Type:         ItemTrack,
			OriginalPath: path,
			Tracks:       []TrackRef{{OriginalPath: path, StagedName: stagedName, Bytes: size}},
		})
		tracksDeleted++
		bytesFreed += size
	}

	manifest := &Manifest{
		BatchID:       batchID,
		Timestamp:     batchID,
		ToolVersion:   m.ToolVersion,
		Command:       m.Command,
		Items:         items,
		ItemsDeleted:  len(items),
		TracksDeleted: tracksDeleted,
		BytesFreed:    bytesFreed,
	}
	if err := writeManifest(batchDir, manifest); err != nil {
		return manifest, err
	}
	if moveErr != nil {
		return manifest, moveErr
	}
	return manifest, nil
}

// StageAlbums moves every track of each given album directory into a
// new batch, removing each original directory if it becomes empty. As
// with StageTracks, a move failure partway through still results in a
// written manifest covering everything moved so far, so the partial
// batch remains inspectable and restorable rather than vanishing.
func (m *Manager) StageAlbums(albumDirs map[string][]string) (*Manifest, error) {
	batchDir, batchID, err := m.newBatchDir()
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(albumDirs))
	for d := range albumDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var items []StagedItem
	var tracksDeleted int
	var bytesFreed int64
	var moveErr error

	for _, dir := range dirs {
		tracks := albumDirs[dir]
		var refs []TrackRef
		for i, path := range tracks {
			size, serr := fileSize(path)
			if serr != nil {
				moveErr = serr
				break
			}
			stagedName := stagedFileName(i, path)
			if merr := moveFile(path, filepath.Join(batchDir, stagedName)); merr != nil {
				moveErr = fmt.Errorf("%w: %v", ErrStagingConflict, merr)
				break
			}
			refs = append(refs, TrackRef{OriginalPath: path, StagedName: stagedName, Bytes: size})
			bytesFreed += size
		}
		if moveErr == nil || len(refs) > 0 {
			tracksDeleted += len(refs)
			items = append(items, StagedItem{Type: ItemAlbum, OriginalPath: dir, Tracks: refs})
		}
		if moveErr != nil {
			break
		}

		removeDirIfEmpty(dir)
	}

	manifest := &Manifest{
		BatchID:       batchID,
		Timestamp:     batchID,
		ToolVersion:   m.ToolVersion,
		Command:       m.Command,
		Items:         items,
		ItemsDeleted:  len(items),
		TracksDeleted: tracksDeleted,
		BytesFreed:    bytesFreed,
	}
	if err := writeManifest(batchDir, manifest); err != nil {
		return manifest, err
	}
	if moveErr != nil {
		return manifest, moveErr
	}
	return manifest, nil
}

// newBatchDir creates the batch directory named by local ISO
// timestamp. Two deletion invocations within the same second are rare
// but possible; a numeric suffix disambiguates rather than colliding
// with an already-finalised (read-only) batch.
func (m *Manager) newBatchDir() (dir string, batchID string, err error) {
	base := time.Now().Format("2006-01-02_15-04-05")
	batchID = base
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			batchID = fmt.Sprintf("%s-%d", base, attempt)
		}
		dir = filepath.Join(m.stagingRoot(), batchID)
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", fmt.Errorf("staging: creating batch directory: %w", err)
			}
			return dir, batchID, nil
		}
	}
}

func stagedFileName(trackIndex int, originalPath string) string {
	prefix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, trackIndex, filepath.Base(originalPath))
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("staging: stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// moveFile renames src to dst, falling back to a copy+remove only
// when the rename fails across a filesystem boundary (EXDEV) — a
// silent slow copy is never taken for a same-filesystem move.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && linkErr.Err == syscall.EXDEV {
		return copyThenRemove(src, dst)
	}
	return err
}

func copyThenRemove(src, dst string) error {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".staging-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, sf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Remove(src)
}

func removeDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}

func writeManifest(batchDir string, manifest *Manifest) error {
	path := filepath.Join(batchDir, manifestName)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("staging: encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("staging: writing manifest: %w", err)
	}
	// Finalise: populating -> finalised. The manifest is read-only from
	// here on; restoration consumes it exactly once.
	if err := os.Chmod(path, 0o444); err != nil {
		return fmt.Errorf("staging: marking manifest read-only: %w", err)
	}
	return nil
}

// Restore reads the manifest for batchID and moves every staged file
// back to its original location, removing the batch directory on
// success. If any original path is already occupied, the whole
// restore fails without moving anything.
func (m *Manager) Restore(batchID string) (*Manifest, error) {
	batchDir := filepath.Join(m.stagingRoot(), batchID)
	manifest, err := readManifest(batchDir)
	if err != nil {
		return nil, err
	}

	for _, item := range manifest.Items {
		for _, t := range item.Tracks {
			if _, err := os.Stat(t.OriginalPath); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrRestoreConflict, t.OriginalPath)
			}
		}
	}

	for _, item := range manifest.Items {
		if item.Type == ItemAlbum {
			if err := os.MkdirAll(item.OriginalPath, 0o755); err != nil {
				return nil, fmt.Errorf("staging: recreating %s: %w", item.OriginalPath, err)
			}
		}
		for _, t := range item.Tracks {
			staged := filepath.Join(batchDir, t.StagedName)
			if err := moveFile(staged, t.OriginalPath); err != nil {
				return nil, fmt.Errorf("staging: restoring %s: %w", t.OriginalPath, err)
			}
		}
	}

	if err := os.RemoveAll(batchDir); err != nil {
		return manifest, fmt.Errorf("staging: removing batch directory: %w", err)
	}
	return manifest, nil
}

func readManifest(batchDir string) (*Manifest, error) {
	path := filepath.Join(batchDir, manifestName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotABatch
	}
	if err != nil {
		return nil, fmt.Errorf("staging: reading manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("staging: parsing manifest: %w", err)
	}
	return &manifest, nil
}

// ListBatches returns the manifests of every finalised batch under the
// staging root, sorted by batch id (which is timestamp-ordered).
// Directories without a manifest are ignored: no manifest means no
// finalised batch, per the populating -> finalised transition.
func (m *Manager) ListBatches() ([]*Manifest, error) {
	entries, err := os.ReadDir(m.stagingRoot())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staging: listing batches: %w", err)
	}

	var manifests []*Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifest, err := readManifest(filepath.Join(m.stagingRoot(), e.Name()))
		if errors.Is(err, ErrNotABatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, manifest)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].BatchID < manifests[j].BatchID })
	return manifests, nil
}

// EmptyFilter composes the removal criteria for Empty: a batch is
// removed only if it satisfies every filter that is set.
type EmptyFilter struct {
	OlderThanDays int  // 0 means no age filter
	KeepLastN     int  // 0 means no retention filter
}

// Empty permanently removes batches matching filter, returning the
// count removed. older_than_days and keep_last compose: when both are
// set, a batch is removed only if it passes both.
func (m *Manager) Empty(filter EmptyFilter) (int, error) {
	manifests, err := m.ListBatches()
	if err != nil {
		return 0, err
	}

	toKeep := make(map[string]bool)
	if filter.KeepLastN > 0 {
		n := filter.KeepLastN
		if n > len(manifests) {
			n = len(manifests)
		}
		for _, mf := range manifests[len(manifests)-n:] {
			toKeep[mf.BatchID] = true
		}
	}

	cutoff := time.Now().AddDate(0, 0, -filter.OlderThanDays)
	removed := 0
	for _, mf := range manifests {
		if toKeep[mf.BatchID] {
			continue
		}
		if filter.OlderThanDays > 0 {
			const layout = "2006-01-02_15-04-05"
			stamp := mf.BatchID
			if len(stamp) > len(layout) {
				stamp = stamp[:len(layout)] // drop a same-second "-N" suffix
			}
			ts, err := time.ParseInLocation(layout, stamp, time.Local)
			if err == nil && ts.After(cutoff) {
				continue
			}
		}
		if err := os.RemoveAll(filepath.Join(m.stagingRoot(), mf.BatchID)); err != nil {
			return removed, fmt.Errorf("staging: removing batch %s: %w", mf.BatchID, err)
		}
		removed++
	}
	return removed, nil
}
