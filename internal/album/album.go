// Package album implements the album scanner (C7): it walks a
// directory tree, treats every directory that directly contains at
// least one recognised audio file as one Album, and aggregates its
// tracks' tags, fingerprints, and quality into a single record.
package album

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/yookoala/realpath"

	"duperscooper/internal/config"
	"duperscooper/internal/hasher"
	"duperscooper/internal/probe"
	"duperscooper/internal/quality"
)

// MBIDStatus is the three-way outcome of aggregating MusicBrainz album
// IDs across an album's tracks: either they agree on one ID, none of
// them carry one, or they disagree (mixed).
type MBIDStatus int

const (
	// MBIDAbsent means no track in the album carries a MusicBrainz
	// album ID.
	MBIDAbsent MBIDStatus = iota
	// MBIDConsistent means every tagged track agrees on one ID.
	MBIDConsistent
	// MBIDMixed means at least two tracks carry different IDs.
	MBIDMixed
)

// TrackRecord is one file within an Album: its path, content hash,
// fingerprint, tags, and codec info.
type TrackRecord struct {
	Path            string
	FileHash        string
	Fingerprint     []uint32
	DurationSeconds int
	Tags            probe.Tags
	Codec           quality.CodecInfo
	QualityScore    float64
}

// Album is a directory holding one or more audio files treated as a
// single duplicate-detection unit.
type Album struct {
	Path       string
	Tracks     []TrackRecord // sorted by filename
	TrackCount int
	TotalBytes int64

	MBIDStatus  MBIDStatus
	MusicBrainz string // non-empty only when MBIDStatus == MBIDConsistent

	AlbumName  string // from the first track's tags
	ArtistName string

	AverageQualityScore float64
	QualitySummary      string
}

// Scanner walks directory roots and builds Albums from them.
type Scanner struct {
	Hasher *hasher.Hasher
	Probe  *probe.Probe
	Config *config.Config
}

// New returns a Scanner wired to the given hasher and probe.
func New(h *hasher.Hasher, p *probe.Probe, cfg *config.Config) *Scanner {
	return &Scanner{Hasher: h, Probe: p, Config: cfg}
}

// Scan walks roots and returns one Album per directory that directly
// contains at least one recognised audio file. Directories are
// deduplicated by their resolved real path so that symlink cycles or
// aliased mounts are not scanned twice.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]Album, error) {
	seen := make(map[string]bool)
	var albums []Album

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}

			real, rerr := realpath.Realpath(path)
			if rerr != nil {
				real = path
			}
			if seen[real] {
				return fs.SkipDir
			}
			seen[real] = true

			audioFiles, ferr := collectAudioFiles(path, s.Config.MinSizeBytes)
			if ferr != nil {
				return ferr
			}
			if len(audioFiles) == 0 {
				return nil
			}

			a, aerr := s.buildAlbum(ctx, path, audioFiles)
			if aerr != nil {
				return aerr
			}
			albums = append(albums, a)
			return nil
		})
		if err != nil {
			return albums, fmt.Errorf("album: walking %s: %w", root, err)
		}
	}

	return albums, nil
}

// collectAudioFiles lists the recognised audio files directly within
// dir, skipping anything smaller than minSizeBytes (the cheap
// pre-filter that avoids fingerprinting files too small to matter).
func collectAudioFiles(dir string, minSizeBytes int64) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("album: reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := extOf(e.Name())
		if !config.AudioExtensions[ext] {
			continue
		}
		if minSizeBytes > 0 {
			if info, ierr := e.Info(); ierr == nil && info.Size() < minSizeBytes {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func extOf(name string) string {
	ext := filepath.Ext(name)
	if len(ext) > 0 {
		ext = ext[1:]
	}
	return lower(ext)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (s *Scanner) buildAlbum(ctx context.Context, dir string, files []string) (Album, error) {
	a := Album{Path: dir, TrackCount: len(files)}

	mbids := make(map[string]bool)
	var qualitySum float64

	for _, f := range files {
		tr, err := s.buildTrack(ctx, f)
		if err != nil {
			// A single unreadable track degrades to an empty record rather
			// than aborting the whole album, matching the probe/extractor's
			// own non-fatal-failure policy.
			tr = TrackRecord{Path: f}
		}
		a.Tracks = append(a.Tracks, tr)

		if info, statErr := os.Stat(f); statErr == nil {
			a.TotalBytes += info.Size()
		}
		if tr.Tags.MusicBrainzAlbumID != "" {
			mbids[tr.Tags.MusicBrainzAlbumID] = true
		}
		qualitySum += tr.QualityScore
	}

	sort.Slice(a.Tracks, func(i, j int) bool {
		return a.Tracks[i].Path < a.Tracks[j].Path
	})

	switch len(mbids) {
	case 0:
		a.MBIDStatus = MBIDAbsent
	case 1:
		a.MBIDStatus = MBIDConsistent
		for id := range mbids {
			a.MusicBrainz = id
		}
	default:
		a.MBIDStatus = MBIDMixed
	}

	if len(a.Tracks) > 0 {
		a.AlbumName = a.Tracks[0].Tags.Album
		a.ArtistName = a.Tracks[0].Tags.Artist
		a.AverageQualityScore = qualitySum / float64(len(a.Tracks))
		a.QualitySummary = quality.DisplayString(a.Tracks[0].Codec)
	}

	return a, nil
}

func (s *Scanner) buildTrack(ctx context.Context, path string) (TrackRecord, error) {
	fp, err := s.Hasher.Hash(ctx, path)
	if err != nil {
		return TrackRecord{}, err
	}

	tags, err := s.Probe.Fetch(ctx, path)
	if err != nil {
		tags = probe.Tags{}
	}

	codec, err := quality.Extract(path)
	if err != nil {
		codec = quality.CodecInfo{}
	}

	return TrackRecord{
		Path:            path,
		FileHash:        fp.FileHash,
		Fingerprint:     fp.Vector,
		DurationSeconds: fp.DurationSeconds,
		Tags:            tags,
		Codec:           codec,
		QualityScore:    quality.Score(codec),
	}, nil
}
