package albumcluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duperscooper/internal/album"
)

func track(path string, fp []uint32, score float64) album.TrackRecord {
	return album.TrackRecord{Path: path, Fingerprint: fp, QualityScore: score}
}

func defaultOpts() Options {
	return Options{
		SimilarityThreshold: 98.0,
		MinOverlapPercent:   70.0,
		PartialOverlapOn:    true,
		MinFingerprintElems: 1,
	}
}

func TestClusterMusicBrainzFastPath(t *testing.T) {
	albums := []album.Album{
		{
			Path:                "/a",
			MBIDStatus:          album.MBIDConsistent,
			MusicBrainz:         "mbid-1",
			Tracks:              []album.TrackRecord{track("/a/1.flac", []uint32{0}, 10010)},
			TrackCount:          1,
			AverageQualityScore: 10010,
		},
		{
			Path:                "/b",
			MBIDStatus:          album.MBIDConsistent,
			MusicBrainz:         "mbid-1",
			Tracks:              []album.TrackRecord{track("/b/1.mp3", []uint32{0xffffffff}, 128)},
			TrackCount:          1,
			AverageQualityScore: 128,
		},
	}

	groups := Cluster(albums, defaultOpts())
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 2)
	for _, m := range groups[0].Members {
		assert.Equal(t, MatchMusicBrainz, m.MatchMethod)
		assert.Equal(t, 100.0, m.MatchPercentage)
	}
}

func TestClusterFingerprintEqualLength(t *testing.T) {
	albums := []album.Album{
		{
			Path:                "/a",
			Tracks:              []album.TrackRecord{track("/a/1.flac", []uint32{0, 0}, 10010), track("/a/2.flac", []uint32{0, 0}, 10010)},
			TrackCount:          2,
			AverageQualityScore: 10010,
		},
		{
			Path:                "/b",
			Tracks:              []album.TrackRecord{track("/b/1.mp3", []uint32{0, 0}, 192), track("/b/2.mp3", []uint32{0, 0}, 192)},
			TrackCount:          2,
			AverageQualityScore: 192,
		},
	}

	groups := Cluster(albums, defaultOpts())
	require.Len(t, groups, 1)
	for _, m := range groups[0].Members {
		assert.Equal(t, MatchFingerprint, m.MatchMethod)
		assert.False(t, m.IsPartialMatch)
		assert.InDelta(t, 100.0, m.MatchPercentage, 0.001)
	}
}

func TestClusterPartialOverlap(t *testing.T) {
	shared := []uint32{0, 0}
	albumA := album.Album{
		Path: "/a",
		Tracks: []album.TrackRecord{
			track("/a/1.flac", shared, 10010),
			track("/a/2.flac", shared, 10010),
			track("/a/3.flac", []uint32{1, 1}, 10010),
			track("/a/4.flac", []uint32{2, 2}, 10010),
			track("/a/5.flac", []uint32{3, 3}, 10010),
			track("/a/6.flac", []uint32{4, 4}, 10010),
			track("/a/7.flac", []uint32{5, 5}, 10010),
			track("/a/8.flac", []uint32{6, 6}, 10010),
			track("/a/9.flac", []uint32{7, 7}, 10010),
			track("/a/10.flac", []uint32{8, 8}, 10010),
		},
		TrackCount:          10,
		AverageQualityScore: 10010,
	}
	albumB := album.Album{
		Path: "/b",
		Tracks: []album.TrackRecord{
			track("/b/1.mp3", shared, 192),
			track("/b/2.mp3", shared, 192),
			track("/b/bonus1.mp3", []uint32{0xaaaaaaaa, 0}, 192),
			track("/b/bonus2.mp3", []uint32{0xbbbbbbbb, 0}, 192),
			track("/b/bonus3.mp3", []uint32{0xcccccccc, 0}, 192),
		},
		TrackCount:          5,
		AverageQualityScore: 192,
	}

	// Only the 2 shared-fingerprint tracks clear the per-track threshold,
	// so the greedy matcher matches 2 of B's 5 tracks: overlap = 40%.
	// MinOverlapPercent must be at or below that for this pair to cluster.
	opt := defaultOpts()
	opt.MinOverlapPercent = 40.0
	groups := Cluster([]album.Album{albumA, albumB}, opt)
	require.Len(t, groups, 1)

	for _, m := range groups[0].Members {
		if !m.IsBest {
			assert.True(t, m.IsPartialMatch)
			assert.InDelta(t, 40.0, m.OverlapPercentage, 0.001)
			assert.InDelta(t, 100.0, m.MatchPercentage, 0.001)
		}
	}
}

func TestClusterPartialOverlapRejectedBelowMinOverlap(t *testing.T) {
	shared := []uint32{0, 0}
	albumA := album.Album{
		Path: "/a",
		Tracks: []album.TrackRecord{
			track("/a/1.flac", shared, 10010),
			track("/a/2.flac", []uint32{1, 1}, 10010),
			track("/a/3.flac", []uint32{2, 2}, 10010),
			track("/a/4.flac", []uint32{3, 3}, 10010),
			track("/a/5.flac", []uint32{4, 4}, 10010),
			track("/a/6.flac", []uint32{5, 5}, 10010),
		},
		TrackCount:          6,
		AverageQualityScore: 10010,
	}
	albumB := album.Album{
		Path: "/b",
		Tracks: []album.TrackRecord{
			track("/b/1.mp3", shared, 192),
			track("/b/bonus1.mp3", []uint32{0xaaaaaaaa, 0}, 192),
			track("/b/bonus2.mp3", []uint32{0xbbbbbbbb, 0}, 192),
			track("/b/bonus3.mp3", []uint32{0xcccccccc, 0}, 192),
			track("/b/bonus4.mp3", []uint32{0xdddddddd, 0}, 192),
		},
		TrackCount:          5,
		AverageQualityScore: 192,
	}

	// Only 1 of B's 5 tracks matches: overlap = 20%, below the 50% minimum.
	opt := defaultOpts()
	opt.MinOverlapPercent = 50.0
	groups := Cluster([]album.Album{albumA, albumB}, opt)
	assert.Empty(t, groups)
}

func TestClusterTrackCountMismatchWithPartialOverlapDisabled(t *testing.T) {
	albums := []album.Album{
		{Path: "/a", Tracks: []album.TrackRecord{track("/a/1", []uint32{0}, 100), track("/a/2", []uint32{0}, 100)}, TrackCount: 2},
		{Path: "/b", Tracks: []album.TrackRecord{track("/b/1", []uint32{0}, 100)}, TrackCount: 1},
	}
	opt := defaultOpts()
	opt.PartialOverlapOn = false
	groups := Cluster(albums, opt)
	assert.Empty(t, groups)
}

func TestMixedMBIDsFallsBackToFingerprintPath(t *testing.T) {
	albums := []album.Album{
		{Path: "/a", MBIDStatus: album.MBIDMixed, Tracks: []album.TrackRecord{track("/a/1", []uint32{0}, 10010)}, TrackCount: 1, AverageQualityScore: 10010},
		{Path: "/b", MBIDStatus: album.MBIDMixed, Tracks: []album.TrackRecord{track("/b/1", []uint32{0}, 128)}, TrackCount: 1, AverageQualityScore: 128},
	}
	groups := Cluster(albums, defaultOpts())
	require.Len(t, groups, 1)
	assert.Equal(t, MatchFingerprint, groups[0].Members[0].MatchMethod)
}
