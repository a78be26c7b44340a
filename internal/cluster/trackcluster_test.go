package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterTracksGroupsNearDuplicates(t *testing.T) {
	tracks := []TrackInput{
		{Path: "a.flac", Fingerprint: []uint32{0, 0, 0, 0}, QualityScore: 10010},
		{Path: "b.mp3", Fingerprint: []uint32{0, 0, 0, 0}, QualityScore: 320},
		{Path: "c.mp3", Fingerprint: []uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}, QualityScore: 128},
	}

	groups := ClusterTracks(tracks, 98.0, 1)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 2)

	var best Member
	for _, m := range groups[0].Members {
		if m.IsBest {
			best = m
		}
	}
	assert.Equal(t, "a.flac", best.Path)
	assert.Equal(t, 100.0, best.SimilarityToBest)
}

func TestClusterTracksNoGroupBelowThreshold(t *testing.T) {
	tracks := []TrackInput{
		{Path: "a.mp3", Fingerprint: []uint32{0, 0, 0, 0}, QualityScore: 100},
		{Path: "b.mp3", Fingerprint: []uint32{0xffffffff, 0, 0, 0}, QualityScore: 100},
	}
	groups := ClusterTracks(tracks, 98.0, 1)
	assert.Empty(t, groups)
}

func TestClusterTracksBestTieBrokenByPath(t *testing.T) {
	tracks := []TrackInput{
		{Path: "z.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 320, SizeBytes: 100},
		{Path: "a.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 320, SizeBytes: 100},
	}
	groups := ClusterTracks(tracks, 98.0, 1)
	require.Len(t, groups, 1)
	for _, m := range groups[0].Members {
		if m.IsBest {
			assert.Equal(t, "a.mp3", m.Path)
		}
	}
}

func TestClusterTracksBestTieBrokenBySizeBeforePath(t *testing.T) {
	tracks := []TrackInput{
		{Path: "z.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 320, SizeBytes: 500},
		{Path: "a.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 320, SizeBytes: 100},
	}
	groups := ClusterTracks(tracks, 98.0, 1)
	require.Len(t, groups, 1)
	for _, m := range groups[0].Members {
		if m.IsBest {
			assert.Equal(t, "z.mp3", m.Path)
		}
	}
}

func TestClusterTracksMembersOrderedByQualityDescending(t *testing.T) {
	tracks := []TrackInput{
		{Path: "low.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 128},
		{Path: "high.flac", Fingerprint: []uint32{1, 1}, QualityScore: 10010},
		{Path: "mid.mp3", Fingerprint: []uint32{1, 1}, QualityScore: 320},
	}
	groups := ClusterTracks(tracks, 98.0, 1)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 3)
	assert.Equal(t, "high.flac", groups[0].Members[0].Path)
	assert.Equal(t, "mid.mp3", groups[0].Members[1].Path)
	assert.Equal(t, "low.mp3", groups[0].Members[2].Path)
}
