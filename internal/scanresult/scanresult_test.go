package scanresult

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []TrackGroup {
	return []TrackGroup{
		{
			Hash: "abc123",
			Files: []TrackFile{
				{Path: "/a/1.flac", SizeBytes: 100, AudioInfo: "FLAC 44.1kHz 16bit", QualityScore: 10016, IsBest: true, RecommendedAction: "keep"},
				{Path: "/a/1.mp3", SizeBytes: 50, AudioInfo: "MP3 320kbps", QualityScore: 320, SimilarityToBest: 99.1, RecommendedAction: "delete"},
			},
		},
	}
}

func TestTrackJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrackJSON(&buf, sampleGroups()))

	got, err := ReadTrackJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleGroups(), got)
}

func TestTrackCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrackCSV(&buf, sampleGroups()))

	got, err := ReadTrackCSV(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadTrackCSV(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Files, 2)
	assert.Equal(t, "abc123", got[0].Hash)
	assert.True(t, got[0].Files[0].IsBest)
	assert.InDelta(t, 99.1, got[0].Files[1].SimilarityToBest, 0.001)
}
