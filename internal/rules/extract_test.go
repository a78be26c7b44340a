package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"duperscooper/internal/quality"
)

func TestExtractSetsCodecAndFileSize(t *testing.T) {
	c := quality.CodecInfo{Format: "FLAC", Lossless: true, SampleRateHz: 44100, BitDepth: 16}
	item := Extract("/a/1.flac", true, 100, c, 12345)

	assert.Equal(t, "FLAC", item["format"])
	assert.Equal(t, "FLAC", item["codec"])
	assert.Equal(t, int64(12345), item["file_size"])
	assert.Equal(t, true, item["is_lossless"])
}

func TestExtractFromDisplayStringSetsCodecAndFileSize(t *testing.T) {
	item := ExtractFromDisplayString("/a/1.mp3", false, 80, "MP3 320kbps", 98765)

	assert.Equal(t, "MP3", item["format"])
	assert.Equal(t, "MP3", item["codec"])
	assert.Equal(t, int64(98765), item["file_size"])
	assert.Equal(t, false, item["is_lossless"])
}

func TestFileSizeFieldDrivesComparisonRule(t *testing.T) {
	rule := Rule{
		Name:   "large-file",
		Action: Delete,
		Conditions: []Condition{
			{Field: "file_size", Operator: ">", Value: 1000},
		},
	}
	engine := New([]Rule{rule}, Keep)

	big := ExtractFromDisplayString("/a/big.mp3", false, 0, "MP3 320kbps", 2000)
	small := ExtractFromDisplayString("/a/small.mp3", false, 0, "MP3 320kbps", 500)

	assert.Equal(t, Delete, engine.Evaluate(big))
	assert.Equal(t, Keep, engine.Evaluate(small))
}

func TestCodecFieldDrivesComparisonRule(t *testing.T) {
	rule := Rule{
		Name:   "codec-is-mp3",
		Action: Delete,
		Conditions: []Condition{
			{Field: "codec", Operator: "==", Value: "MP3"},
		},
	}
	engine := New([]Rule{rule}, Keep)

	mp3 := ExtractFromDisplayString("/a/1.mp3", false, 0, "MP3 320kbps", 100)
	flac := ExtractFromDisplayString("/a/1.flac", false, 0, "FLAC 44.1kHz 16bit", 100)

	assert.Equal(t, Delete, engine.Evaluate(mp3))
	assert.Equal(t, Keep, engine.Evaluate(flac))
}
