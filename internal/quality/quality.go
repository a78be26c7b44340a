// Package quality implements the quality scorer (C9). It centralises
// codec/quality extraction instead of deriving it from a free-form
// display string, and exposes the single derived boolean (IsLossless)
// the rule engine consumes.
package quality

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	taglib "github.com/wtolson/go-taglib"
)

// losslessScoreFloor is the base score every lossless track receives
// before the sample-rate/bit-depth bonus, chosen so that no lossy
// bitrate (measured in kbps, realistically well under 1 Mbps) can ever
// outrank a lossless file.
const losslessScoreFloor = 10000.0

// CodecInfo is the structured codec descriptor carried from extraction
// through scoring to the rule engine, replacing a regex-parsed display
// string as the source of truth (the display string is derived from
// this, last, only when a human-readable summary is needed).
type CodecInfo struct {
	Format       string // e.g. "FLAC", "MP3"
	Lossless     bool
	BitrateKbps  int
	SampleRateHz int
	BitDepth     int
}

// Extract reads codec information for path using the format-appropriate
// strategy: FLAC's own STREAMINFO block for exact sample rate/bit
// depth, WAV's header for the same, and go-taglib's generic
// AudioProperties for every other supported container (bitrate,
// sample rate; bit depth is not exposed there and is left 0 for lossy
// formats, where it is not part of the format anyway).
func Extract(path string) (CodecInfo, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	switch ext {
	case "flac":
		return extractFLAC(path)
	case "wav":
		return extractWAV(path)
	default:
		return extractGeneric(path, ext)
	}
}

func extractFLAC(path string) (CodecInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return CodecInfo{}, fmt.Errorf("quality: parsing flac %s: %w", path, err)
	}
	defer stream.Close()

	return CodecInfo{
		Format:       "FLAC",
		Lossless:     true,
		SampleRateHz: int(stream.Info.SampleRate),
		BitDepth:     int(stream.Info.BitsPerSample),
	}, nil
}

func extractWAV(path string) (CodecInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecInfo{}, fmt.Errorf("quality: opening wav %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return CodecInfo{}, fmt.Errorf("quality: invalid wav file %s", path)
	}
	dec.ReadInfo()

	return CodecInfo{
		Format:       "WAV",
		Lossless:     true,
		SampleRateHz: int(dec.SampleRate),
		BitDepth:     int(dec.BitDepth),
	}, nil
}

func extractGeneric(path, ext string) (CodecInfo, error) {
	f, err := taglib.Read(path)
	if err != nil {
		return CodecInfo{}, fmt.Errorf("quality: reading %s: %w", path, err)
	}
	defer f.Close()

	return CodecInfo{
		Format:       strings.ToUpper(ext),
		Lossless:     false,
		BitrateKbps:  f.Bitrate(),
		SampleRateHz: f.Samplerate(),
	}, nil
}

// Score computes the single real number the clusterer and rule engine
// rank on: lossless codecs get a base score well above any lossy
// bitrate, plus a bonus scaled by sample rate and bit depth; lossy
// codecs simply use their bitrate in kbps.
func Score(c CodecInfo) float64 {
	if c.Lossless {
		bonus := float64(c.SampleRateHz)/1000.0 + float64(c.BitDepth)
		return losslessScoreFloor + bonus
	}
	return float64(c.BitrateKbps)
}

// IsLossless reports the derived boolean the rule engine consumes:
// true whenever the score clears the lossless floor.
func IsLossless(score float64) bool {
	return score >= losslessScoreFloor
}

// DisplayString renders the human-readable quality_info/audio_info
// summary from structured CodecInfo, the reverse direction of the
// source's string-first approach (§9 design note).
func DisplayString(c CodecInfo) string {
	if c.Lossless {
		return fmt.Sprintf("%s %.1fkHz %dbit", c.Format, float64(c.SampleRateHz)/1000.0, c.BitDepth)
	}
	return fmt.Sprintf("%s %dkbps", c.Format, c.BitrateKbps)
}
