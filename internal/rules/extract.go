package rules

import (
	"regexp"
	"strconv"

	"duperscooper/internal/quality"
)

// Extract builds the field bag a freshly-scanned item presents to the
// engine, reading the structured CodecInfo directly rather than
// parsing a display string. fileSize is the track's size in bytes.
func Extract(path string, isBest bool, similarityToBest float64, c quality.CodecInfo, fileSize int64) Item {
	score := quality.Score(c)
	return Item{
		"path":               path,
		"format":             c.Format,
		"codec":              c.Format,
		"bitrate":            c.BitrateKbps,
		"sample_rate":        c.SampleRateHz,
		"bit_depth":          c.BitDepth,
		"is_lossless":        quality.IsLossless(score),
		"quality_score":      score,
		"is_best":            isBest,
		"similarity_to_best": similarityToBest,
		"file_size":          fileSize,
	}
}

// losslessPattern and lossyPattern match the "FORMAT bitrate/sample-rate"
// summaries produced by quality.DisplayString, e.g. "FLAC 44.1kHz
// 16bit" or "MP3 320kbps".
var (
	losslessPattern = regexp.MustCompile(`^(\S+)\s+([\d.]+)kHz\s+(\d+)bit$`)
	lossyPattern    = regexp.MustCompile(`^(\S+)\s+(\d+)kbps$`)
)

// ExtractFromDisplayString recovers an approximate field bag from a
// scan-result document loaded from disk that only carries the
// human-readable quality_info/audio_info string rather than the
// structured CodecInfo that produced it. This exists only for
// documents written before the rule engine had direct CodecInfo
// access; fresh scans should always use Extract. fileSize is the
// track's size in bytes.
func ExtractFromDisplayString(path string, isBest bool, similarityToBest float64, display string, fileSize int64) Item {
	item := Item{
		"path":               path,
		"is_best":            isBest,
		"similarity_to_best": similarityToBest,
		"file_size":          fileSize,
	}

	if m := losslessPattern.FindStringSubmatch(display); m != nil {
		khz, _ := strconv.ParseFloat(m[2], 64)
		bits, _ := strconv.Atoi(m[3])
		item["format"] = m[1]
		item["codec"] = m[1]
		item["sample_rate"] = int(khz * 1000)
		item["bit_depth"] = bits
		item["is_lossless"] = true
		item["quality_score"] = 10000 + khz + float64(bits)
		return item
	}

	if m := lossyPattern.FindStringSubmatch(display); m != nil {
		kbps, _ := strconv.Atoi(m[2])
		item["format"] = m[1]
		item["codec"] = m[1]
		item["bitrate"] = kbps
		item["is_lossless"] = false
		item["quality_score"] = float64(kbps)
		return item
	}

	return item
}
