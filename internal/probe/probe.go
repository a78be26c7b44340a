// Package probe invokes the external metadata probe (C2): a subprocess
// that emits a JSON document of tag key/value pairs for one audio file.
// Tag extraction is case-insensitive and never fails the caller —
// missing or unparseable tags simply yield zero values, per spec.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Tags is the normalised set of tag fields the rest of the pipeline
// cares about. All fields are optional.
type Tags struct {
	Album              string
	Artist             string
	MusicBrainzAlbumID string
	Disc               int
	TotalDiscs         int
	DiscSubtitle       string
}

// Probe invokes a configured ffprobe-compatible binary.
type Probe struct {
	BinaryName string
	Timeout    time.Duration
}

// New returns a Probe with the given timeout.
func New(timeout time.Duration) *Probe {
	return &Probe{BinaryName: "ffprobe", Timeout: timeout}
}

// ErrUnreadable is never returned to the caller as a hard failure per
// spec (MetadataUnreadable is "silently treated as no tags"); it is
// exposed only so callers that want to log the reason can check for it.
type ErrUnreadable struct {
	Path string
	Err  error
}

func (e *ErrUnreadable) Error() string {
	return fmt.Sprintf("probe: unreadable metadata for %s: %v", e.Path, e.Err)
}

func (e *ErrUnreadable) Unwrap() error { return e.Err }

// Fetch runs the metadata probe against path. On any subprocess or
// parse failure it returns a zero Tags and a non-nil *ErrUnreadable
// wrapping the cause; callers should treat that as "no tags", not a fatal
// condition.
func (p *Probe) Fetch(ctx context.Context, path string) (Tags, error) {
	binary := p.BinaryName
	if binary == "" {
		binary = "ffprobe"
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return Tags{}, &ErrUnreadable{Path: path, Err: err}
	}

	if !gjson.Valid(stdout.String()) {
		return Tags{}, &ErrUnreadable{Path: path, Err: fmt.Errorf("invalid JSON")}
	}

	return parseTags(stdout.String()), nil
}

// parseTags navigates format.tags case-insensitively. ffprobe's tag
// casing varies by container (ID3 upper-cases, Vorbis comments are
// conventionally upper-case, some muxers lower-case), so every key is
// normalised before matching.
func parseTags(doc string) Tags {
	var t Tags

	tags := gjson.Get(doc, "format.tags")
	if !tags.Exists() {
		return t
	}

	tags.ForEach(func(key, value gjson.Result) bool {
		switch strings.ToUpper(key.String()) {
		case "ALBUM", "ALBUM_TITLE":
			if t.Album == "" {
				t.Album = value.String()
			}
		case "ARTIST", "ALBUM_ARTIST", "ALBUMARTIST":
			if t.Artist == "" {
				t.Artist = value.String()
			}
		case "MUSICBRAINZ_ALBUMID":
			t.MusicBrainzAlbumID = value.String()
		case "DISC":
			t.Disc, t.TotalDiscs = parseDisc(value.String())
		case "TOTALDISCS":
			if n, err := strconv.Atoi(strings.TrimSpace(value.String())); err == nil {
				t.TotalDiscs = n
			}
		case "DISCSUBTITLE":
			t.DiscSubtitle = value.String()
		}
		return true
	})

	return t
}

// parseDisc parses the DISC tag, which is either "n" or "n/m".
func parseDisc(raw string) (disc, total int) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, "/", 2)
	disc, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return disc, total
}
