// Package scanresult defines the on-disk scan-result document (§6):
// the shape emitted by a scan and consumed by the rule engine and any
// external tooling, in both JSON and CSV form.
package scanresult

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// TrackFile is one member of a track-mode DuplicateGroup document.
type TrackFile struct {
	Path               string  `json:"path"`
	SizeBytes          int64   `json:"size_bytes"`
	AudioInfo          string  `json:"audio_info"`
	QualityScore       float64 `json:"quality_score"`
	SimilarityToBest   float64 `json:"similarity_to_best"`
	IsBest             bool    `json:"is_best"`
	RecommendedAction  string  `json:"recommended_action"`
}

// TrackGroup is one track-mode duplicate group.
type TrackGroup struct {
	Hash  string      `json:"hash"`
	Files []TrackFile `json:"files"`
}

// AlbumEntry is one member of an album-mode AlbumGroup document.
type AlbumEntry struct {
	Path                string  `json:"path"`
	TrackCount          int     `json:"track_count"`
	TotalSizeBytes      int64   `json:"total_size_bytes"`
	QualityInfo         string  `json:"quality_info"`
	QualityScore        float64 `json:"quality_score"`
	MatchPercentage     float64 `json:"match_percentage"`
	MatchMethod         string  `json:"match_method"`
	IsBest              bool    `json:"is_best"`
	RecommendedAction   string  `json:"recommended_action"`
	MusicBrainzAlbumID  string  `json:"musicbrainz_albumid"`
	AlbumName           string  `json:"album_name"`
	ArtistName          string  `json:"artist_name"`
	HasMixedMBIDs       bool    `json:"has_mixed_mb_ids"`
	IsPartialMatch      bool    `json:"is_partial_match"`
	OverlapPercentage   float64 `json:"overlap_percentage"`
}

// AlbumGroupDoc is one album-mode duplicate group.
type AlbumGroupDoc struct {
	MatchedAlbum  string       `json:"matched_album"`
	MatchedArtist string       `json:"matched_artist"`
	Albums        []AlbumEntry `json:"albums"`
}

// WriteTrackJSON writes groups as the track-mode JSON document.
func WriteTrackJSON(w io.Writer, groups []TrackGroup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(groups)
}

// ReadTrackJSON parses a track-mode JSON document.
func ReadTrackJSON(r io.Reader) ([]TrackGroup, error) {
	var groups []TrackGroup
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, fmt.Errorf("scanresult: decoding track json: %w", err)
	}
	return groups, nil
}

// WriteAlbumJSON writes groups as the album-mode JSON document.
func WriteAlbumJSON(w io.Writer, groups []AlbumGroupDoc) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(groups)
}

// ReadAlbumJSON parses an album-mode JSON document.
func ReadAlbumJSON(r io.Reader) ([]AlbumGroupDoc, error) {
	var groups []AlbumGroupDoc
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, fmt.Errorf("scanresult: decoding album json: %w", err)
	}
	return groups, nil
}

var trackCSVHeader = []string{
	"group_id", "hash", "path", "size_bytes", "audio_info",
	"quality_score", "similarity_to_best", "is_best", "recommended_action",
}

// WriteTrackCSV renders groups as CSV, one row per file, tagged with a
// group_id column so the loader can reconstruct groups by grouping
// rows, per the round-trip requirement.
func WriteTrackCSV(w io.Writer, groups []TrackGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trackCSVHeader); err != nil {
		return err
	}
	for gi, g := range groups {
		for _, f := range g.Files {
			row := []string{
				strconv.Itoa(gi),
				g.Hash,
				f.Path,
				strconv.FormatInt(f.SizeBytes, 10),
				f.AudioInfo,
				strconv.FormatFloat(f.QualityScore, 'f', -1, 64),
				strconv.FormatFloat(f.SimilarityToBest, 'f', -1, 64),
				strconv.FormatBool(f.IsBest),
				f.RecommendedAction,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrackCSV parses a track-mode CSV document, reconstructing groups
// by grouping rows with the same group_id.
func ReadTrackCSV(r io.Reader) ([]TrackGroup, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("scanresult: reading track csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rows = rows[1:] // header

	order := []string{}
	byGroup := map[string]*TrackGroup{}

	for _, row := range rows {
		if len(row) < len(trackCSVHeader) {
			continue
		}
		gid := row[0]
		g, ok := byGroup[gid]
		if !ok {
			g = &TrackGroup{Hash: row[1]}
			byGroup[gid] = g
			order = append(order, gid)
		}
		size, _ := strconv.ParseInt(row[3], 10, 64)
		score, _ := strconv.ParseFloat(row[5], 64)
		sim, _ := strconv.ParseFloat(row[6], 64)
		isBest, _ := strconv.ParseBool(row[7])
		g.Files = append(g.Files, TrackFile{
			Path:              row[2],
			SizeBytes:         size,
			AudioInfo:         row[4],
			QualityScore:      score,
			SimilarityToBest:  sim,
			IsBest:            isBest,
			RecommendedAction: row[8],
		})
	}

	groups := make([]TrackGroup, 0, len(order))
	for _, gid := range order {
		groups = append(groups, *byGroup[gid])
	}
	return groups, nil
}
