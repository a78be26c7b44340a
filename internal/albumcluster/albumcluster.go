// Package albumcluster implements the album clusterer (C8): the
// subtlest component in the system. It groups Albums via a
// MusicBrainz-ID fast path and a fingerprint-based slow path that
// tolerates partial track-list overlap, and it is built around one
// hard rule — the match percentage displayed for a member is always
// the exact metric that caused it to be grouped, never a later
// recomputation.
package albumcluster

import (
	"sort"

	"github.com/jhprks/damerau"

	"duperscooper/internal/album"
	"duperscooper/internal/cluster"
	"duperscooper/internal/similarity"
)

// MatchMethod identifies which path produced an AlbumGroup.
type MatchMethod string

const (
	MatchMusicBrainz MatchMethod = "musicbrainz"
	MatchFingerprint MatchMethod = "fingerprint"
)

// Member is one album's position within an AlbumGroup, carrying the
// exact metric that caused it to be grouped.
type Member struct {
	Path                string
	TrackCount          int
	TotalBytes          int64
	QualitySummary      string
	AverageQualityScore float64
	MatchPercentage     float64
	MatchMethod         MatchMethod
	IsBest              bool
	MusicBrainzAlbumID  string
	AlbumName           string
	ArtistName          string
	HasMixedMBIDs       bool
	IsPartialMatch      bool
	OverlapPercentage   float64
}

// AlbumGroup is a set of two or more Albums clustered as duplicates.
type AlbumGroup struct {
	MatchedAlbumName  string
	MatchedArtistName string
	Members           []Member
}

// Options configures the clustering thresholds, all spec defaults
// unless overridden from config.Config.
type Options struct {
	SimilarityThreshold float64 // per-track threshold, default 98.0
	MinOverlapPercent   float64 // default 70.0
	PartialOverlapOn    bool
	MinFingerprintElems int
}

// pairMatch records the metric produced by comparing two albums
// during the slow path, so it can be reported verbatim later instead
// of being recomputed.
type pairMatch struct {
	i, j              int
	method            MatchMethod
	matchPercentage   float64
	isPartial         bool
	overlapPercentage float64
}

// Cluster groups albums into AlbumGroups using the MusicBrainz fast
// path first, then the fingerprint slow path over whatever remains
// unresolved (absent or mixed MB-ID status).
func Cluster(albums []album.Album, opt Options) []AlbumGroup {
	var groups []AlbumGroup

	mbGroups, consumed := clusterByMusicBrainz(albums)
	groups = append(groups, mbGroups...)

	var remaining []int
	for i := range albums {
		if !consumed[i] {
			remaining = append(remaining, i)
		}
	}

	groups = append(groups, clusterByFingerprint(albums, remaining, opt)...)
	return groups
}

func clusterByMusicBrainz(albums []album.Album) ([]AlbumGroup, map[int]bool) {
	partitions := make(map[string][]int)
	for i, a := range albums {
		if a.MBIDStatus == album.MBIDConsistent {
			partitions[a.MusicBrainz] = append(partitions[a.MusicBrainz], i)
		}
	}

	consumed := make(map[int]bool)
	var groups []AlbumGroup

	// Deterministic iteration: sort MBIDs so output order is stable.
	ids := make([]string, 0, len(partitions))
	for id := range partitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		idxs := partitions[id]
		if len(idxs) < 2 {
			continue
		}
		for _, idx := range idxs {
			consumed[idx] = true
		}
		groups = append(groups, buildMusicBrainzGroup(albums, idxs))
	}
	return groups, consumed
}

func buildMusicBrainzGroup(albums []album.Album, idxs []int) AlbumGroup {
	bestIdx := pickBestAlbum(albums, idxs)

	members := make([]Member, 0, len(idxs))
	for _, idx := range idxs {
		a := albums[idx]
		members = append(members, Member{
			Path:                a.Path,
			TrackCount:          a.TrackCount,
			TotalBytes:          a.TotalBytes,
			QualitySummary:      a.QualitySummary,
			AverageQualityScore: a.AverageQualityScore,
			MatchPercentage:     100,
			MatchMethod:         MatchMusicBrainz,
			IsBest:              idx == bestIdx,
			MusicBrainzAlbumID:  a.MusicBrainz,
			AlbumName:           a.AlbumName,
			ArtistName:          a.ArtistName,
			HasMixedMBIDs:       a.MBIDStatus == album.MBIDMixed,
		})
	}

	name, artist := resolveMatchedNames(albums, idxs, bestIdx)
	return AlbumGroup{MatchedAlbumName: name, MatchedArtistName: artist, Members: members}
}

func clusterByFingerprint(albums []album.Album, remaining []int, opt Options) []AlbumGroup {
	uf := cluster.New(len(albums))
	metrics := make(map[[2]int]pairMatch)

	for a := 0; a < len(remaining); a++ {
		for b := a + 1; b < len(remaining); b++ {
			i, j := remaining[a], remaining[b]
			pm, ok := matchAlbumPair(albums[i], albums[j], opt)
			if !ok {
				continue
			}
			pm.i, pm.j = i, j
			metrics[[2]int{i, j}] = pm
			uf.Union(i, j)
		}
	}

	var groups []AlbumGroup
	for _, idxs := range uf.Groups() {
		groups = append(groups, buildFingerprintGroup(albums, idxs, metrics))
	}
	return groups
}

// matchAlbumPair compares two albums via position-based similarity
// (equal track counts) or partial-overlap bipartite matching (unequal
// counts), returning the metric that would be used to cluster them.
func matchAlbumPair(x, y album.Album, opt Options) (pairMatch, bool) {
	if len(x.Tracks) == len(y.Tracks) {
		return matchEqualLength(x, y, opt)
	}
	if !opt.PartialOverlapOn {
		return pairMatch{}, false
	}
	return matchPartialOverlap(x, y, opt)
}

func matchEqualLength(x, y album.Album, opt Options) (pairMatch, bool) {
	n := len(x.Tracks)
	if n == 0 {
		return pairMatch{}, false
	}
	var sum float64
	for k := 0; k < n; k++ {
		sum += similarity.Percentage(x.Tracks[k].Fingerprint, y.Tracks[k].Fingerprint, opt.MinFingerprintElems)
	}
	mean := sum / float64(n)
	if mean < opt.SimilarityThreshold {
		return pairMatch{}, false
	}
	return pairMatch{method: MatchFingerprint, matchPercentage: mean}, true
}

// matchPartialOverlap greedily matches the shorter album's tracks to
// the longer album's, accepting only pairs at or above the per-track
// threshold and never reusing a track on either side. Pairs are
// considered in descending similarity order so the strongest matches
// are claimed first — a documented heuristic for "best" bipartite
// matching, not an exact maximum-weight solver.
func matchPartialOverlap(x, y album.Album, opt Options) (pairMatch, bool) {
	short, long := x.Tracks, y.Tracks
	if len(long) < len(short) {
		short, long = long, short
	}
	s := len(short)

	type candidate struct {
		si, li int
		sim    float64
	}
	var candidates []candidate
	for si := range short {
		for li := range long {
			sim := similarity.Percentage(short[si].Fingerprint, long[li].Fingerprint, opt.MinFingerprintElems)
			if sim >= opt.SimilarityThreshold {
				candidates = append(candidates, candidate{si, li, sim})
			}
		}
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].sim > candidates[b].sim })

	matchedShort := make(map[int]bool)
	matchedLong := make(map[int]bool)
	var matchedSims []float64

	for _, c := range candidates {
		if matchedShort[c.si] || matchedLong[c.li] {
			continue
		}
		matchedShort[c.si] = true
		matchedLong[c.li] = true
		matchedSims = append(matchedSims, c.sim)
	}

	overlap := float64(len(matchedSims)) / float64(s) * 100
	if overlap < opt.MinOverlapPercent {
		return pairMatch{}, false
	}

	var sum float64
	for _, sim := range matchedSims {
		sum += sim
	}
	mean := sum / float64(len(matchedSims))

	return pairMatch{
		method:            MatchFingerprint,
		matchPercentage:   mean,
		isPartial:         true,
		overlapPercentage: overlap,
	}, true
}

func buildFingerprintGroup(albums []album.Album, idxs []int, metrics map[[2]int]pairMatch) AlbumGroup {
	bestIdx := pickBestAlbum(albums, idxs)

	members := make([]Member, 0, len(idxs))
	for _, idx := range idxs {
		a := albums[idx]
		m := Member{
			Path:                a.Path,
			TrackCount:          a.TrackCount,
			TotalBytes:          a.TotalBytes,
			QualitySummary:      a.QualitySummary,
			AverageQualityScore: a.AverageQualityScore,
			MatchMethod:         MatchFingerprint,
			IsBest:              idx == bestIdx,
			MusicBrainzAlbumID:  a.MusicBrainz,
			AlbumName:           a.AlbumName,
			ArtistName:          a.ArtistName,
			HasMixedMBIDs:       a.MBIDStatus == album.MBIDMixed,
		}
		if idx == bestIdx {
			m.MatchPercentage = 100
		} else if pm, ok := lookupPair(metrics, idx, bestIdx); ok {
			// Report the metric produced during grouping verbatim — never
			// recompute it from the full track list.
			m.MatchPercentage = pm.matchPercentage
			m.IsPartialMatch = pm.isPartial
			m.OverlapPercentage = pm.overlapPercentage
		}
		members = append(members, m)
	}

	name, artist := resolveMatchedNames(albums, idxs, bestIdx)
	return AlbumGroup{MatchedAlbumName: name, MatchedArtistName: artist, Members: members}
}

func lookupPair(metrics map[[2]int]pairMatch, a, b int) (pairMatch, bool) {
	if a > b {
		a, b = b, a
	}
	pm, ok := metrics[[2]int{a, b}]
	return pm, ok
}

// pickBestAlbum picks the group's best by average quality score,
// ties broken by larger total size, then by lexicographically
// smaller path.
func pickBestAlbum(albums []album.Album, idxs []int) int {
	best := idxs[0]
	for _, idx := range idxs[1:] {
		switch {
		case albums[idx].AverageQualityScore > albums[best].AverageQualityScore:
			best = idx
		case albums[idx].AverageQualityScore < albums[best].AverageQualityScore:
			continue
		case albums[idx].TotalBytes > albums[best].TotalBytes:
			best = idx
		case albums[idx].TotalBytes < albums[best].TotalBytes:
			continue
		case albums[idx].Path < albums[best].Path:
			best = idx
		}
	}
	return best
}

// resolveMatchedNames picks the most common non-null album/artist name
// among members, tie-broken by Damerau-Levenshtein closeness to the
// best member's name when two candidates are equally common.
func resolveMatchedNames(albums []album.Album, idxs []int, bestIdx int) (string, string) {
	return mostCommon(albums, idxs, bestIdx, func(a album.Album) string { return a.AlbumName }),
		mostCommon(albums, idxs, bestIdx, func(a album.Album) string { return a.ArtistName })
}

func mostCommon(albums []album.Album, idxs []int, bestIdx int, field func(album.Album) string) string {
	counts := make(map[string]int)
	for _, idx := range idxs {
		v := field(albums[idx])
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	best := field(albums[bestIdx])
	var candidates []string
	maxCount := 0
	for v, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	for v, c := range counts {
		if c == maxCount {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	sort.Slice(candidates, func(a, b int) bool {
		da := damerau.DamerauLevenshteinDistance(candidates[a], best)
		db := damerau.DamerauLevenshteinDistance(candidates[b], best)
		if da != db {
			return da < db
		}
		return candidates[a] < candidates[b]
	})
	return candidates[0]
}
