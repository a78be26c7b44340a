package cluster

import (
	"sort"

	"duperscooper/internal/similarity"
)

// TrackInput is the minimal per-track data the track clusterer (C6)
// needs: enough to compare fingerprints and to pick a "best" member
// once a group is formed.
type TrackInput struct {
	Path         string
	Fingerprint  []uint32
	QualityScore float64
	SizeBytes    int64
}

// Member is one track's position within a DuplicateGroup.
type Member struct {
	Path             string
	SimilarityToBest float64
	IsBest           bool
}

// DuplicateGroup is a set of two or more tracks clustered as
// near-duplicates, carrying each member's similarity to the group's
// designated best.
type DuplicateGroup struct {
	Members []Member
}

// ClusterTracks computes all pairwise similarities among tracks with
// the similarity kernel, unions any pair at or above threshold, and
// emits one DuplicateGroup per resulting group of two or more. Within
// each group the highest-quality track is the best (ties broken by
// larger file size, then lexicographically smaller path), and every
// other member's SimilarityToBest is computed against that best with
// the same kernel and minimum length that drove the grouping. Members
// are ordered with the best at the head, then by quality score
// descending, path ascending as the tie-break.
func ClusterTracks(tracks []TrackInput, threshold float64, minElements int) []DuplicateGroup {
	uf := New(len(tracks))

	for i := 0; i < len(tracks); i++ {
		for j := i + 1; j < len(tracks); j++ {
			sim := similarity.Percentage(tracks[i].Fingerprint, tracks[j].Fingerprint, minElements)
			if sim >= threshold {
				uf.Union(i, j)
			}
		}
	}

	var groups []DuplicateGroup
	for _, idxs := range uf.Groups() {
		bestIdx := pickBest(tracks, idxs)

		members := make([]Member, 0, len(idxs))
		for _, idx := range idxs {
			sim := 100.0
			if idx != bestIdx {
				sim = similarity.Percentage(tracks[idx].Fingerprint, tracks[bestIdx].Fingerprint, minElements)
			}
			members = append(members, Member{
				Path:             tracks[idx].Path,
				SimilarityToBest: sim,
				IsBest:           idx == bestIdx,
			})
		}
		sort.Slice(members, func(a, b int) bool {
			if members[a].IsBest != members[b].IsBest {
				return members[a].IsBest
			}
			qa, qb := qualityOf(tracks, members[a].Path), qualityOf(tracks, members[b].Path)
			if qa != qb {
				return qa > qb
			}
			return members[a].Path < members[b].Path
		})
		groups = append(groups, DuplicateGroup{Members: members})
	}

	return groups
}

func qualityOf(tracks []TrackInput, path string) float64 {
	for _, t := range tracks {
		if t.Path == path {
			return t.QualityScore
		}
	}
	return 0
}

func pickBest(tracks []TrackInput, idxs []int) int {
	best := idxs[0]
	for _, idx := range idxs[1:] {
		switch {
		case tracks[idx].QualityScore > tracks[best].QualityScore:
			best = idx
		case tracks[idx].QualityScore < tracks[best].QualityScore:
			continue
		case tracks[idx].SizeBytes > tracks[best].SizeBytes:
			best = idx
		case tracks[idx].SizeBytes < tracks[best].SizeBytes:
			continue
		case tracks[idx].Path < tracks[best].Path:
			best = idx
		}
	}
	return best
}
