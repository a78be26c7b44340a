package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duperscooper/internal/album"
	"duperscooper/internal/albumcluster"
	"duperscooper/internal/config"
	"duperscooper/internal/extractor"
	"duperscooper/internal/hasher"
	"duperscooper/internal/probe"
	"duperscooper/internal/scanresult"
)

var (
	albumScanThreshold float64
	albumMinOverlap    float64
	albumNoPartial     bool
	albumOutput        string
)

var albumScanCmd = &cobra.Command{
	Use:   "album-scan [paths...]",
	Short: "Scan directories for duplicate albums",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAlbumScan,
}

func init() {
	cfg := config.Default()
	albumScanCmd.Flags().Float64Var(&albumScanThreshold, "threshold", cfg.SimilarityThreshold, "per-track similarity threshold percentage")
	albumScanCmd.Flags().Float64Var(&albumMinOverlap, "min-overlap", cfg.MinOverlapPercent, "minimum overlap percentage for partial album matches")
	albumScanCmd.Flags().BoolVar(&albumNoPartial, "no-partial-overlap", false, "disable partial-overlap matching for albums with differing track counts")
	albumScanCmd.Flags().StringVar(&albumOutput, "output", "", "write scan-result JSON to this path instead of stdout")
	rootCmd.AddCommand(albumScanCmd)
}

func runAlbumScan(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.SimilarityThreshold = albumScanThreshold
	cfg.MinOverlapPercent = albumMinOverlap
	cfg.PartialOverlapEnabled = !albumNoPartial

	cache := openCache()
	if cache != nil {
		defer cache.Close()
	}

	h := hasher.New(cache, extractor.New(cfg.ExtractorTimeout, cfg.FingerprintWindowSeconds))
	p := probe.New(cfg.ProbeTimeout)
	scanner := album.New(h, p, &cfg)

	albums, err := scanner.Scan(context.Background(), args)
	if err != nil {
		return fmt.Errorf("album-scan: %w", err)
	}
	if len(albums) == 0 {
		fmt.Fprintln(os.Stderr, "duperscooper: no albums found")
		return nil
	}

	groups := albumcluster.Cluster(albums, albumcluster.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		MinOverlapPercent:   cfg.MinOverlapPercent,
		PartialOverlapOn:    cfg.PartialOverlapEnabled,
		MinFingerprintElems: cfg.MinFingerprintElements,
	})

	var docGroups []scanresult.AlbumGroupDoc
	for _, g := range groups {
		var entries []scanresult.AlbumEntry
		for _, m := range g.Members {
			action := "delete"
			if m.IsBest {
				action = "keep"
			}
			entries = append(entries, scanresult.AlbumEntry{
				Path:               m.Path,
				TrackCount:         m.TrackCount,
				TotalSizeBytes:     m.TotalBytes,
				QualityInfo:        m.QualitySummary,
				QualityScore:       m.AverageQualityScore,
				MatchPercentage:    m.MatchPercentage,
				MatchMethod:        string(m.MatchMethod),
				IsBest:             m.IsBest,
				RecommendedAction:  action,
				MusicBrainzAlbumID: m.MusicBrainzAlbumID,
				AlbumName:          m.AlbumName,
				ArtistName:         m.ArtistName,
				HasMixedMBIDs:      m.HasMixedMBIDs,
				IsPartialMatch:     m.IsPartialMatch,
				OverlapPercentage:  m.OverlapPercentage,
			})
		}
		docGroups = append(docGroups, scanresult.AlbumGroupDoc{
			MatchedAlbum:  g.MatchedAlbumName,
			MatchedArtist: g.MatchedArtistName,
			Albums:        entries,
		})
	}

	out := os.Stdout
	if albumOutput != "" {
		f, err := os.Create(albumOutput)
		if err != nil {
			return fmt.Errorf("album-scan: creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return scanresult.WriteAlbumJSON(out, docGroups)
}
