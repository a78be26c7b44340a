package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"duperscooper/internal/cluster"
	"duperscooper/internal/config"
	"duperscooper/internal/extractor"
	"duperscooper/internal/hasher"
	"duperscooper/internal/pipeline"
	"duperscooper/internal/quality"
	"duperscooper/internal/scanresult"
)

var (
	scanThreshold float64
	scanWorkers   int
	scanOutput    string
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan directories for duplicate tracks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	cfg := config.Default()
	scanCmd.Flags().Float64Var(&scanThreshold, "threshold", cfg.SimilarityThreshold, "similarity threshold percentage")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", cfg.Workers, "number of concurrent fingerprinting workers")
	scanCmd.Flags().StringVar(&scanOutput, "output", "", "write scan-result JSON to this path instead of stdout")
	rootCmd.AddCommand(scanCmd)
}

func collectAudioPaths(roots []string, cfg *config.Config) ([]string, error) {
	var paths []string
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if len(ext) > 0 {
				ext = ext[1:]
			}
			if !config.AudioExtensions[lowerASCII(ext)] {
				return nil
			}
			if cfg.MinSizeBytes > 0 && info.Size() < cfg.MinSizeBytes {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.SimilarityThreshold = scanThreshold
	cfg.Workers = scanWorkers

	paths, err := collectAudioPaths(args, &cfg)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "duperscooper: no audio files found")
		return nil
	}

	cache := openCache()
	if cache != nil {
		defer cache.Close()
	}

	h := hasher.New(cache, extractor.New(cfg.ExtractorTimeout, cfg.FingerprintWindowSeconds))

	type trackData struct {
		path    string
		fp      []uint32
		quality float64
		codec   quality.CodecInfo
		size    int64
	}

	jobs := make([]pipeline.Job, len(paths))
	for i, p := range paths {
		jobs[i] = pipeline.Job{Path: p, Index: i}
	}

	ctx := context.Background()
	results := pipeline.Run(ctx, jobs, cfg.Workers, func(ctx context.Context, j pipeline.Job) (interface{}, error) {
		fp, err := h.Hash(ctx, j.Path)
		if err != nil {
			return nil, err
		}
		codec, _ := quality.Extract(j.Path)
		var size int64
		if info, statErr := os.Stat(j.Path); statErr == nil {
			size = info.Size()
		}
		return trackData{path: j.Path, fp: fp.Vector, quality: quality.Score(codec), codec: codec, size: size}, nil
	})

	var tracks []cluster.TrackInput
	byPath := make(map[string]trackData)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		td := r.Value.(trackData)
		byPath[td.path] = td
		tracks = append(tracks, cluster.TrackInput{Path: td.path, Fingerprint: td.fp, QualityScore: td.quality, SizeBytes: td.size})
	}

	groups := cluster.ClusterTracks(tracks, cfg.SimilarityThreshold, cfg.MinFingerprintElements)

	var docGroups []scanresult.TrackGroup
	for _, g := range groups {
		var files []scanresult.TrackFile
		for _, m := range g.Members {
			td := byPath[m.Path]
			action := "delete"
			if m.IsBest {
				action = "keep"
			}
			files = append(files, scanresult.TrackFile{
				Path:              m.Path,
				SizeBytes:         td.size,
				AudioInfo:         quality.DisplayString(td.codec),
				QualityScore:      td.quality,
				SimilarityToBest:  m.SimilarityToBest,
				IsBest:            m.IsBest,
				RecommendedAction: action,
			})
		}
		docGroups = append(docGroups, scanresult.TrackGroup{Files: files})
	}

	out := os.Stdout
	if scanOutput != "" {
		f, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("scan: creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return scanresult.WriteTrackJSON(out, docGroups)
}
