package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"duperscooper/internal/config"
	"duperscooper/internal/rules"
	"duperscooper/internal/scanresult"
	"duperscooper/internal/staging"
)

var (
	applyInput     string
	applyStrategy  string
	applyFormat    string
	applyRuleFile  string
	applyDryRun    bool
	applyAlbumMode bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a deletion policy to a scan-result document",
	Long: "Evaluate every item in a scan-result document against a built-in " +
		"strategy or a custom rule document, then stage the items verdicted " +
		"delete. --album-mode applies the policy to an album-scan document " +
		"instead of a track-scan one, staging whole album directories.",
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyInput, "input", "", "scan-result JSON document (required)")
	applyCmd.Flags().StringVar(&applyStrategy, "strategy", "eliminate-duplicates", "eliminate-duplicates | keep-lossless | keep-format | custom")
	applyCmd.Flags().StringVar(&applyFormat, "format", "", "format argument for keep-format")
	applyCmd.Flags().StringVar(&applyRuleFile, "rules", "", "rule document for the custom strategy")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "print verdicts without staging anything")
	applyCmd.Flags().BoolVar(&applyAlbumMode, "album-mode", false, "apply the policy to an album-scan document instead of a track-scan one")
	_ = applyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(applyCmd)
}

func buildEngine() (*rules.Engine, error) {
	switch applyStrategy {
	case "eliminate-duplicates":
		return rules.EliminateDuplicates(), nil
	case "keep-lossless":
		return rules.KeepLossless(), nil
	case "keep-format":
		if applyFormat == "" {
			return nil, fmt.Errorf("apply: --format is required for the keep-format strategy")
		}
		return rules.KeepFormat(applyFormat), nil
	case "custom":
		if applyRuleFile == "" {
			return nil, fmt.Errorf("apply: --rules is required for the custom strategy")
		}
		data, err := os.ReadFile(applyRuleFile)
		if err != nil {
			return nil, fmt.Errorf("apply: reading rule document: %w", err)
		}
		return rules.LoadDocument(data)
	default:
		return nil, fmt.Errorf("apply: unknown strategy %q", applyStrategy)
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyAlbumMode {
		return runApplyAlbumMode()
	}

	engine, err := buildEngine()
	if err != nil {
		return err
	}

	f, err := os.Open(applyInput)
	if err != nil {
		return fmt.Errorf("apply: opening scan result: %w", err)
	}
	defer f.Close()

	groups, err := scanresult.ReadTrackJSON(f)
	if err != nil {
		return err
	}

	var toDelete []string
	for _, g := range groups {
		for _, file := range g.Files {
			item := extractItem(file)
			verdict := engine.Evaluate(item)
			fmt.Printf("%s -> %s\n", file.Path, verdict)
			if verdict == rules.Delete {
				toDelete = append(toDelete, file.Path)
			}
		}
	}

	if applyDryRun || len(toDelete) == 0 {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	mgr := staging.New(wd, "duperscooper-dev", strings.Join(append([]string{"duperscooper", "apply"}, os.Args[1:]...), " "))
	manifest, err := mgr.StageTracks(toDelete)
	if err != nil {
		return fmt.Errorf("apply: staging: %w", err)
	}
	fmt.Printf("staged %d item(s) in batch %s\n", manifest.ItemsDeleted, manifest.BatchID)
	return nil
}

// runApplyAlbumMode evaluates an album-scan document against the
// policy and stages whole album directories verdicted delete,
// exercising the album half of the rule-driven deletion engine
// (album-scan produces directories, not individual track paths, so
// the directories verdicted delete are re-listed for their audio
// files at staging time).
func runApplyAlbumMode() error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	f, err := os.Open(applyInput)
	if err != nil {
		return fmt.Errorf("apply: opening scan result: %w", err)
	}
	defer f.Close()

	docs, err := scanresult.ReadAlbumJSON(f)
	if err != nil {
		return err
	}

	var toDelete []string
	for _, doc := range docs {
		for _, a := range doc.Albums {
			item := extractAlbumItem(a)
			verdict := engine.Evaluate(item)
			fmt.Printf("%s -> %s\n", a.Path, verdict)
			if verdict == rules.Delete {
				toDelete = append(toDelete, a.Path)
			}
		}
	}

	if applyDryRun || len(toDelete) == 0 {
		return nil
	}

	albumDirs := make(map[string][]string)
	for _, dir := range toDelete {
		tracks, err := listAudioFiles(dir)
		if err != nil {
			return fmt.Errorf("apply: listing %s: %w", dir, err)
		}
		albumDirs[dir] = tracks
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	mgr := staging.New(wd, "duperscooper-dev", strings.Join(append([]string{"duperscooper", "apply"}, os.Args[1:]...), " "))
	manifest, err := mgr.StageAlbums(albumDirs)
	if err != nil {
		return fmt.Errorf("apply: staging: %w", err)
	}
	fmt.Printf("staged %d album(s) in batch %s\n", manifest.ItemsDeleted, manifest.BatchID)
	return nil
}

func extractAlbumItem(a scanresult.AlbumEntry) rules.Item {
	item := rules.Item{
		"path":               a.Path,
		"track_count":        a.TrackCount,
		"match_percentage":   a.MatchPercentage,
		"is_best":            a.IsBest,
		"is_partial_match":   a.IsPartialMatch,
		"overlap_percentage": a.OverlapPercentage,
		"album_name":         a.AlbumName,
		"artist_name":        a.ArtistName,
	}
	for k, v := range extractAudioInfo(a.QualityInfo, a.TotalSizeBytes) {
		item[k] = v
	}
	item["quality_score"] = a.QualityScore
	return item
}

// listAudioFiles lists the recognised audio files directly within dir,
// the same recognition rule the album scanner uses.
func listAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if len(ext) > 0 {
			ext = ext[1:]
		}
		if !config.AudioExtensions[lowerASCII(ext)] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func extractItem(file scanresult.TrackFile) rules.Item {
	item := rules.Item{
		"path":               file.Path,
		"quality_score":      file.QualityScore,
		"similarity_to_best": file.SimilarityToBest,
		"is_best":            file.IsBest,
	}
	for k, v := range extractAudioInfo(file.AudioInfo, file.SizeBytes) {
		item[k] = v
	}
	return item
}

func extractAudioInfo(display string, fileSize int64) rules.Item {
	extracted := rules.ExtractFromDisplayString("", false, 0, display, fileSize)
	delete(extracted, "path")
	delete(extracted, "is_best")
	delete(extracted, "similarity_to_best")
	return extracted
}
