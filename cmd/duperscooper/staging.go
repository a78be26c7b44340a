package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duperscooper/internal/staging"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [batch-id]",
	Short: "Restore a staged batch to its original locations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		mgr := staging.New(wd, "duperscooper-dev", "")
		manifest, err := mgr.Restore(args[0])
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Printf("restored %d item(s) from batch %s\n", manifest.ItemsDeleted, manifest.BatchID)
		return nil
	},
}

var listDeletedCmd = &cobra.Command{
	Use:   "list-deleted",
	Short: "List staged deletion batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		mgr := staging.New(wd, "duperscooper-dev", "")
		batches, err := mgr.ListBatches()
		if err != nil {
			return err
		}
		for _, b := range batches {
			fmt.Printf("%s  items=%d tracks=%d bytes=%d\n", b.BatchID, b.ItemsDeleted, b.TracksDeleted, b.BytesFreed)
		}
		return nil
	},
}

var (
	emptyOlderThanDays int
	emptyKeepLast      int
)

var emptyDeletedCmd = &cobra.Command{
	Use:   "empty-deleted",
	Short: "Permanently remove staged deletion batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		mgr := staging.New(wd, "duperscooper-dev", "")
		removed, err := mgr.Empty(staging.EmptyFilter{OlderThanDays: emptyOlderThanDays, KeepLastN: emptyKeepLast})
		if err != nil {
			return err
		}
		fmt.Printf("removed %d batch(es)\n", removed)
		return nil
	},
}

func init() {
	emptyDeletedCmd.Flags().IntVar(&emptyOlderThanDays, "older-than-days", 0, "remove batches older than N days")
	emptyDeletedCmd.Flags().IntVar(&emptyKeepLast, "keep-last", 0, "retain the N most recent batches")

	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listDeletedCmd)
	rootCmd.AddCommand(emptyDeletedCmd)
}
