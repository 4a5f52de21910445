package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealerlink/easysync/internal/models"
)

var historyCmd = &cobra.Command{
	Use:   "history <dealership-id>",
	Short: "Show the sync history for a dealership",
	Example: `  easysync history dealer-042
  easysync history dealer-042 --type Lead --page 2
  easysync history dealer-042 --last`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var (
	historyPage int
	historySize int
	historyType string
	historyLast bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyPage, "page", 1, "Page number")
	historyCmd.Flags().IntVar(&historySize, "size", 20, "Entries per page")
	historyCmd.Flags().StringVar(&historyType, "type", "",
		"Filter by sync type (Stock or Lead)")
	historyCmd.Flags().BoolVar(&historyLast, "last", false,
		"Show only the most recent entry")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var typeFilter *models.SyncType
	switch historyType {
	case "":
	case string(models.SyncTypeStock), string(models.SyncTypeLead):
		t := models.SyncType(historyType)
		typeFilter = &t
	default:
		return fmt.Errorf("invalid sync type: %q", historyType)
	}

	if historyLast {
		entry, err := apiClient.Store.LastSync(ctx, args[0], typeFilter)
		if errors.Is(err, models.ErrNotFound) {
			printInfo("No sync history for %s", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		renderHistory([]*models.SyncLog{entry})
		return nil
	}

	entries, err := apiClient.Store.SyncHistory(ctx, args[0], historyPage, historySize, typeFilter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printInfo("No sync history for %s", args[0])
		return nil
	}
	renderHistory(entries)
	return nil
}

func renderHistory(entries []*models.SyncLog) {
	if jsonOutput {
		printJSON(entries)
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-5s  %-14s  %d/%d items",
			e.CreatedAt.Format(time.RFC3339), e.Type, e.Status,
			e.ItemsSucceeded, e.ItemsProcessed)
		if e.ImagesDownloaded > 0 || e.ImagesFailed > 0 {
			line += fmt.Sprintf(", %d images", e.ImagesDownloaded)
		}
		line += fmt.Sprintf("  (%s)", e.Duration.Round(time.Millisecond))
		switch e.Status {
		case models.SyncFailed:
			printError("%s", line)
		case models.SyncPartialSuccess:
			printWarning("%s", line)
		default:
			fmt.Println(line)
		}
		for _, msg := range e.Errors {
			fmt.Printf("    %s\n", msg)
		}
	}
}
