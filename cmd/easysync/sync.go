package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealerlink/easysync/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync [dealership-id]",
	Short: "Pull advertisement stock into local vehicle records",
	Long: `Sync fetches the full EasyCars advertisement inventory for a
dealership and upserts it into the local vehicle table, downloading
listing images along the way.

Per-item failures are recorded without aborting the run; the outcome is
always written to the sync history.`,
	Example: `  easysync sync dealer-042
  easysync sync --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStockSync,
}

var syncAll bool

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncAll, "all", false,
		"Sync every dealership with auto-sync enabled")
}

func runStockSync(cmd *cobra.Command, args []string) error {
	if syncAll == (len(args) == 1) {
		return errors.New("provide a dealership id or --all, not both")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !syncAll {
		return syncOne(ctx, args[0])
	}

	dealerships, err := apiClient.Store.AutoSyncDealerships(ctx)
	if err != nil {
		return fmt.Errorf("list auto-sync dealerships: %w", err)
	}
	if len(dealerships) == 0 {
		printWarning("No dealerships have auto-sync enabled")
		return nil
	}

	// Sequential on purpose: one dealership's run finishing frees its
	// slot before the next begins, and remote load stays bounded.
	var failed int
	for _, id := range dealerships {
		if ctx.Err() != nil {
			break
		}
		if err := syncOne(ctx, id); err != nil {
			failed++
			printError("%s: %v", id, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d dealerships failed", failed, len(dealerships))
	}
	return ctx.Err()
}

func syncOne(ctx context.Context, dealershipID string) error {
	start := time.Now()
	result, err := apiClient.Stock.SyncStock(ctx, dealershipID)
	if err != nil {
		return err
	}
	renderResult(dealershipID, result, time.Since(start))
	if result.Status == models.SyncFailed {
		return fmt.Errorf("stock sync failed for %s", dealershipID)
	}
	return nil
}

func renderResult(dealershipID string, result *models.SyncResult, elapsed time.Duration) {
	if jsonOutput {
		printJSON(map[string]interface{}{
			"dealership_id":     dealershipID,
			"status":            result.Status,
			"items_processed":   result.ItemsProcessed,
			"items_succeeded":   result.ItemsSucceeded,
			"items_failed":      result.ItemsFailed,
			"images_downloaded": result.ImagesDownloaded,
			"images_failed":     result.ImagesFailed,
			"errors":            result.Errors,
			"duration":          elapsed.Round(time.Millisecond).String(),
		})
		return
	}

	fmt.Printf("%s: %d/%d items synced, %d images (%s)\n",
		dealershipID, result.ItemsSucceeded, result.ItemsProcessed,
		result.ImagesDownloaded, elapsed.Round(time.Millisecond))
	for _, msg := range result.Errors {
		printWarning("  %s", msg)
	}
	switch result.Status {
	case models.SyncSuccess:
		printSuccess("Sync completed")
	case models.SyncPartialSuccess:
		printWarning("Sync completed with failures")
	default:
		printError("Sync failed")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		printWarning("\nInterrupted, cancelling...")
		cancel()
	}()
	return ctx, cancel
}
