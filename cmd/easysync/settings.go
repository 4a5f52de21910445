package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Control sync scheduling settings",
}

var settingsEnableCmd = &cobra.Command{
	Use:   "enable-sync",
	Short: "Enable synchronization globally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSyncEnabled(true)
	},
}

var settingsDisableCmd = &cobra.Command{
	Use:   "disable-sync",
	Short: "Disable synchronization globally (kill switch)",
	Long: `Disable stops every scheduled and manual sync run from starting.
Runs already in flight finish normally.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSyncEnabled(false)
	},
}

var settingsAutoSyncCmd = &cobra.Command{
	Use:   "auto-sync <dealership-id> <on|off>",
	Short: "Include or exclude a dealership from scheduled syncs",
	Args:  cobra.ExactArgs(2),
	RunE:  runAutoSync,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsEnableCmd)
	settingsCmd.AddCommand(settingsDisableCmd)
	settingsCmd.AddCommand(settingsAutoSyncCmd)
}

func setSyncEnabled(enabled bool) error {
	if err := apiClient.Store.SetSyncEnabled(context.Background(), enabled); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{"sync_enabled": enabled})
	} else if enabled {
		printSuccess("Sync enabled")
	} else {
		printWarning("Sync disabled")
	}
	return nil
}

func runAutoSync(cmd *cobra.Command, args []string) error {
	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("expected \"on\" or \"off\", got %q", args[1])
	}

	if err := apiClient.Store.SetAutoSync(context.Background(), args[0], enabled); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{
			"dealership_id": args[0],
			"auto_sync":     enabled,
		})
	} else {
		printSuccess("Auto-sync %s for %s", args[1], args[0])
	}
	return nil
}
