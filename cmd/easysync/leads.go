package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealerlink/easysync/internal/models"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Push, pull and reconcile leads with EasyCars",
}

var leadsPushCmd = &cobra.Command{
	Use:   "push <dealership-id> <lead-id>",
	Short: "Push one local lead to EasyCars",
	Long: `Push creates the lead remotely if it has never been linked, storing
the returned lead number, or updates the existing remote lead in place.`,
	Args: cobra.ExactArgs(2),
	RunE: runLeadPush,
}

var leadsPushStatusCmd = &cobra.Command{
	Use:   "push-status <dealership-id> <lead-id>",
	Short: "Push one lead's status change to EasyCars",
	Args:  cobra.ExactArgs(2),
	RunE:  runLeadPushStatus,
}

var leadsPullCmd = &cobra.Command{
	Use:   "pull <dealership-id>",
	Short: "Refresh linked leads' contact details from EasyCars",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadPull,
}

var leadsReconcileCmd = &cobra.Command{
	Use:   "reconcile <dealership-id>",
	Short: "Compare lead statuses with EasyCars and record conflicts",
	Long: `Reconcile fetches the remote status of every linked lead and records
a conflict for each divergence. Nothing is merged automatically; use
"leads conflicts" to inspect and "leads resolve" to settle them.`,
	Args: cobra.ExactArgs(1),
	RunE: runLeadReconcile,
}

var leadsConflictsCmd = &cobra.Command{
	Use:   "conflicts <dealership-id>",
	Short: "List unresolved lead status conflicts",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadConflicts,
}

var leadsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id> <local|remote>",
	Short: "Resolve a lead status conflict",
	Long: `Resolve applies the chosen side of a recorded conflict: "local"
pushes the local status to EasyCars, "remote" applies the remote status
to the local lead. A conflict can be resolved only once.`,
	Example: `  easysync leads resolve 17 local --by jane
  easysync leads resolve 17 remote --by ops-review`,
	Args: cobra.ExactArgs(2),
	RunE: runLeadResolve,
}

var resolveBy string

func init() {
	rootCmd.AddCommand(leadsCmd)
	leadsCmd.AddCommand(leadsPushCmd)
	leadsCmd.AddCommand(leadsPushStatusCmd)
	leadsCmd.AddCommand(leadsPullCmd)
	leadsCmd.AddCommand(leadsReconcileCmd)
	leadsCmd.AddCommand(leadsConflictsCmd)
	leadsCmd.AddCommand(leadsResolveCmd)

	leadsResolveCmd.Flags().StringVar(&resolveBy, "by", "",
		"Name recorded as the resolver (required)")
	_ = leadsResolveCmd.MarkFlagRequired("by")
}

func runLeadPush(cmd *cobra.Command, args []string) error {
	leadID, err := parseID(args[1], "lead-id")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := apiClient.Leads.SyncLeadToRemote(ctx, args[0], leadID); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "lead_id": leadID})
	} else {
		printSuccess("Lead %d pushed", leadID)
	}
	return nil
}

func runLeadPushStatus(cmd *cobra.Command, args []string) error {
	leadID, err := parseID(args[1], "lead-id")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := apiClient.Leads.SyncLeadStatusToRemote(ctx, args[0], leadID); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "lead_id": leadID})
	} else {
		printSuccess("Lead %d status pushed", leadID)
	}
	return nil
}

func runLeadPull(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, err := apiClient.Leads.SyncLeadsFromRemote(ctx, args[0])
	if err != nil {
		return err
	}
	renderResult(args[0], result, time.Since(start))
	if result.Status == models.SyncFailed {
		return fmt.Errorf("lead pull failed for %s", args[0])
	}
	return nil
}

func runLeadReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, err := apiClient.Leads.SyncLeadStatusesFromRemote(ctx, args[0])
	if err != nil {
		return err
	}
	renderResult(args[0], result, time.Since(start))
	if result.Status == models.SyncFailed {
		return fmt.Errorf("status reconciliation failed for %s", args[0])
	}
	return nil
}

func runLeadConflicts(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	conflicts, err := apiClient.Store.UnresolvedConflicts(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(conflicts)
		return nil
	}
	if len(conflicts) == 0 {
		printInfo("No unresolved conflicts")
		return nil
	}
	for _, c := range conflicts {
		remote := "?"
		if s, err := models.LeadStatusFromRemote(c.RemoteStatus); err == nil {
			remote = string(s)
		}
		fmt.Printf("#%d lead %d (%s): local=%s remote=%s detected=%s\n",
			c.ID, c.LeadID, c.RemoteLeadNumber, c.LocalStatus, remote,
			c.DetectedAt.Format(time.RFC3339))
	}
	return nil
}

func runLeadResolve(cmd *cobra.Command, args []string) error {
	conflictID, err := parseID(args[0], "conflict-id")
	if err != nil {
		return err
	}
	resolution, err := models.ParseResolution(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := apiClient.Leads.ResolveConflict(ctx, conflictID, resolution, resolveBy); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":     true,
			"conflict_id": conflictID,
			"resolution":  resolution,
		})
	} else {
		printSuccess("Conflict %d resolved (%s wins)", conflictID, resolution)
	}
	return nil
}

func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return id, nil
}
