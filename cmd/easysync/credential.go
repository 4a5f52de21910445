package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dealerlink/easysync/internal/models"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage dealership EasyCars credentials",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set <dealership-id>",
	Short: "Store or replace a dealership's credentials",
	Long: `Set encrypts the EasyCars secrets with the configured master key and
stores them. Secrets not passed as flags are prompted for without echo.`,
	Example: `  easysync credential set dealer-042 --environment Production --yard-code NTH
  easysync credential set dealer-042 --account-id ACC123`,
	Args: cobra.ExactArgs(1),
	RunE: runCredentialSet,
}

var credentialTestCmd = &cobra.Command{
	Use:   "test <dealership-id>",
	Short: "Verify stored credentials against the EasyCars token endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialTest,
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete <dealership-id>",
	Short: "Remove a dealership's stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialDelete,
}

var (
	credEnvironment   string
	credYardCode      string
	credClientID      string
	credClientSecret  string
	credAccountID     string
	credAccountSecret string
)

func init() {
	rootCmd.AddCommand(credentialCmd)
	credentialCmd.AddCommand(credentialSetCmd)
	credentialCmd.AddCommand(credentialTestCmd)
	credentialCmd.AddCommand(credentialDeleteCmd)

	credentialSetCmd.Flags().StringVarP(&credEnvironment, "environment", "e", "Test",
		"Target environment (Test or Production)")
	credentialSetCmd.Flags().StringVar(&credYardCode, "yard-code", "",
		"Yard code filter for stock syncs")
	credentialSetCmd.Flags().StringVar(&credClientID, "client-id", "",
		"Client id (will prompt if not provided)")
	credentialSetCmd.Flags().StringVar(&credClientSecret, "client-secret", "",
		"Client secret (will prompt if not provided)")
	credentialSetCmd.Flags().StringVar(&credAccountID, "account-id", "",
		"Account id (will prompt if not provided)")
	credentialSetCmd.Flags().StringVar(&credAccountSecret, "account-secret", "",
		"Account secret (will prompt if not provided)")
}

func runCredentialSet(cmd *cobra.Command, args []string) error {
	dealershipID := args[0]

	env, err := models.ParseEnvironment(credEnvironment)
	if err != nil {
		return err
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"Client id", &credClientID},
		{"Client secret", &credClientSecret},
		{"Account id", &credAccountID},
		{"Account secret", &credAccountSecret},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		v, err := promptSecret(f.name + ": ")
		if err != nil {
			return fmt.Errorf("read %s: %w", f.name, err)
		}
		*f.value = v
	}

	encrypted := make([]string, 4)
	for i, plain := range []string{credClientID, credClientSecret, credAccountID, credAccountSecret} {
		blob, err := apiClient.Vault.Encrypt(plain)
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		encrypted[i] = blob
	}

	cred, err := models.NewCredential(dealershipID,
		encrypted[0], encrypted[1], encrypted[2], encrypted[3], env, credYardCode)
	if err != nil {
		return err
	}

	ctx := context.Background()
	exists, err := apiClient.Store.CredentialExists(ctx, dealershipID)
	if err != nil {
		return err
	}
	if exists {
		existing, err := apiClient.Store.CredentialByDealership(ctx, dealershipID)
		if err != nil {
			return err
		}
		if err := existing.Update(encrypted[0], encrypted[1], encrypted[2], encrypted[3], env, credYardCode, true); err != nil {
			return err
		}
		if err := apiClient.Store.UpdateCredential(ctx, existing); err != nil {
			return err
		}
	} else if err := apiClient.Store.CreateCredential(ctx, cred); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":       true,
			"dealership_id": dealershipID,
			"environment":   env,
			"updated":       exists,
		})
	} else {
		printSuccess("Credentials stored for %s (%s)", dealershipID, env)
	}
	return nil
}

func runCredentialTest(cmd *cobra.Command, args []string) error {
	dealershipID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cred, err := apiClient.Store.CredentialByDealership(ctx, dealershipID)
	if err != nil {
		return err
	}
	accountID, err := apiClient.Vault.Decrypt(cred.AccountID)
	if err != nil {
		return fmt.Errorf("decrypt account id: %w", err)
	}
	accountSecret, err := apiClient.Vault.Decrypt(cred.AccountSecret)
	if err != nil {
		return fmt.Errorf("decrypt account secret: %w", err)
	}

	err = apiClient.API.TestCredential(ctx, cred.Environment, accountID, accountSecret)
	if jsonOutput {
		out := map[string]interface{}{
			"success":       err == nil,
			"dealership_id": dealershipID,
			"environment":   cred.Environment,
		}
		if err != nil {
			out["error"] = err.Error()
		}
		printJSON(out)
		return err
	}

	if err == nil {
		printSuccess("Credentials valid for %s (%s)", dealershipID, cred.Environment)
		return nil
	}

	// Distinguish "wrong secret" from "could not reach the API" so an
	// admin knows whether to re-enter secrets or just retry.
	var authErr *models.AuthError
	var timeoutErr *models.TimeoutError
	var netErr *models.NetworkError
	switch {
	case errors.As(err, &authErr):
		printError("Credentials rejected: %s", authErr.Message)
	case errors.As(err, &timeoutErr):
		printError("EasyCars did not respond in time; credentials not verified")
	case errors.As(err, &netErr):
		printError("Could not reach EasyCars: %v", netErr.Err)
	default:
		printError("Credential test failed: %v", err)
	}
	return err
}

func runCredentialDelete(cmd *cobra.Command, args []string) error {
	if err := apiClient.Store.DeleteCredential(context.Background(), args[0]); err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "dealership_id": args[0]})
	} else {
		printSuccess("Credentials deleted for %s", args[0])
	}
	return nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(value) == 0 {
		return "", errors.New("empty value")
	}
	return string(value), nil
}
