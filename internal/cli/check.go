package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/providers"
	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
	"github.com/custodia-labs/agency-connect/internal/config"
	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// errNotReady makes check-config exit non-zero
var errNotReady = errors.New("configuration would not start in strict production")

// checkCmd represents the check-config command
var checkCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate keys and provider configuration",
	Long: `Validate the configuration without starting the server.

This command checks:
- OAuth state signing key and token encryption key
- Provider client credentials and endpoints

It exits non-zero when APP_ENV=production would refuse to start.`,
	RunE: runCheck,
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

// CheckReport is the output of check-config
type CheckReport struct {
	Env       string            `json:"env"`
	Strict    bool              `json:"strict_production"`
	Keys      secrets.Readiness `json:"keys"`
	Providers []CheckResult     `json:"providers"`
}

// CheckResult represents the state of one provider
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	report, err := buildCheckReport(cfg)
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else if err := writeCheckReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if report.Strict && !report.Keys.Ready() {
		return errNotReady
	}
	return nil
}

func buildCheckReport(cfg *config.Config) (*CheckReport, error) {
	registry, err := providers.NewRegistry(cfg.ProviderRegistryConfig())
	if err != nil {
		return nil, err
	}

	report := &CheckReport{
		Env:    cfg.Env,
		Strict: cfg.IsStrictProduction(),
		Keys:   secrets.ValidateConfig(cfg.Keys),
	}

	for _, provider := range domain.KnownProviders() {
		pc, _ := registry.Lookup(provider)
		result := CheckResult{Name: string(provider), Status: "OK"}
		switch {
		case pc.IsConfigured():
		case !pc.HasClientCredentials():
			result.Status = "MISSING"
			result.Message = "client id or secret not set"
		default:
			result.Status = "INCOMPLETE"
			result.Message = "endpoint or redirect URL not set"
		}
		report.Providers = append(report.Providers, result)
	}
	return report, nil
}

func writeCheckReport(out io.Writer, report *CheckReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "APP_ENV\t%s\t(strict: %t)\n", report.Env, report.Strict)
	fmt.Fprintf(w, "OAUTH_STATE_SECRET\t%s\n", presence(report.Keys.SigningKeyPresent))
	fmt.Fprintf(w, "TOKEN_ENCRYPTION_KEY\t%s\n", presence(report.Keys.EncryptionKeyPresent))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROVIDER\tSTATUS\tMESSAGE")
	for _, r := range report.Providers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Message)
	}

	if len(report.Keys.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range report.Keys.Warnings {
			fmt.Fprintf(w, "WARNING\t%s\n", warning)
		}
	}

	return w.Flush()
}

func presence(ok bool) string {
	if ok {
		return "set"
	}
	return "MISSING"
}
