package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/carbonledger/carbonledger/internal/identity"
	"github.com/carbonledger/carbonledger/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	token     string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "carbonctl",
	Short: "Carbon ledger CLI",
	Long: `carbonctl is the command-line interface for the carbon ledger.

It lets companies log and correct emissions disclosures, auditors record
attestations, and the ledger admin manage the pause switch and auditor
grants.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.carbonledger")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.carbonledger/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ledger server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (or set TOKEN)")

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
	rootCmd.AddCommand(auditorCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(totalCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithToken(token))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── log ──────────────────────────────────────────────────────────────────────

var (
	logScope    uint64
	logAmount   uint64
	logDocHash  string
	logPeriod   string
	logMetadata string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a new emissions disclosure entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := newClient().LogEmissions(context.Background(), client.LogEmissionsRequest{
			Scope:           logScope,
			Amount:          logAmount,
			DocHash:         logDocHash,
			ReportingPeriod: logPeriod,
			Metadata:        logMetadata,
		})
		if err != nil {
			return fmt.Errorf("log emissions: %w", err)
		}
		fmt.Printf("✓ Entry logged\n\n  ID: %d\n", id)
		return nil
	},
}

func init() {
	logCmd.Flags().Uint64Var(&logScope, "scope", 1, "Emission scope (1, 2 or 3)")
	logCmd.Flags().Uint64Var(&logAmount, "amount", 0, "Emission amount (tonnes CO2e)")
	logCmd.Flags().StringVar(&logDocHash, "doc-hash", "", "Hex-encoded 32-byte digest of the supporting document")
	logCmd.Flags().StringVar(&logPeriod, "period", "", "Reporting period (e.g. 2025-Q1)")
	logCmd.Flags().StringVar(&logMetadata, "metadata", "", "Free-form metadata")

	_ = logCmd.MarkFlagRequired("amount")
	_ = logCmd.MarkFlagRequired("doc-hash")
	_ = logCmd.MarkFlagRequired("period")
}

// ── update ───────────────────────────────────────────────────────────────────

var (
	updAmount  uint64
	updReason  string
	updVersion uint64
)

var updateCmd = &cobra.Command{
	Use:   "update <entry-id>",
	Short: "Layer a correction version on an existing entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "entry-id")
		if err != nil {
			return err
		}
		if err := newClient().UpdateEmission(context.Background(), id, updAmount, updReason, updVersion); err != nil {
			return fmt.Errorf("update emission: %w", err)
		}
		fmt.Printf("✓ Correction recorded (entry %d, version %d)\n", id, updVersion)
		return nil
	},
}

func init() {
	updateCmd.Flags().Uint64Var(&updAmount, "amount", 0, "Corrected emission amount")
	updateCmd.Flags().StringVar(&updReason, "reason", "", "Reason for the correction")
	updateCmd.Flags().Uint64Var(&updVersion, "version", 1, "Version number to record (must be > 0)")

	_ = updateCmd.MarkFlagRequired("amount")
	_ = updateCmd.MarkFlagRequired("reason")
}

// ── verify ───────────────────────────────────────────────────────────────────

var (
	verCompany  string
	verVerified bool
	verNotes    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <entry-id>",
	Short: "Record an auditor attestation for a company's entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "entry-id")
		if err != nil {
			return err
		}
		if err := newClient().VerifyEmission(context.Background(), verCompany, id, verVerified, verNotes); err != nil {
			return fmt.Errorf("verify emission: %w", err)
		}
		fmt.Printf("✓ Attestation recorded (company %s, entry %d, verified=%t)\n", verCompany, id, verVerified)
		return nil
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	verifyCmd.Flags().StringVar(&verCompany, "company", "", "Company whose entry is being attested")
	verifyCmd.Flags().BoolVar(&verVerified, "verified", true, "Attestation outcome")
	verifyCmd.Flags().StringVar(&verNotes, "notes", "", "Auditor notes")

	_ = verifyCmd.MarkFlagRequired("company")
}

// ── pause / unpause ──────────────────────────────────────────────────────────

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the ledger (admin only); all writes are rejected until unpause",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Pause(context.Background()); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		fmt.Println("✓ Ledger paused")
		return nil
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Unpause the ledger (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Unpause(context.Background()); err != nil {
			return fmt.Errorf("unpause: %w", err)
		}
		fmt.Println("✓ Ledger unpaused")
		return nil
	},
}

// ── auditor ──────────────────────────────────────────────────────────────────

var auditorCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Manage auditor grants",
}

var auditorAddCmd = &cobra.Command{
	Use:   "add <principal>",
	Short: "Grant auditor rights (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().AddAuditor(context.Background(), args[0]); err != nil {
			return fmt.Errorf("add auditor: %w", err)
		}
		fmt.Printf("✓ Auditor %s granted\n", args[0])
		return nil
	},
}

var auditorRemoveCmd = &cobra.Command{
	Use:   "remove <principal>",
	Short: "Revoke auditor rights (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().RemoveAuditor(context.Background(), args[0]); err != nil {
			return fmt.Errorf("remove auditor: %w", err)
		}
		fmt.Printf("✓ Auditor %s revoked\n", args[0])
		return nil
	},
}

var auditorShowCmd = &cobra.Command{
	Use:   "show <principal>",
	Short: "Check whether a principal holds an auditor grant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := newClient().IsAuditor(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("show auditor: %w", err)
		}
		fmt.Printf("%s: authorized=%t\n", args[0], ok)
		return nil
	},
}

func init() {
	auditorCmd.AddCommand(auditorAddCmd)
	auditorCmd.AddCommand(auditorRemoveCmd)
	auditorCmd.AddCommand(auditorShowCmd)
}

// ── settings ─────────────────────────────────────────────────────────────────

var (
	setFrequency string
	setAutoAgg   bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Set the authenticated company's reporting preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().SetSettings(context.Background(), setFrequency, setAutoAgg); err != nil {
			return fmt.Errorf("set settings: %w", err)
		}
		fmt.Println("✓ Settings saved")
		return nil
	},
}

func init() {
	settingsCmd.Flags().StringVar(&setFrequency, "frequency", "annual", "Reporting frequency (e.g. annual, quarterly)")
	settingsCmd.Flags().BoolVar(&setAutoAgg, "auto-aggregate", false, "Enable automatic aggregation")

	_ = settingsCmd.MarkFlagRequired("frequency")
}

// ── get ──────────────────────────────────────────────────────────────────────

var (
	getVersionN uint64
	getKind     string
)

var getCmd = &cobra.Command{
	Use:   "get <company> <entry-id>",
	Short: "Fetch an entry, one of its versions, its verification, or the company settings",
	Long: `get reads ledger records. The --kind flag selects what to fetch:

  carbonctl get acme 3                      # the entry itself
  carbonctl get acme 3 --kind version --version 2
  carbonctl get acme 3 --kind verification
  carbonctl get acme 0 --kind settings      # entry-id ignored`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		company := args[0]
		id, err := parseUint(args[1], "entry-id")
		if err != nil {
			return err
		}
		c := newClient()
		ctx := context.Background()

		switch getKind {
		case "entry":
			e, err := c.GetEmission(ctx, company, id)
			if err != nil {
				return err
			}
			return printJSON(e)
		case "version":
			v, err := c.GetVersion(ctx, company, id, getVersionN)
			if err != nil {
				return err
			}
			return printJSON(v)
		case "verification":
			v, err := c.GetVerification(ctx, company, id)
			if err != nil {
				return err
			}
			return printJSON(v)
		case "settings":
			s, err := c.GetSettings(ctx, company)
			if err != nil {
				return err
			}
			return printJSON(s)
		default:
			return fmt.Errorf("unknown kind %q (want entry, version, verification or settings)", getKind)
		}
	},
}

func init() {
	getCmd.Flags().StringVar(&getKind, "kind", "entry", "What to fetch: entry, version, verification or settings")
	getCmd.Flags().Uint64Var(&getVersionN, "version", 1, "Version number (with --kind version)")
}

// ── total ────────────────────────────────────────────────────────────────────

var (
	totalStart uint64
	totalEnd   uint64
)

var totalCmd = &cobra.Command{
	Use:   "total <company>",
	Short: "Sum a company's entry amounts over an id range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newClient().TotalEmissions(context.Background(), args[0], totalStart, totalEnd)
		if err != nil {
			return fmt.Errorf("total emissions: %w", err)
		}
		fmt.Printf("Company: %s\nRange:   [%d, %d]\nTotal:   %d\n", t.Company, t.Start, t.End, t.Total)
		return nil
	},
}

func init() {
	totalCmd.Flags().Uint64Var(&totalStart, "start", 0, "First entry id of the range")
	totalCmd.Flags().Uint64Var(&totalEnd, "end", 0, "Last entry id of the range (inclusive)")

	_ = totalCmd.MarkFlagRequired("end")
}

// ── overview ─────────────────────────────────────────────────────────────────

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show ledger-wide state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ov, err := newClient().GetOverview(context.Background())
		if err != nil {
			return fmt.Errorf("overview: %w", err)
		}
		fmt.Printf("Entries: %d\nPaused:  %t\nAdmin:   %s\n", ov.Entries, ov.Paused, ov.Admin)
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSecret    string
	tokenPrincipal string
	tokenTTL       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a principal (requires the server's signing secret)",
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer := identity.NewTokenIssuer([]byte(tokenSecret), serverURL, tokenTTL)
		tok, err := issuer.Issue(tokenPrincipal)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "HMAC signing secret (must match the server's auth.token_secret)")
	tokenCmd.Flags().StringVar(&tokenPrincipal, "principal", "", "Principal the token authenticates")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")

	_ = tokenCmd.MarkFlagRequired("secret")
	_ = tokenCmd.MarkFlagRequired("principal")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the carbonctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("carbonctl", version)
	},
}

func parseUint(s, name string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}
