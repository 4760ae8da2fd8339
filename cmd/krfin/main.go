// krfin resolves Korean and US listed companies and fetches their
// disclosures, financial statements and market data.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/krfin/api"
	"github.com/seenimoa/krfin/internal/config"
	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/providers"
	"github.com/seenimoa/krfin/internal/session"
	"github.com/seenimoa/krfin/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up before every command.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "krfin",
	Short: "Korean and US company resolver and report fetcher",
	Long: `krfin resolves a stock code or a company name against the KRX/OpenDART
directory, asks you to pick when a name is ambiguous, and fetches reports
(disclosures, financial statements, market cap, shares outstanding, beta)
with per-report fallback. US statements come from FMP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			level = l
		}
		logger = infra.NewLogger(level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCommands()...)
}

// registry builds a provider registry from the loaded config.
func registry() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := providers.RegisterAllTo(reg, cfg, logger); err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}
	return reg, nil
}

// newSession opens the single session a CLI invocation works in.
func newSession() (*session.Session, error) {
	reg, err := registry()
	if err != nil {
		return nil, err
	}
	opts, err := session.OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return session.New("cli", reg, opts), nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "krfin %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry()
		if err != nil {
			return err
		}
		srv, err := api.NewServer(cfg, reg, logger, version)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, API keys and registered providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		rule := strings.Repeat("═", 39)
		now := utils.NowKST()

		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, "  krfin: System Status")
		fmt.Fprintln(out, rule)
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Date (KST):    %s\n", utils.FormatDateKST(now))
		fmt.Fprintf(out, "  Trading day:   %t\n", utils.IsTradingDay(now))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Markets:       %s\n", strings.Join(cfg.Directory.Markets, ", "))
		fmt.Fprintf(out, "    Divisions:     %s\n", strings.Join(cfg.Statements.Variants, " → "))
		fmt.Fprintf(out, "    Code width:    %d (bidirectional: %t)\n", cfg.Resolver.CodeWidth, cfg.Resolver.Bidirectional)
		fmt.Fprintf(out, "    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ %d set (%s: %s)", k.Count, k.Source, strings.Join(k.Masked, ", "))
			}
			fmt.Fprintf(out, "    %-20s %s\n", k.Name+":", status)
		}
		fmt.Fprintln(out)

		reg, err := registry()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "  Providers:")
		for _, p := range reg.List() {
			fmt.Fprintf(out, "    %-10s %d models  %s\n", p.Name, len(p.Models), p.Description)
		}
		fmt.Fprintln(out)

		// Fallback order per model; the first provider is tried first.
		fmt.Fprintln(out, "  Coverage:")
		category := ""
		for _, m := range provider.AllModels() {
			if c := provider.ModelCategory(m); c != category {
				category = c
				fmt.Fprintf(out, "    %s\n", c)
			}
			names := reg.ProvidersFor(m)
			if len(names) == 0 {
				fmt.Fprintf(out, "      %-20s ❌ no provider\n", m)
				continue
			}
			def, _ := reg.DefaultProvider(m)
			fmt.Fprintf(out, "      %-20s %s (default %s)\n", m, strings.Join(names, " → "), def)
		}
		fmt.Fprintln(out, rule)
		return nil
	},
}
