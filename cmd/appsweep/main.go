// Command appsweep finds installed macOS applications, shows how big and how
// stale each one is, and sweeps away the ones you pick along with their
// Library leftovers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tw93/appsweep/internal/cache"
	"github.com/tw93/appsweep/internal/config"
	"github.com/tw93/appsweep/internal/enrich"
	"github.com/tw93/appsweep/internal/pipeline"
	"github.com/tw93/appsweep/internal/progress"
	"github.com/tw93/appsweep/internal/protect"
	"github.com/tw93/appsweep/internal/remove"
	"github.com/tw93/appsweep/internal/scan"
	"github.com/tw93/appsweep/internal/tui"
)

var (
	flagForce  bool
	flagTTL    int64
	flagDebug  bool
	flagDryRun bool
)

var rootCmd = &cobra.Command{
	Use:           "appsweep",
	Short:         "Find and remove unused macOS applications",
	Long:          "appsweep scans /Applications for installed apps, ranks them by how long they have sat unused, and removes the ones you select together with their ~/Library leftovers.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSweep,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagForce, "force", "f", false, "rescan even when the cache is fresh")
	rootCmd.PersistentFlags().Int64Var(&flagTTL, "cache-ttl", 0, "cache lifetime in seconds (default from config, 86400)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose scan logging")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the removal plan without deleting anything")
}

func main() {
	// Ctrl+C drains through the pipeline's cancellation path, so the
	// progress line is cleared and in-flight workers wind down.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, pipeline.ErrNoCandidates) {
			fmt.Fprintln(os.Stderr, "no applications found")
			os.Exit(1)
		}
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildRunner assembles the scan pipeline from config and flags.
func buildRunner(logger zerolog.Logger) (*pipeline.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	ttl := cfg.CacheTTLSeconds
	if flagTTL > 0 {
		ttl = flagTTL
	}

	cacheDir, err := cache.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	policy := protect.New(cfg.Protected...)
	return &pipeline.Runner{
		Store:      cache.New(cacheDir, cfg.Roots),
		Scanner:    scan.New(cfg.Roots, policy, logger),
		Pool:       enrich.NewPool(cfg.Workers, enrich.NewSpotlightProber(), logger),
		Progress:   progress.New(os.Stderr),
		TTLSeconds: ttl,
		Force:      flagForce,
		Log:        logger,
	}, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(flagDebug)

	runner, err := buildRunner(logger)
	if err != nil {
		return err
	}
	records, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	selected, err := tui.Pick(records)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "nothing selected")
		return nil
	}

	plans, err := remove.BuildPlans(selected)
	if err != nil {
		return err
	}

	if flagDryRun {
		printPlans(plans)
		return nil
	}

	var failures int
	for _, plan := range plans {
		removed, failed := plan.Execute(logger)
		failures += len(failed)
		fmt.Printf("removed %s (%d paths)\n", plan.Record.DisplayName, len(removed))
	}
	if failures > 0 {
		return fmt.Errorf("%d paths could not be removed", failures)
	}

	// The swept apps are gone, so the cached scan is out of date.
	if runner.Store != nil {
		_ = os.Remove(runner.Store.Path())
	}
	return nil
}

func printPlans(plans []remove.Plan) {
	for _, plan := range plans {
		fmt.Printf("%s (%s, last used %s)\n", plan.Record.DisplayName, plan.Record.SizeHuman, plan.Record.LastUsedLabel)
		for _, path := range plan.Paths {
			fmt.Printf("  would remove %s\n", path)
		}
	}
}
