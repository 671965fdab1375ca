package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/config"
)

var flagPlain bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the application inventory without removing anything",
	Long:  "Scans (or serves the cached scan) and prints every application sorted by last use, oldest first. With --plain the output is the raw versioned record format other tools can parse.",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&flagPlain, "plain", false, "emit the raw record format instead of a table")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(flagDebug)

	runner, err := buildRunner(logger)
	if err != nil {
		return err
	}
	records, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	if flagPlain {
		_, err := os.Stdout.Write(apps.Marshal(records))
		return err
	}

	for _, rec := range records {
		fmt.Printf("%-36s %10s  %-14s %s\n", truncateName(rec.DisplayName, 36), rec.SizeHuman, rec.LastUsedLabel, rec.Path)
	}
	return nil
}

// truncateName clips to n runes, not bytes, so multibyte names stay valid
// UTF-8.
func truncateName(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
