// Package cli implements the pdftab command line interface.
package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdftablepro/pdftab/internal/common"
)

var (
	flagEndpoint string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "pdftab",
	Short: "Extract tables from PDF files into CSV, Excel or JSON",
	Long: `pdftab sends a PDF to the extraction service and saves the detected
tables as CSV, Excel (xlsx) or JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", os.Getenv("EXTRACTION_ENDPOINT"),
		"extraction service URL (defaults to EXTRACTION_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newExtractCmd())
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", errorText(err))
		return 1
	}
	return 0
}

func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// errorText prefers the user-facing message over the full error chain.
func errorText(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
