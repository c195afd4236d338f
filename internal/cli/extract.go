package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdftablepro/pdftab/internal/download"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/export"
	"github.com/pdftablepro/pdftab/internal/extract"
	"github.com/pdftablepro/pdftab/internal/workflow"
)

func newExtractCmd() *cobra.Command {
	var (
		flagFormat string
		flagOut    string
	)

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract tables from a PDF and save them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := entity.ParseFormat(flagFormat)
			if err != nil {
				return err
			}
			if flagEndpoint == "" {
				return fmt.Errorf("no extraction endpoint configured (set --endpoint or EXTRACTION_ENDPOINT)")
			}

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			logger := cliLogger()
			client, err := extract.NewClient(flagEndpoint, logger)
			if err != nil {
				return err
			}

			ctrl := workflow.New(client, logger, workflow.WithProgress(func(pct int) {
				fmt.Fprintf(cmd.OutOrStdout(), "\rProcessing... %3d%%", pct)
			}))

			candidate := entity.UploadCandidate{
				Filename:  filepath.Base(path),
				MediaType: mediaTypeFor(path),
				Size:      int64(len(content)),
				Content:   content,
			}
			if err := ctrl.Upload(cmd.Context(), candidate); err != nil {
				fmt.Fprintln(cmd.OutOrStdout())
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())

			snap := ctrl.Snapshot()
			result := snap.Result
			if result == nil || len(result.Tables) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tables found in the PDF.")
				return nil
			}

			data, err := export.Serialize(result, format, time.Now())
			if err != nil {
				return err
			}

			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			saved, err := download.Save(flagOut, base, format, data, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d table(s) to %s\n", len(result.Tables), saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagFormat, "format", "f", "csv", "output format: csv, excel or json")
	cmd.Flags().StringVarP(&flagOut, "out", "o", ".", "output directory")
	return cmd
}

// mediaTypeFor reports the candidate content type the way a browser would,
// from the file extension.
func mediaTypeFor(path string) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
