// =============================================================================
// Line-Item Autofill - Fill Command
// =============================================================================
//
// The main command: converts source files into line items and enters them
// into the host form.
//
// COMMAND USAGE:
//   autofill fill [files...] [flags]
//
// FLAGS:
//   --dry-run  : Convert and validate only; the browser is never opened
//   --profile  : Use this profile code for every file instead of matching
//
// PROCESSING PIPELINE:
//   1. Load profiles and discover source files (or take them from args)
//   2. Convert every file concurrently (profile match, mapping, validation)
//   3. Open the browser and locate the form tab
//   4. Fill each converted file, one row per line item, strictly in order
//   5. Archive files whose every line item was entered
//   6. Write the run summary to the reports directory
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun        bool
	forcedProfile string
)

// =============================================================================
// FILL COMMAND DEFINITION
// =============================================================================

var fillCmd = &cobra.Command{
	Use:   "fill [files...]",
	Short: "Enter line items from source files into the host form",
	Long: `The fill command converts each source file into line items and enters
them into the host form, adding one row per item.

Without arguments every CSV, XLSX and OCR JSON file in the input directory is
processed. Conversion runs concurrently; filling is sequential because all
rows go into the same form.

A failed row never stops the batch. Files with a failed row stay in the input
directory; fully entered files are moved to the input archive. Each run
writes a summary to the reports directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runFill(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Convert and validate without opening the browser",
	)

	fillCmd.Flags().StringVar(
		&forcedProfile,
		"profile",
		"",
		"Profile code to use for every file",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	r, err := newRunner(mainConfig, logger, forcedProfile, dryRun)
	if err != nil {
		return err
	}
	defer r.close()

	files := args
	if len(files) == 0 {
		files, err = r.files.DiscoverInputFiles(sourceExtensions)
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		logger.Info("no source files found", zap.String("dir", mainConfig.InputDir))
		return nil
	}
	logger.Info("starting run", zap.Int("files", len(files)), zap.Bool("dry_run", dryRun))

	summary, err := r.process(ctx, files)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	_, failedFiles, _, _ := summary.Totals()
	if failedFiles > 0 {
		return fmt.Errorf("%d of %d files did not complete", failedFiles, len(summary.Files))
	}
	return nil
}
