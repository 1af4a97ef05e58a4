// =============================================================================
// Line-Item Autofill - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (autofill)
//   ├── fillCmd     (autofill fill)
//   ├── watchCmd    (autofill watch)
//   ├── ocrCmd      (autofill ocr)
//   ├── validateCmd (autofill validate)
//   └── versionCmd  (autofill version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Global flags (--config, --env-file, --verbose)
//   2. Loading .env into the process environment
//   3. Loading the main configuration
//   4. Building the logger
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before anything else. Missing is fine.
var envFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and logger are set by the root PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	logger     = zap.NewNop()
)

// skipConfig marks commands that run without a configuration file.
const skipConfig = "skip-config"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "autofill",
	Short: "Line-Item Autofill - Enter supplier line items into the legacy purchasing form",
	Long: `Line-Item Autofill drives the legacy purchasing web form the way a clerk
would: it adds one row per line item and types each value into the row's
fields, firing the events the form's own scripts depend on.

Line items come from supplier CSV / XLSX exports or from OCR of scanned
documents, mapped onto the form's fields through per-supplier profiles.

Example Usage:
  autofill fill                        # Fill every file in the input directory
  autofill fill input/acme_0412.csv    # Fill one file
  autofill fill --dry-run              # Convert and validate only
  autofill ocr scans/do_118.pdf        # Extract line items to input/
  autofill watch                       # Fill files as they arrive
  autofill validate                    # Check configuration and profiles`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		if cmd.Annotations[skipConfig] == "true" {
			log, err := logging.New(logging.Options{Level: "info", Verbose: verbose})
			if err != nil {
				return err
			}
			logger = log
			return nil
		}

		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		log, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose, File: cfg.LogFile})
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		mainConfig = cfg
		logger = log
		logger.Debug("configuration loaded", zap.String("config", cfgFile))
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. Interrupts cancel the command's context so a fill in
// progress stops between host operations.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Environment file holding secrets such as the Gemini API key",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
