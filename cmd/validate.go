// =============================================================================
// Line-Item Autofill - Validate Command
// =============================================================================
//
// Checks the configuration and every profile, and optionally converts files
// to show their validation findings, without touching the browser.
//
// COMMAND USAGE:
//   autofill validate [files...]
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/lineitem-autofill/internal/converter"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate configuration, profiles and (optionally) source files",
	Long: `Loads the main configuration and every profile, compiles each profile's
transformation rules, then converts any files given as arguments (loading
their mapping templates) and prints their validation findings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	r, err := newRunner(mainConfig, logger, "", true)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration OK (%s)\n", cfgFile)

	problems := 0
	for _, p := range r.profiles {
		if _, err := converter.NewTransformer(p.TransformationRules); err != nil {
			problems++
			fmt.Fprintf(out, "  ✗ profile %s: %v\n", p.ProfileCode, err)
			continue
		}
		fmt.Fprintf(out, "  ✓ profile %s (%s)\n", p.ProfileCode, p.ProfileName)
	}

	for _, res := range r.convertAll(cmd.Context(), args) {
		name := filepath.Base(res.FilePath)
		if res.Error != nil {
			problems++
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, res.Error)
		} else {
			fmt.Fprintf(out, "  ✓ %s: %d line items\n", name, len(res.Payloads))
		}
		if res.Validation != nil {
			for _, ve := range res.Validation.Errors {
				fmt.Fprintf(out, "      %s\n", ve.Error())
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problems found", problems)
	}
	return nil
}
