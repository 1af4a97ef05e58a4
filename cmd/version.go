// =============================================================================
// Line-Item Autofill - Version Command
// =============================================================================
//
// Prints the release, build date and Go runtime. Release builds stamp Version
// and BuildDate through -ldflags "-X .../cmd.Version=...".
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version is the release of this build.
	Version = "0.3.0"

	// BuildDate is stamped by release builds.
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the autofill release and runtime",
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Line-Item Autofill %s\n", Version)
		fmt.Fprintf(out, "  built: %s\n", BuildDate)
		fmt.Fprintf(out, "  go:    %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
