// =============================================================================
// Line-Item Autofill - Watch Command
// =============================================================================
//
// Keeps running and fills each source file as it lands in the input
// directory. The browser session is opened on the first file and reused.
//
// COMMAND USAGE:
//   autofill watch [--existing] [--profile code]
//
// =============================================================================

package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/watcher"
)

var watchExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fill source files as they arrive in the input directory",
	Long: `Watches the input directory and runs the fill pipeline for every new or
rewritten source file once it has stopped changing for watch.debounce_ms.
Stop with Ctrl+C; a file in progress stops between host operations.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(
		&watchExisting,
		"existing",
		false,
		"Fill files already in the input directory before watching",
	)
	watchCmd.Flags().StringVar(
		&forcedProfile,
		"profile",
		"",
		"Profile code to use for every file",
	)
}

func runWatch(ctx context.Context) error {
	r, err := newRunner(mainConfig, logger, forcedProfile, false)
	if err != nil {
		return err
	}
	defer r.close()

	if watchExisting {
		files, err := r.files.DiscoverInputFiles(sourceExtensions)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if _, err := r.process(ctx, files); err != nil {
				return err
			}
		}
	}

	handle := func(ctx context.Context, path string) {
		if _, err := os.Stat(path); err != nil {
			// Archived or removed while debouncing.
			return
		}
		if _, err := r.process(ctx, []string{path}); err != nil {
			logger.Error("run failed", zap.String("file", path), zap.Error(err))
		}
	}

	debounce := time.Duration(mainConfig.Watch.DebounceMs) * time.Millisecond
	w, err := watcher.New(mainConfig.InputDir, sourceExtensions, debounce, handle, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-w.Done()
	stats := w.Stats()
	logger.Info("watch stopped", zap.Int("files", stats.FilesHandled), zap.Int("errors", stats.Errors))
	return nil
}
