// =============================================================================
// Line-Item Autofill - OCR Command
// =============================================================================
//
// Extracts line items from scanned documents with Gemini and saves them as
// OCR JSON in the input directory, where fill and watch pick them up.
//
// COMMAND USAGE:
//   autofill ocr <document>... [--out dir]
//
// The API key is read from the environment variable named by ocr.api_key_env
// (GEMINI_API_KEY by default); --env-file is a convenient place to keep it.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/ocr"
)

var ocrOutDir string

var ocrCmd = &cobra.Command{
	Use:   "ocr <document>...",
	Short: "Extract line items from scanned documents",
	Long: `Sends each PNG, JPEG, WebP or PDF document to Gemini and writes the
extracted line items to <name>_ocr.json in the input directory (or --out).`,
	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runOCR(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringVar(
		&ocrOutDir,
		"out",
		"",
		"Directory for the extracted JSON (default: input directory)",
	)
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mainConfig.OCR

	outDir := ocrOutDir
	if outDir == "" {
		outDir = mainConfig.InputDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	client, err := ocr.New(ctx, ocr.Options{
		APIKey:     os.Getenv(cfg.APIKeyEnv),
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: ms(cfg.RetryDelayMs),
	}, logger)
	if err != nil {
		return fmt.Errorf("%w (set %s)", err, cfg.APIKeyEnv)
	}
	defer client.Close()

	failed := 0
	for _, doc := range args {
		log := logger.With(zap.String("document", filepath.Base(doc)))

		items, err := client.ExtractFile(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			log.Error("extraction failed", zap.Error(err))
			continue
		}

		path, err := writeOCRJSON(outDir, doc, items)
		if err != nil {
			failed++
			log.Error("failed to save extraction", zap.Error(err))
			continue
		}
		log.Info("extracted", zap.Int("items", len(items)), zap.String("output", path))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

// writeOCRJSON writes items next to other sources. The file is written under
// a temporary name first so a watcher never sees it half-written.
func writeOCRJSON(dir, doc string, items []map[string]any) (string, error) {
	base := strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
	path := filepath.Join(dir, base+"_ocr.json")

	data, err := json.MarshalIndent(map[string]any{"source": filepath.Base(doc), "items": items}, "", "  ")
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(dir, "."+base+"_ocr.json.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
