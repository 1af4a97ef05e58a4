// =============================================================================
// Line-Item Autofill - Main Entry Point
// =============================================================================
//
// Entry point for the CLI. Command definitions live in cmd/.
//
// USAGE:
//   autofill fill          - Enter line items from the input directory into the form
//   autofill watch         - Fill files as they arrive
//   autofill ocr <doc>     - Extract line items from a scanned document
//   autofill validate      - Check configuration, profiles and source files
//   autofill version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Conversion, validation, form automation and browser adapter
//   - pkg/       : Shared file utilities
//   - profiles/  : Per-supplier source profiles (YAML)
//   - templates/ : XLSX column-mapping templates
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/lineitem-autofill/cmd"
)

func main() {
	cmd.Execute()
}
