// =============================================================================
// Line-Item Autofill - File Manager Utility
// =============================================================================
//
// File housekeeping around a fill run:
//   - Source discovery in the input directory
//   - Archival of sources once every line item reached the form
//   - Run summaries in the reports directory
//
// ARCHIVAL STRATEGY:
//   - A source is moved to input_archive only when all of its rows filled
//   - Sources with any failed row stay put so they can be retried
//   - An archived name that already exists gets a timestamp suffix
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for fill runs.
type FileManager struct {
	// InputDir is where source files are dropped.
	InputDir string

	// InputArchiveDir receives fully filled sources.
	InputArchiveDir string

	// ReportsDir receives run summaries.
	ReportsDir string

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool

	// ArchiveOnSuccess enables archival. Dry runs turn it off.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a FileManager.
func NewFileManager(inputDir, inputArchiveDir, reportsDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		InputArchiveDir:  inputArchiveDir,
		ReportsDir:       reportsDir,
		ArchiveOnSuccess: true,
		now:              time.Now,
	}
}

// EnsureDirectories creates the managed directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.InputArchiveDir, fm.ReportsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists files in the input directory with one of the given
// extensions (".csv", ".xlsx", ...), sorted by name. Hidden files and Office
// lock files ("~$...") are skipped.
func (fm *FileManager) DiscoverInputFiles(extensions []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	want := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		want[strings.ToLower(e)] = true
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !want[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		files = append(files, filepath.Join(fm.InputDir, name))
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a source file to the archive directory and returns
// its new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	now := fm.clock()
	dir := fm.InputArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()))
	}

	name := filepath.Base(filePath)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(name)
		path = filepath.Join(dir, fmt.Sprintf("%s_%s%s",
			strings.TrimSuffix(name, ext), now.Format("20060102_150405"), ext))
	}
	return path
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// REPORT NAMING
// =============================================================================

// GenerateReportName expands a report name format.
//
// PARAMETERS:
//   - format: The name format. Placeholders:
//       {uuid}      - A random UUID
//       {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//       {date}      - Current date (YYYYMMDD)
//       {time}      - Current time (HHMMSS)
//       plus any key of params, e.g. {profile}
//   - params: Extra placeholder values.
//
// RETURNS:
//   - The file name, with ".txt" appended if it has no extension.
//
// EXAMPLE:
//   format: "fill_{timestamp}_{uuid}.txt"
//   output: "fill_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.txt"
func GenerateReportName(format string, params map[string]string) string {
	now := time.Now()
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	if filepath.Ext(result) == "" {
		result += ".txt"
	}
	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary describes one fill run.
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Files     []FileSummary
}

// FileSummary describes one source file within a run.
type FileSummary struct {
	InputFile   string
	Profile     string
	ArchivePath string

	// DryRun marks a file that was converted but deliberately not filled.
	DryRun bool

	// Error is set when the file never reached the form (conversion failed,
	// no session).
	Error string

	Payloads           int
	Filled             int
	ValidationErrors   int
	ValidationWarnings int

	// Findings are validation messages, one per line.
	Findings []string

	// Rows lists every line item's outcome in payload order.
	Rows []RowSummary

	Duration time.Duration
}

// RowSummary is the outcome of one line item.
type RowSummary struct {
	Item  int
	Row   int
	Error string
}

// Failed reports whether any part of the file did not make it into the form.
func (fs FileSummary) Failed() bool {
	return fs.Error != "" || (!fs.DryRun && fs.Filled < fs.Payloads)
}

// Totals returns file and row counters across the run.
func (s RunSummary) Totals() (files, failedFiles, rows, failedRows int) {
	for _, f := range s.Files {
		files++
		if f.Failed() {
			failedFiles++
		}
		rows += f.Payloads
		if !f.DryRun {
			failedRows += f.Payloads - f.Filled
		}
	}
	return
}

// WriteSummaryLog writes the summary to dir under name and returns its path.
func WriteSummaryLog(summary RunSummary, dir, name string) (string, error) {
	summaryPath := filepath.Join(dir, name)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(bufio.NewWriter(file), summary); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return summaryPath, nil
}

const rule = "================================================================================\n"
const thinRule = "--------------------------------------------------------------------------------\n"

func writeSummary(w *bufio.Writer, summary RunSummary) error {
	files, failedFiles, rows, failedRows := summary.Totals()
	mode := "fill"
	if summary.DryRun {
		mode = "dry run"
	}

	fmt.Fprintf(w, "Line-Item Autofill - Run Summary\n"+rule+"\n"+
		"Run Information:\n"+
		"  Mode:           %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Files:          %d\n"+
		"  Failed Files:   %d\n"+
		"  Line Items:     %d\n"+
		"  Failed Items:   %d\n\n",
		mode,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond),
		files, failedFiles, rows, failedRows)

	for _, f := range summary.Files {
		w.WriteString(thinRule)
		fmt.Fprintf(w, "File:      %s\n", f.InputFile)
		if f.Profile != "" {
			fmt.Fprintf(w, "Profile:   %s\n", f.Profile)
		}
		if f.Error != "" {
			fmt.Fprintf(w, "Error:     %s\n\n", f.Error)
			continue
		}
		if f.DryRun {
			fmt.Fprintf(w, "Items:     %d converted\n", f.Payloads)
		} else {
			fmt.Fprintf(w, "Items:     %d filled of %d\n", f.Filled, f.Payloads)
		}
		fmt.Fprintf(w, "Findings:  %d errors, %d warnings\n", f.ValidationErrors, f.ValidationWarnings)
		if f.ArchivePath != "" {
			fmt.Fprintf(w, "Archived:  %s\n", f.ArchivePath)
		}
		fmt.Fprintf(w, "Time:      %s\n", f.Duration.Round(time.Millisecond))

		for _, finding := range f.Findings {
			fmt.Fprintf(w, "  %s\n", finding)
		}
		for _, r := range f.Rows {
			if r.Error == "" {
				continue
			}
			if r.Row > 0 {
				fmt.Fprintf(w, "  Item %d (row %d): %s\n", r.Item, r.Row, r.Error)
			} else {
				fmt.Fprintf(w, "  Item %d: %s\n", r.Item, r.Error)
			}
		}
		w.WriteString("\n")
	}

	w.WriteString(rule + "End of Summary\n")
	return w.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
