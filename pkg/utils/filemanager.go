// =============================================================================
// Sales Analytics - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the pipeline:
//   - Directory management
//   - Atomic file writes (temp file + rename)
//   - Input archival (copying the processed input file)
//   - Issue log and run summary generation
//
// WRITE STRATEGY:
//   - Every artifact is written to a uniquely named temp file in the
//     destination directory, synced, then renamed over the target
//   - A failed write removes the temp file, so no partial artifact remains
//   - The input file is copied, never moved, when archived
//
// =============================================================================

package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a run.
type FileManager struct {
	// OutputDir is the directory where reports and logs are placed.
	OutputDir string

	// ArchiveDir is the directory for archived input files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2025/01/15/sales_data.txt
	UseTimestampSubdirs bool
}

// NewFileManager creates a FileManager rooted at outputDir. Archived inputs go
// to outputDir/archive.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: filepath.Join(outputDir, "archive"),
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the given directories if they don't exist. Empty
// entries are ignored.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
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
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic writes data to path through a temp file in the same
// directory. The parent directory is created when missing.
//
// RETURNS:
//   - An error if the directory, temp file, or rename fails. On error the
//     target is left untouched.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDirectories(dir); err != nil {
		return err
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

// WriteAtomic renders into a buffer with fn, then writes it atomically.
// Nothing is written when fn fails.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile copies an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived copy.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string, now time.Time) (string, error) {
	archivePath := fm.getArchivePath(filePath, now)

	if err := EnsureDirectories(filepath.Dir(archivePath)); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// ISSUE LOG GENERATION
// =============================================================================

// IssueLogEntry is one rejected line or record.
type IssueLogEntry struct {
	// Stage is "parse" or "validate".
	Stage         string
	LineNumber    int
	TransactionID string
	FieldName     string
	FieldValue    string
	Message       string
}

// WriteIssueLog writes issue entries to a log file in the output directory.
//
// RETURNS:
//   - The path to the issue log, or "" when there was nothing to write.
//   - An error if writing fails.
func (fm *FileManager) WriteIssueLog(entries []IssueLogEntry, runID string, generated time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(fm.OutputDir, fmt.Sprintf("issues_%s.txt", generated.Format("20060102_150405")))

	err := WriteAtomic(logPath, func(out io.Writer) error {
		writer := bufio.NewWriter(out)

		fmt.Fprintf(writer, "Sales Analytics - Issue Log\n"+
			"Generated: %s\n"+
			"Run ID: %s\n"+
			"Total Issues: %d\n"+
			"================================================================================\n\n",
			generated.Format("2006-01-02 15:04:05"), runID, len(entries))

		for i, entry := range entries {
			fmt.Fprintf(writer, "Issue #%d\n"+
				"  Stage:          %s\n"+
				"  Line Number:    %d\n"+
				"  Message:        %s\n",
				i+1, entry.Stage, entry.LineNumber, entry.Message)

			if entry.TransactionID != "" {
				fmt.Fprintf(writer, "  Transaction ID: %s\n", entry.TransactionID)
			}
			if entry.FieldName != "" {
				fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
			}
			if entry.FieldValue != "" {
				fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
			}
			writer.WriteString("\n")
		}

		writer.WriteString("================================================================================\n" +
			"End of Issue Log\n")
		return writer.Flush()
	})
	if err != nil {
		return "", fmt.Errorf("failed to write issue log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about one pipeline run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	InputFile string
	Encoding  string

	DataLines        int
	Malformed        int
	Invalid          int
	FilteredByRegion int
	FilteredByAmount int
	FinalCount       int

	CatalogStatus string
	Matched       int
	Unmatched     int

	// Outputs lists every artifact written by the run.
	Outputs []string
}

// WriteSummaryLog writes a run summary to the output directory.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	summaryPath := filepath.Join(fm.OutputDir,
		fmt.Sprintf("run_summary_%s.txt", summary.StartTime.Format("20060102_150405")))

	err := WriteAtomic(summaryPath, func(out io.Writer) error {
		writer := bufio.NewWriter(out)

		fmt.Fprintf(writer, "Sales Analytics - Run Summary\n"+
			"================================================================================\n\n"+
			"Run Information:\n"+
			"  Run ID:         %s\n"+
			"  Start Time:     %s\n"+
			"  End Time:       %s\n"+
			"  Duration:       %s\n"+
			"  Input File:     %s\n"+
			"  Encoding:       %s\n\n"+
			"Statistics:\n"+
			"  Data Lines:         %d\n"+
			"  Malformed:          %d\n"+
			"  Invalid:            %d\n"+
			"  Filtered (region):  %d\n"+
			"  Filtered (amount):  %d\n"+
			"  Analyzed:           %d\n\n"+
			"Enrichment:\n"+
			"  Catalog:            %s\n"+
			"  Matched:            %d\n"+
			"  Unmatched:          %d\n\n",
			summary.RunID,
			summary.StartTime.Format("2006-01-02 15:04:05"),
			summary.EndTime.Format("2006-01-02 15:04:05"),
			summary.EndTime.Sub(summary.StartTime).String(),
			summary.InputFile,
			summary.Encoding,
			summary.DataLines,
			summary.Malformed,
			summary.Invalid,
			summary.FilteredByRegion,
			summary.FilteredByAmount,
			summary.FinalCount,
			summary.CatalogStatus,
			summary.Matched,
			summary.Unmatched)

		if len(summary.Outputs) > 0 {
			writer.WriteString("Outputs:\n")
			writer.WriteString("--------------------------------------------------------------------------------\n")
			for _, output := range summary.Outputs {
				fmt.Fprintf(writer, "  %s\n", output)
			}
			writer.WriteString("\n")
		}

		writer.WriteString("================================================================================\n" +
			"End of Summary\n")
		return writer.Flush()
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
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
