// Package backup archives analysis reports before they are overwritten and
// prunes old archives with retention policies. Each archive is a JSON header
// line followed by the gzip-compressed report, with a SHA-256 checksum of the
// compressed payload in the header.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/gazeviz/internal/report"
)

// Ext is the file extension of report archives.
const Ext = ".jsonl.bak"

// DirName is the archive directory inside the reports directory.
const DirName = "archive"

// DefaultDir returns the archive directory for a reports directory.
func DefaultDir(reportsDir string) string {
	return filepath.Join(reportsDir, DirName)
}

// GeneratePath returns a timestamped archive path in dir for the report at
// reportPath, e.g. relatorio-20260102-150405.jsonl.bak.
func GeneratePath(dir, reportPath string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(reportPath), filepath.Ext(reportPath))
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, now.Format("20060102-150405"), Ext))
}

// ArchiveReport copies the report at reportPath into dir. A missing or
// empty report is not an error; it returns an empty path.
func ArchiveReport(reportPath, dir string) (string, *Header, error) {
	results, err := report.ReadJSONL(reportPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("reading report: %w", err)
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	path := GeneratePath(dir, reportPath, time.Now())
	header, err := Write(path, results, reportPath)
	if err != nil {
		return "", nil, err
	}
	return path, header, nil
}

// Restore writes the results in an archive back to dest as JSON Lines.
func Restore(archivePath, dest string) (*Header, error) {
	header, results, err := Read(archivePath)
	if err != nil {
		return nil, err
	}
	if err := report.WriteJSONL(dest, results); err != nil {
		return nil, fmt.Errorf("writing restored report: %w", err)
	}
	return header, nil
}

// isArchiveFile reports whether name looks like an archive written by
// ArchiveReport.
func isArchiveFile(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
