package backup

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/gazeviz/internal/report"
)

func TestGeneratePath(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	got := GeneratePath("/a/archive", "/a/relatorio_analise_modelos.jsonl", now)
	want := filepath.Join("/a/archive", "relatorio_analise_modelos-20260102-150405"+Ext)
	if got != want {
		t.Errorf("GeneratePath() = %q, want %q", got, want)
	}
}

func TestDefaultDir(t *testing.T) {
	if got := DefaultDir("reports"); got != filepath.Join("reports", DirName) {
		t.Errorf("DefaultDir() = %q", got)
	}
}

func TestArchiveReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, report.DefaultFileName)
	if err := report.WriteJSONL(reportPath, sampleResults()); err != nil {
		t.Fatal(err)
	}

	archiveDir := DefaultDir(dir)
	path, header, err := ArchiveReport(reportPath, archiveDir)
	if err != nil {
		t.Fatalf("ArchiveReport() error = %v", err)
	}
	if filepath.Dir(path) != archiveDir || !strings.HasSuffix(path, Ext) {
		t.Errorf("path = %q, want archive under %q", path, archiveDir)
	}
	if header.ResultCount != 2 || header.Source != reportPath {
		t.Errorf("header = %+v", header)
	}
	if err := Verify(path); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestArchiveReport_NothingToArchive(t *testing.T) {
	dir := t.TempDir()
	path, header, err := ArchiveReport(filepath.Join(dir, "missing.jsonl"), DefaultDir(dir))
	if err != nil {
		t.Fatalf("ArchiveReport() error = %v", err)
	}
	if path != "" || header != nil {
		t.Errorf("ArchiveReport() = %q, %v; want empty", path, header)
	}
	if archives, _ := List(DefaultDir(dir)); len(archives) != 0 {
		t.Errorf("List() = %d archives, want 0", len(archives))
	}
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a"+Ext)
	if _, err := Write(archivePath, sampleResults(), ""); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "restored", "r.jsonl")
	header, err := Restore(archivePath, dest)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if header.ResultCount != 2 {
		t.Errorf("ResultCount = %d, want 2", header.ResultCount)
	}

	results, err := report.ReadJSONL(dest)
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(results) != 2 || results[0].Media != "cat.png" {
		t.Errorf("restored = %+v", results)
	}
}
