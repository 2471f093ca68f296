package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gazeviz/internal/report"
)

func sampleResults() []report.Result {
	return []report.Result{
		{Participant: "01", Media: "cat.png", Category: "animais", Response: "Olhou para os olhos do gato."},
		{Participant: "01", Media: "São Paulo.jpg", Category: "paisagem", Response: "ERROR: quota exceeded"},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "a"+Ext)

	header, err := Write(path, sampleResults(), "reports/r.jsonl")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if header.ResultCount != 2 || header.Version != FormatVersion {
		t.Errorf("header = %+v", header)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("Checksum = %q, want sha256: prefix", header.Checksum)
	}

	got, results, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Checksum != header.Checksum || got.Source != "reports/r.jsonl" {
		t.Errorf("read header = %+v, want %+v", got, header)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[1].Media != "São Paulo.jpg" || results[1].Response != "ERROR: quota exceeded" {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestWrite_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a"+Ext)
	if _, err := Write(path, sampleResults(), ""); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("mode = %o, want 0600", perm)
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a"+Ext)
	if _, err := Write(path, sampleResults(), "src"); err != nil {
		t.Fatal(err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.ResultCount != 2 || h.Source != "src" {
		t.Errorf("header = %+v", h)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a"+Ext)
	if _, err := Write(path, sampleResults(), ""); err != nil {
		t.Fatal(err)
	}
	if err := Verify(path); err != nil {
		t.Fatalf("Verify() on intact archive = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-5] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Verify() = %v, want checksum mismatch", err)
	}
	if _, _, err := Read(path); err == nil {
		t.Error("Read() should fail on a tampered archive")
	}
}

func TestReadHeader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", "hello\n", "parsing header"},
		{"future version", `{"version":99}` + "\n", "unsupported archive version"},
		{"no newline", `{"version":1}`, "reading header line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a"+Ext)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := ReadHeader(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadHeader() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRead_CountMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a"+Ext)
	if _, err := Write(path, sampleResults(), ""); err != nil {
		t.Fatal(err)
	}

	// Rewrite the header with a wrong count but the same checksum.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	nl := bytes.IndexByte(data, '\n')
	header := strings.Replace(string(data[:nl]), `"result_count":2`, `"result_count":3`, 1)
	tampered := append([]byte(header), data[nl:]...)
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatal(err)
	}

	_, _, err = Read(path)
	if err == nil || !strings.Contains(err.Error(), "header says 3") {
		t.Errorf("Read() = %v, want count mismatch", err)
	}
}
