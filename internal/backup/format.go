package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/gazeviz/internal/report"
)

// FormatVersion is the archive format written by Write.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed archive (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// Header is the plain-text first line of an archive file. The rest of the
// file is the gzip-compressed JSON Lines report.
type Header struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
	ResultCount int       `json:"result_count"`
	// Source is the report path the archive was taken from.
	Source string `json:"source,omitempty"`
}

// Write stores results as an archive at path: header line + gzip payload.
func Write(path string, results []report.Result, source string) (*Header, error) {
	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if err := report.Encode(gzw, results); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := &Header{
		Version:     FormatVersion,
		CreatedAt:   time.Now().UTC(),
		Checksum:    checksum(compressed.Bytes()),
		ResultCount: len(results),
		Source:      source,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	return header, f.Close()
}

// ReadHeader reads only the header line of an archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return readHeader(bufio.NewReader(f))
}

// Read verifies an archive's checksum and returns its results.
func Read(path string) (*Header, []report.Result, error) {
	header, payload, err := readVerified(path)
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	results, err := report.Decode(bytes.NewReader(decompressed))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing archived report: %w", err)
	}
	if len(results) != header.ResultCount {
		return nil, nil, fmt.Errorf("archive holds %d results, header says %d", len(results), header.ResultCount)
	}
	return header, results, nil
}

// Verify checks the integrity of an archive without decompressing it.
func Verify(path string) error {
	_, _, err := readVerified(path)
	return err
}

func readVerified(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(payload); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return header, payload, nil
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", header.Version)
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
