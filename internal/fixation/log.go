package fixation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names used by the eye-tracker export.
const (
	ColMedia    = "MEDIA_NAME"
	ColX        = "FPOGX"
	ColY        = "FPOGY"
	ColStart    = "FPOGS"
	ColDuration = "FPOGD"
	ColID       = "FPOGID"
)

var requiredColumns = []string{ColMedia, ColX, ColY, ColStart, ColDuration, ColID}

// Record is one row of a fixation log.
type Record struct {
	Media    string
	Fixation Fixation
}

// LoadLog reads a fixation log from a CSV file.
func LoadLog(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseLog(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// ParseLog reads a comma-separated fixation log with a header row.
// Columns other than the required ones are ignored.
func ParseLog(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty log: missing header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %s", col)
		}
	}

	var out []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		var fx Fixation
		if fx.X, err = parseFloat(get(ColX)); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %v", line, ColX, err)
		}
		if fx.Y, err = parseFloat(get(ColY)); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %v", line, ColY, err)
		}
		if fx.StartTime, err = parseFloat(get(ColStart)); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %v", line, ColStart, err)
		}
		if fx.Duration, err = parseFloat(get(ColDuration)); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %v", line, ColDuration, err)
		}
		id, err := parseFloat(get(ColID))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %v", line, ColID, err)
		}
		fx.SequenceID = int(id)

		out = append(out, Record{Media: get(ColMedia), Fixation: fx})
	}

	return out, nil
}

// ForMedia returns the fixations recorded on the given stimulus, ordered by
// sequence ID and start time.
func ForMedia(records []Record, media string) Sequence {
	var seq Sequence
	for _, r := range records {
		if r.Media == media {
			seq = append(seq, r.Fixation)
		}
	}
	return seq.Sorted()
}

// parseFloat accepts both "0.25" and "0,25".
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	return v, err
}
