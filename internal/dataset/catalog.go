// Package dataset locates stimulus images and fixation logs on disk and
// pairs them into renderable units.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Catalog columns in info.csv.
const (
	ColImage    = "Image Name"
	ColBlock    = "Block"
	ColCategory = "Category"
)

// Entry is one stimulus image listed in the catalog.
type Entry struct {
	Media    string `json:"media_name"`
	Block    string `json:"bloco"` // zero-padded to two digits
	Category string `json:"categoria"`
}

// Catalog is the list of stimuli shown during the experiment.
type Catalog []Entry

// LoadCatalog reads a semicolon-separated catalog file.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog reads catalog rows from r.
func ParseCatalog(r io.Reader) (Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty catalog: missing header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range []string{ColImage, ColBlock, ColCategory} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var out Catalog
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
		field := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		media := field(ColImage)
		if media == "" {
			continue
		}
		out = append(out, Entry{
			Media:    media,
			Block:    PadID(field(ColBlock)),
			Category: field(ColCategory),
		})
	}
	return out, nil
}

// Filter returns the entries matching media exactly and whose category
// contains category, ignoring case. Empty arguments match everything.
func (c Catalog) Filter(media, category string) Catalog {
	category = strings.ToLower(category)
	var out Catalog
	for _, e := range c {
		if media != "" && e.Media != media {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(e.Category), category) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// PadID left-pads a numeric identifier to two digits ("1" -> "01").
// Longer or non-numeric identifiers are returned unchanged.
func PadID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) == 1 {
		return "0" + id
	}
	return id
}
