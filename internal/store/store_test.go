package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/gazeviz/internal/batch"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/render"
)

func sampleSummary(start time.Time) batch.Summary {
	return batch.Summary{
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Succeeded:  1,
		Failed:     1,
		Items: []batch.ItemResult{
			{
				Unit: dataset.Unit{Participant: "01", Media: "cat.jpg"},
				Artifacts: []batch.Artifact{
					{Kind: batch.KindHeatmap, Path: "out/heatmap_cat_P01.png"},
					{Kind: batch.KindScanpath, Path: "out/scanpath_cat_P01.png"},
				},
			},
			{
				Unit: dataset.Unit{Participant: "02", Media: "dog.jpg"},
				Artifacts: []batch.Artifact{
					{Kind: batch.KindHeatmap, Path: "out/heatmap_dog_P02.png", Err: &render.InputNotFoundError{Path: "images/dog.jpg", Err: os.ErrNotExist}},
					{Kind: batch.KindScanpath, Path: "out/scanpath_dog_P02.png", Err: render.ErrEmptyInput},
				},
			},
		},
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	var version int
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := s.RecordRun(ctx, "render", sampleSummary(time.Now())); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs after reopen = %d, want 1", len(runs))
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.RecordRun(ctx, "analyze", sampleSummary(start))
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Command != "analyze" || r.Succeeded != 1 || r.Failed != 1 {
		t.Errorf("run = %+v", r)
	}
	if !r.StartedAt.Equal(start) || r.FinishedAt.Sub(r.StartedAt) != 3*time.Second {
		t.Errorf("timestamps = %v .. %v", r.StartedAt, r.FinishedAt)
	}

	items, err := s.ItemsForRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4", len(items))
	}
	// Ordered by participant, media, artifact.
	if items[0].Participant != "01" || items[0].Artifact != batch.KindHeatmap || items[0].Status != StatusOK || items[0].Error != "" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[2].Status != StatusFailed || items[2].ErrorKind != render.KindInputNotFound {
		t.Errorf("items[2] = %+v", items[2])
	}
	if items[3].ErrorKind != render.KindEmptyInput || items[3].Error == "" {
		t.Errorf("items[3] = %+v", items[3])
	}
}

func TestListRuns_OrderAndLimit(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.RecordRun(ctx, "render", sampleSummary(base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v, %v", runs[0].StartedAt, runs[1].StartedAt)
	}

	all, _ := s.ListRuns(ctx, 0)
	if len(all) != 5 {
		t.Errorf("ListRuns(0) = %d runs, want 5", len(all))
	}
}

func TestItemsForRun_Unknown(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	items, err := s.ItemsForRun(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}

func TestInitSchema_NewerVersionRejected(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (99, datetime('now'))`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFile))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := InitSchema(context.Background(), db); err == nil {
		t.Error("InitSchema() accepted a newer schema version")
	}
}

func TestRecordRun_CancelledContext(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.RecordRun(ctx, "render", sampleSummary(time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
