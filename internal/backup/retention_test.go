package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func archivesAt(now time.Time) []ArchiveInfo {
	return []ArchiveInfo{
		{Path: "/a/r-5" + Ext, CreatedAt: now, Size: 100},
		{Path: "/a/r-4" + Ext, CreatedAt: now.Add(-1 * time.Hour), Size: 100},
		{Path: "/a/r-3" + Ext, CreatedAt: now.Add(-30 * time.Hour), Size: 100},
		{Path: "/a/r-2" + Ext, CreatedAt: now.Add(-72 * time.Hour), Size: 100},
		{Path: "/a/r-1" + Ext, CreatedAt: now.Add(-720 * time.Hour), Size: 100},
	}
}

func paths(archives []ArchiveInfo) []string {
	out := make([]string, len(archives))
	for i, a := range archives {
		out[i] = filepath.Base(a.Path)
	}
	return out
}

func TestPolicies(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow := func() time.Time { return now }

	tests := []struct {
		name   string
		policy RetentionPolicy
		want   []string
	}{
		{"count keeps newest", &CountPolicy{MaxCount: 2}, []string{"r-5" + Ext, "r-4" + Ext}},
		{"count larger than list", &CountPolicy{MaxCount: 10}, []string{"r-5" + Ext, "r-4" + Ext, "r-3" + Ext, "r-2" + Ext, "r-1" + Ext}},
		{"age", &AgePolicy{MaxAge: 24 * time.Hour, Now: fixedNow}, []string{"r-5" + Ext, "r-4" + Ext}},
		{"size", &SizePolicy{MaxTotalBytes: 250}, []string{"r-5" + Ext, "r-4" + Ext}},
		{"size keeps newest even if too big", &SizePolicy{MaxTotalBytes: 10}, []string{"r-5" + Ext}},
		{
			"composite is a union",
			&CompositePolicy{Policies: []RetentionPolicy{
				&CountPolicy{MaxCount: 1},
				&AgePolicy{MaxAge: 48 * time.Hour, Now: fixedNow},
			}},
			[]string{"r-5" + Ext, "r-4" + Ext, "r-3" + Ext},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths(tt.policy.Apply(archivesAt(now)))
			if len(got) != len(tt.want) {
				t.Fatalf("kept %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("kept[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	if p := PolicyFor(0, 0, 0); p != nil {
		t.Errorf("PolicyFor(0, 0, 0) = %T, want nil", p)
	}
	if _, ok := PolicyFor(3, 0, 0).(*CountPolicy); !ok {
		t.Error("PolicyFor(3, 0, 0) should be a CountPolicy")
	}
	if _, ok := PolicyFor(0, 0, 1024).(*SizePolicy); !ok {
		t.Error("PolicyFor(0, 0, 1024) should be a SizePolicy")
	}
	p, ok := PolicyFor(3, time.Hour, 0).(*CompositePolicy)
	if !ok || len(p.Policies) != 2 {
		t.Errorf("PolicyFor(3, 1h, 0) = %#v, want a two-policy composite", p)
	}
}

func TestListAndApplyRetention(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		path := GeneratePath(dir, "r.jsonl", base.Add(time.Duration(i)*time.Minute))
		if _, err := Write(path, sampleResults(), ""); err != nil {
			t.Fatal(err)
		}
	}
	// Files without the archive extension are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	archives, err := List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(archives) != 4 {
		t.Fatalf("List() = %d archives, want 4", len(archives))
	}
	if got := filepath.Base(archives[0].Path); got != "r-20260301-120300"+Ext {
		t.Errorf("newest = %s", got)
	}
	if archives[0].ResultCount != 2 {
		t.Errorf("ResultCount = %d, want 2", archives[0].ResultCount)
	}

	deleted, err := ApplyRetention(dir, &CountPolicy{MaxCount: 2})
	if err != nil {
		t.Fatalf("ApplyRetention() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %d, want 2", len(deleted))
	}
	remaining, _ := List(dir)
	if got := paths(remaining); len(got) != 2 || got[1] != "r-20260301-120200"+Ext {
		t.Errorf("remaining = %v", got)
	}

	deleted, err = ApplyRetention(dir, nil)
	if err != nil || len(deleted) != 0 {
		t.Errorf("ApplyRetention(nil) = %v, %v; want nothing deleted", deleted, err)
	}
}

func TestList_MissingDir(t *testing.T) {
	archives, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || archives != nil {
		t.Errorf("List() = %v, %v; want nil, nil", archives, err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100B", 100, false},
		{"500KB", 500 * 1024, false},
		{"100MB", 100 * 1024 * 1024, false},
		{" 1GB ", 1024 * 1024 * 1024, false},
		{"", 0, true},
		{"100", 0, true},
		{"xMB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
