package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ArchiveInfo holds metadata for retention decisions.
type ArchiveInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	ResultCount int       `json:"result_count"`
}

// RetentionPolicy decides which archives to keep.
type RetentionPolicy interface {
	Apply(archives []ArchiveInfo) (keep []ArchiveInfo)
}

// CountPolicy keeps the N most recent archives.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount archives (assumed sorted newest-first).
func (p *CountPolicy) Apply(archives []ArchiveInfo) []ArchiveInfo {
	if len(archives) <= p.MaxCount {
		return archives
	}
	return archives[:p.MaxCount]
}

// AgePolicy keeps archives newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Apply keeps archives whose CreatedAt is within MaxAge of now.
func (p *AgePolicy) Apply(archives []ArchiveInfo) []ArchiveInfo {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)
	var keep []ArchiveInfo
	for _, a := range archives {
		if a.CreatedAt.After(cutoff) {
			keep = append(keep, a)
		}
	}
	return keep
}

// SizePolicy keeps archives until total size exceeds MaxTotalBytes. The
// newest archive is always kept.
type SizePolicy struct {
	MaxTotalBytes int64
}

// Apply keeps archives (newest-first) until adding the next would exceed the limit.
func (p *SizePolicy) Apply(archives []ArchiveInfo) []ArchiveInfo {
	var keep []ArchiveInfo
	var total int64
	for _, a := range archives {
		if total+a.Size > p.MaxTotalBytes && len(keep) > 0 {
			break
		}
		keep = append(keep, a)
		total += a.Size
	}
	return keep
}

// CompositePolicy keeps an archive if ANY sub-policy wants it (union).
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of archives kept by any sub-policy.
func (p *CompositePolicy) Apply(archives []ArchiveInfo) []ArchiveInfo {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, a := range policy.Apply(archives) {
			kept[a.Path] = true
		}
	}

	var result []ArchiveInfo
	for _, a := range archives {
		if kept[a.Path] {
			result = append(result, a)
		}
	}
	return result
}

// PolicyFor builds the retention policy for the configured limits. An
// archive is kept while any enabled limit wants it. Non-positive values
// disable a limit; with every limit disabled it returns nil and nothing is
// pruned.
func PolicyFor(keep int, maxAge time.Duration, maxBytes int64) RetentionPolicy {
	var policies []RetentionPolicy
	if keep > 0 {
		policies = append(policies, &CountPolicy{MaxCount: keep})
	}
	if maxAge > 0 {
		policies = append(policies, &AgePolicy{MaxAge: maxAge})
	}
	if maxBytes > 0 {
		policies = append(policies, &SizePolicy{MaxTotalBytes: maxBytes})
	}
	switch len(policies) {
	case 0:
		return nil
	case 1:
		return policies[0]
	default:
		return &CompositePolicy{Policies: policies}
	}
}

// List scans dir for archives and returns them sorted newest-first.
func List(dir string) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var archives []ArchiveInfo
	for _, e := range entries {
		if e.IsDir() || !isArchiveFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		ai := ArchiveInfo{
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if header, err := ReadHeader(ai.Path); err == nil {
			ai.CreatedAt = header.CreatedAt
			ai.ResultCount = header.ResultCount
		}
		archives = append(archives, ai)
	}

	// Timestamp is embedded in the name; break ties on CreatedAt.
	sort.Slice(archives, func(i, j int) bool {
		ni, nj := filepath.Base(archives[i].Path), filepath.Base(archives[j].Path)
		if ni != nj {
			return ni > nj
		}
		return archives[i].CreatedAt.After(archives[j].CreatedAt)
	})
	return archives, nil
}

// ApplyRetention deletes archives not kept by the policy. A nil policy
// keeps everything.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	if policy == nil {
		return nil, nil
	}
	archives, err := List(dir)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[string]bool)
	for _, a := range policy.Apply(archives) {
		keepSet[a.Path] = true
	}

	for _, a := range archives {
		if keepSet[a.Path] {
			continue
		}
		if err := removeIfExists(a.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(a.Path), err)
		}
		deleted = append(deleted, a.Path)
	}
	return deleted, nil
}

// ParseDuration parses duration strings like "30d", "2w", "720h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}

// ParseSize parses size strings like "100MB", "1GB", "500KB" into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Longer suffixes first so "MB" is not read as "B".
	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}
	for _, ss := range suffixes {
		if strings.HasSuffix(s, ss.suffix) {
			num, err := strconv.ParseInt(strings.TrimSuffix(s, ss.suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size: %q", s)
			}
			return num * ss.multiplier, nil
		}
	}
	return 0, fmt.Errorf("invalid size: %q (expected suffix: B, KB, MB, GB)", s)
}
