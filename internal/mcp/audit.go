package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/gazeviz/internal/pathutil"
)

// AuditFile is the name of the tool audit log inside the data directory.
const AuditFile = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It captures metadata about the call without including sensitive content.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"` // sanitized metadata only
}

// AuditLogger appends audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/audit.jsonl for append. If the file cannot be
// created a warning is printed to stderr and nil is returned (non-fatal).
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one JSON line. Safe to call on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}
	data = append(data, '\n')
	_, _ = a.file.Write(data)
}

// Close closes the audit file. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// sanitizeToolParams extracts safe metadata from tool parameters.
//
// Parameters are classified into three categories:
//   - Safe-value params: both key and value are logged (e.g. "participant", "pdf")
//   - Path params: only the last two path elements are logged, via
//     pathutil.RedactPath
//   - Unknown params: not logged at all
//
// Zero values are treated as absent. A "_param_count" key records how many
// params were provided.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	safeValueParams := map[string]bool{
		"participant": true,
		"media":       true,
		"category":    true,
		"pdf":         true,
		"limit":       true,
		"run_id":      true,
	}

	// Paths may reveal the user's directory layout.
	pathParams := map[string]bool{
		"output_dir": true,
	}

	result := make(map[string]string)
	count := 0
	for key, val := range params {
		if isZero(val) {
			continue
		}
		count++
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if pathParams[key] {
			result[key] = pathutil.RedactPath(fmt.Sprintf("%v", val))
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", count)
	return result
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return false
}

// auditTool logs a tool invocation to the audit log.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
