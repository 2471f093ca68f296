package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/gazeviz/internal/store"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.gazeviz/
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0755); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)
}

func TestNewServer(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Root:    tmpDir,
		DataDir: filepath.Join(tmpDir, "data"),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil {
		t.Error("Server.store is nil")
	}
	if server.root != tmpDir {
		t.Errorf("Server.root = %q, want %q", server.root, tmpDir)
	}
	if server.settings == nil {
		t.Error("Server.settings is nil, want defaults")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "data", store.DBFile)); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

func TestNewServer_DefaultDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0", Root: tmpDir})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".gazeviz", store.DBFile)); err != nil {
		t.Errorf("expected database under ~/.gazeviz: %v", err)
	}
}

func TestNewServer_HasRateLimiters(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	server, err := NewServer(&Config{Name: "test", Version: "v1", Root: tmpDir, DataDir: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	for _, tool := range []string{ToolRender, ToolDiscover, ToolHistory} {
		if _, ok := server.toolLimiters[tool]; !ok {
			t.Errorf("missing rate limiter for %s", tool)
		}
	}
}

func TestClose(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	server, err := NewServer(&Config{Name: "test", Version: "v1", Root: tmpDir, DataDir: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	server, err := NewServer(&Config{Name: "test", Version: "v1", Root: tmpDir, DataDir: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
