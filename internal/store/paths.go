package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the database file name inside the data directory.
const DBFile = "gazeviz.db"

// GlobalDir returns the path to the per-user .gazeviz directory.
// On Unix: ~/.gazeviz
// On Windows: %USERPROFILE%\.gazeviz
func GlobalDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gazeviz"), nil
}
