// Package mcpconfig registers the gazeviz MCP server in an agent's
// .mcp.json so that the agent starts it on demand. Entries belonging to
// other servers and unknown top-level keys are preserved.
package mcpconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the project-scoped MCP configuration file.
const FileName = ".mcp.json"

// ServerName is the key gazeviz registers itself under.
const ServerName = "gazeviz"

// Entry describes how an agent launches a stdio MCP server.
type Entry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// DefaultEntry returns the entry for the gazeviz binary at command, serving
// the dataset at root.
func DefaultEntry(command, root string) Entry {
	e := Entry{Command: command, Args: []string{"mcp-server"}}
	if root != "" {
		e.Args = append(e.Args, "--root", root)
	}
	return e
}

// ConfigPath returns the path to the MCP config in projectRoot.
func ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// Read reads an MCP config file. A missing or empty file yields nil.
func Read(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return config, nil
}

// Merge sets the entry for name, replacing any previous one.
func Merge(config map[string]any, name string, entry Entry) map[string]any {
	if config == nil {
		config = make(map[string]any)
	}
	server := map[string]any{
		"command": entry.Command,
		"args":    toAnySlice(entry.Args),
	}
	if len(entry.Env) > 0 {
		env := make(map[string]any, len(entry.Env))
		for k, v := range entry.Env {
			env[k] = v
		}
		server["env"] = env
	}

	servers := serversSection(config)
	servers[name] = server
	config["mcpServers"] = servers
	return config
}

// Remove deletes the entry for name and reports whether it was present.
func Remove(config map[string]any, name string) bool {
	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		return false
	}
	if _, ok := servers[name]; !ok {
		return false
	}
	delete(servers, name)
	return true
}

// Lookup returns the registered entry for name.
func Lookup(config map[string]any, name string) (Entry, bool) {
	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		return Entry{}, false
	}
	raw, ok := servers[name].(map[string]any)
	if !ok {
		return Entry{}, false
	}

	var e Entry
	e.Command, _ = raw["command"].(string)
	if args, ok := raw["args"].([]any); ok {
		for _, a := range args {
			if s, ok := a.(string); ok {
				e.Args = append(e.Args, s)
			}
		}
	}
	if env, ok := raw["env"].(map[string]any); ok {
		e.Env = make(map[string]string, len(env))
		for k, v := range env {
			if s, ok := v.(string); ok {
				e.Env[k] = s
			}
		}
	}
	return e, true
}

// Write writes config to path with stable indentation.
func Write(path string, config map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Append newline for POSIX compliance
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func serversSection(config map[string]any) map[string]any {
	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		return make(map[string]any)
	}
	return servers
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
