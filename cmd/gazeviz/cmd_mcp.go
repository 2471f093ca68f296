package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/mcp"
	"github.com/nvandessel/gazeviz/internal/mcpconfig"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  gazeviz_render    Render one participant/image pair
  gazeviz_discover  List pairs with fixation data
  gazeviz_history   List recorded runs

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "gazeviz",
				Version:  version,
				Root:     a.root,
				DataDir:  a.dataDir,
				Settings: a.cfg,
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to start mcp server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}
}

func newMCPInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-install",
		Short: "Register the MCP server in a project's .mcp.json",
		Long: `Add (or with --remove, delete) the gazeviz entry in <project>/.mcp.json so
that MCP-capable agents start "gazeviz mcp-server" for this dataset.

Other servers in the file are left untouched. Running it again replaces the
gazeviz entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			command, _ := cmd.Flags().GetString("command")
			remove, _ := cmd.Flags().GetBool("remove")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if project == "" {
				project = a.root
			} else {
				project = a.resolve(project)
			}
			path := mcpconfig.ConfigPath(project)

			config, err := mcpconfig.Read(path)
			if err != nil {
				return err
			}

			action := "registered"
			if remove {
				if !mcpconfig.Remove(config, mcpconfig.ServerName) {
					action = "not registered"
				} else {
					action = "removed"
				}
			} else {
				if command == "" {
					if command, err = os.Executable(); err != nil {
						command = "gazeviz"
					}
				}
				config = mcpconfig.Merge(config, mcpconfig.ServerName, mcpconfig.DefaultEntry(command, a.root))
			}

			if action != "not registered" {
				if err := mcpconfig.Write(path, config); err != nil {
					return err
				}
			}

			if a.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":   path,
					"action": action,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gazeviz MCP server %s in %s\n", action, path)
			return nil
		},
	}

	cmd.Flags().String("project", "", "Project directory holding .mcp.json (default --root)")
	cmd.Flags().String("command", "", "Command agents should run (default this executable)")
	cmd.Flags().Bool("remove", false, "Remove the gazeviz entry instead")

	return cmd
}
