package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/gazeviz/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show gazeviz configuration",
		Long: `View the effective gazeviz configuration.

Configuration is read from ~/.gazeviz/config.yaml (or --config) and then
overridden by GAZEVIZ_* environment variables. API keys are always shown
redacted.

Examples:
  gazeviz config list                  # Show all settings
  gazeviz config list --yaml           # Dump as YAML
  gazeviz config get llm.provider      # Get a specific setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.GazevizConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			yamlOut, _ := cmd.Flags().GetBool("yaml")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Redact API key before serialization to prevent leakage
			redacted := *cfg
			redacted.LLM.APIKey = cfg.LLM.RedactedAPIKey()

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				return json.NewEncoder(out).Encode(redacted)
			case yamlOut:
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(redacted); err != nil {
					return err
				}
				return enc.Close()
			}

			for _, kv := range cfg.Entries() {
				fmt.Fprintf(out, "  %-24s %s\n", kv[0]+":", valueOrDefault(kv[1], "(not set)"))
			}
			return nil
		},
	}
	cmd.Flags().Bool("yaml", false, "Output as YAML")
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			value, found := cfg.Get(key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %s\n", key, value)
			}
			return nil
		},
	}
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
