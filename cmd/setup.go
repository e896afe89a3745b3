package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// mcpServerConfig is the client configuration entry that starts the MCP
// server over dir with watch mode.
func mcpServerConfig(dir string) map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"vizsync": map[string]any{
				"command": "vizsync",
				"args":    []string{"mcp", "--watch", dir},
			},
		},
	}
}

func clientConfigDir(client string) (string, error) {
	switch client {
	case "qwen":
		return ".qwen", nil
	case "claude":
		return ".claude", nil
	case "cursor":
		return ".cursor", nil
	default:
		return "", fmt.Errorf("unknown client: %s (must be qwen, claude or cursor)", client)
	}
}

func encodeConfig(w io.Writer, config map[string]any, format string) error {
	if format == "json" {
		content, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(content))
		return err
	}

	var sb strings.Builder
	sb.WriteString("# MCP configuration for vizsync\n")
	sb.WriteString("# Generated by vizsync setup\n\n")
	for _, key := range slices.Sorted(maps.Keys(config)) {
		value, _ := json.Marshal(config[key])
		fmt.Fprintf(&sb, "%s: %s\n", key, value)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeConfig(configPath string, config map[string]any, format string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := encodeConfig(f, config, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
