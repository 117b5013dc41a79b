package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/soultoolman/sci-dl/pkg/types"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Create the sci-dl configuration file",
	Long: `Init-config writes a configuration file with the default mirror,
retry, and proxy settings to ~/.config/sci-dl/sci-dl.yaml. Edit the
file to change the mirror or enable a proxy.`,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().Bool("force", false, "overwrite an existing config file")

	rootCmd.AddCommand(initConfigCmd)
}

// fileConfig mirrors types.Config with YAML-friendly field types for
// the generated config file (Timeout as a duration string).
type fileConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Retries   int               `yaml:"retries"`
	Timeout   string            `yaml:"timeout"`
	UserAgent string            `yaml:"user_agent"`
	ChunkSize int               `yaml:"chunk_size"`
	OutDir    string            `yaml:"outdir"`
	UseProxy  bool              `yaml:"use_proxy"`
	Proxy     types.ProxyConfig `yaml:"proxy"`
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locating home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "sci-dl")
	path := filepath.Join(dir, "sci-dl.yaml")

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	defaults := types.Default()
	out := fileConfig{
		BaseURL:   defaults.BaseURL,
		Retries:   defaults.Retries,
		Timeout:   defaults.Timeout.String(),
		UserAgent: defaults.UserAgent,
		ChunkSize: defaults.ChunkSize,
		OutDir:    home,
		UseProxy:  false,
		Proxy: types.ProxyConfig{
			Protocol: types.ProxySOCKS5,
			Host:     "127.0.0.1",
			Port:     1080,
		},
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Configuration saved, edit %s if needed.\n", path)
	return nil
}
