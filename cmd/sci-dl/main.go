// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sci-dl CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the sci-dl CLI.
var rootCmd = &cobra.Command{
	Use:   "sci-dl",
	Short: "Download Sci-Hub PDFs by DOI",
	Long: `sci-dl resolves a DOI against a Sci-Hub mirror and downloads the
article PDF. Requests can be routed through an HTTP, HTTPS, or SOCKS5
proxy, and failed requests are retried.

Run "sci-dl init-config" once to create the configuration file, then
"sci-dl dl -d DOI" to download.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sci-dl.yaml or ~/.config/sci-dl/sci-dl.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sci-dl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sci-dl"))
		}
	}

	viper.SetEnvPrefix("SCI_DL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
