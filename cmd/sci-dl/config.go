package main

import (
	"os"

	"github.com/spf13/viper"

	"github.com/soultoolman/sci-dl/internal/secrets"
	"github.com/soultoolman/sci-dl/pkg/types"
)

const secretsDir = ".secrets/"

// loadConfig assembles the session configuration from the config file
// and environment (via viper), falling back to defaults for unset
// keys, and overlays proxy credentials from .secrets/. Validation is
// left to the caller so commands that only need a subset (eg history)
// still work with a partial config.
func loadConfig() (types.Config, error) {
	cfg := types.Default()

	if v := viper.GetString("base_url"); v != "" {
		cfg.BaseURL = v
	}
	if viper.IsSet("retries") {
		cfg.Retries = viper.GetInt("retries")
	}
	if viper.IsSet("timeout") {
		cfg.Timeout = viper.GetDuration("timeout")
	}
	if v := viper.GetString("user_agent"); v != "" {
		cfg.UserAgent = v
	}
	if viper.IsSet("chunk_size") {
		cfg.ChunkSize = viper.GetInt("chunk_size")
	}
	if v := viper.GetString("outdir"); v != "" {
		cfg.OutDir = v
	}

	cfg.UseProxy = viper.GetBool("use_proxy")
	cfg.Proxy = types.ProxyConfig{
		Protocol: viper.GetString("proxy.protocol"),
		User:     viper.GetString("proxy.user"),
		Password: viper.GetString("proxy.password"),
		Host:     viper.GetString("proxy.host"),
		Port:     viper.GetInt("proxy.port"),
	}
	if cfg.UseProxy {
		applyProxyDefaults(&cfg.Proxy)
	}

	if cfg.OutDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, types.ConfigErrorf("no outdir configured and no home directory: %v", err)
		}
		cfg.OutDir = home
	}

	s, err := secrets.Load(secretsDir)
	if err != nil {
		return cfg, err
	}
	secrets.Apply(&cfg, s)

	return cfg, nil
}

// applyProxyDefaults fills the conventional local-proxy values for
// fields the config file left unset.
func applyProxyDefaults(p *types.ProxyConfig) {
	if p.Protocol == "" {
		p.Protocol = types.ProxySOCKS5
	}
	if p.Host == "" {
		p.Host = "127.0.0.1"
	}
	if p.Port == 0 {
		p.Port = 1080
	}
}
