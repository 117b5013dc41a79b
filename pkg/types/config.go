// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration value objects shared by the
// fetch, resolve, and download stages. A Config is assembled once at
// startup and passed read-only through every call; there is no ambient
// process-wide configuration.
package types

import (
	"fmt"
	"net/url"
	"time"
)

// Proxy protocols accepted by ProxyConfig.Validate.
const (
	ProxyHTTP   = "http"
	ProxyHTTPS  = "https"
	ProxySOCKS5 = "socks5"
)

// Defaults matching the stock mirror setup.
const (
	DefaultBaseURL   = "https://sci-hub.se"
	DefaultRetries   = 5
	DefaultTimeout   = 60 * time.Second
	DefaultChunkSize = 32 * 1024

	// DefaultUserAgent mimics a desktop browser; the mirror serves a
	// captcha page to clients it does not recognize.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 11_0_1) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.90 Safari/537.36"
)

// ConfigError reports malformed or incomplete configuration: a bad
// mirror URL, an out-of-range retry count, or a proxy with missing
// fields. It surfaces immediately and is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// ConfigErrorf returns a ConfigError with a formatted reason.
func ConfigErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ProxyConfig describes an optional forward proxy. Constructed once by
// the caller and shared read-only across calls.
type ProxyConfig struct {
	// Protocol is one of http, https, or socks5.
	Protocol string `json:"protocol" yaml:"protocol"`

	// User and Password are optional basic credentials. Both must be
	// set for credentials to be sent.
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Validate checks that the required proxy fields are set.
func (p ProxyConfig) Validate() error {
	switch p.Protocol {
	case ProxyHTTP, ProxyHTTPS, ProxySOCKS5:
	default:
		return ConfigErrorf("unsupported proxy protocol %q", p.Protocol)
	}
	if p.Host == "" {
		return ConfigErrorf("proxy host is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return ConfigErrorf("invalid proxy port %d, should between 1 and 65535", p.Port)
	}
	return nil
}

// URL renders the proxy as protocol://[user:password@]host:port.
// Credentials are included only when both user and password are set.
func (p ProxyConfig) URL() *url.URL {
	u := &url.URL{
		Scheme: p.Protocol,
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.User != "" && p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u
}

// Config holds the settings for one download session.
type Config struct {
	// BaseURL is the mirror base URL, eg, "https://sci-hub.se".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Retries is the number of additional attempts after a failed
	// request. 0 means a single attempt with no retry.
	Retries int `json:"retries" yaml:"retries"`

	// Timeout bounds each HTTP attempt; a retry gets a fresh budget.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// ChunkSize is the buffer size used when streaming a response body
	// to disk.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// OutDir is where the CLI saves PDFs and the download log.
	OutDir string `json:"outdir" yaml:"outdir"`

	// UseProxy routes requests through Proxy when set.
	UseProxy bool        `json:"use_proxy" yaml:"use_proxy"`
	Proxy    ProxyConfig `json:"proxy" yaml:"proxy"`
}

// Default returns a Config pointing at the stock mirror with no proxy.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Retries:   DefaultRetries,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		ChunkSize: DefaultChunkSize,
	}
}

// Validate checks the session settings, including the proxy when
// enabled. All failures are ConfigErrors.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ConfigErrorf("invalid base_url %q", c.BaseURL)
	}
	if c.Retries < 0 {
		return ConfigErrorf("retries must be >= 0, got %d", c.Retries)
	}
	if c.UseProxy {
		return c.Proxy.Validate()
	}
	return nil
}
