// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package config loads the resolver's configuration: the network/
// servername identity, peer list, and tuning knobs every other package
// consumes as already-loaded Go values, never as a file format.
package config // import "kontalk.im/resolver/internal/config"

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every value the resolver needs to start: its own identity,
// the peers it fans lookups out to, and ambient tuning knobs.
type Config struct {
	// Network is the bare domain the resolver answers on behalf of
	// (e.g. "kontalk.net"); ServerName is the router's own component
	// domain (e.g. "prime.kontalk.net"). See spec.md §4.1.
	Network    string `yaml:"network"`
	ServerName string `yaml:"server_name"`

	// Secret is the XEP-0114 component handshake secret.
	Secret string `yaml:"secret"`

	// RouterAddr is the TCP address of the central router component
	// socket to dial.
	RouterAddr string `yaml:"router_addr"`

	// Peers is the static set of peer servers the Lookup Engine fans
	// probes and last-activity queries out to.
	Peers []string `yaml:"peers"`

	// LogLevel is parsed with logrus.ParseLevel; empty defaults to info.
	LogLevel string `yaml:"log_level"`

	// Debug sets the log level to debug, overriding LogLevel.
	Debug bool `yaml:"debug"`

	// CacheTTL is the Presence Cache eviction TTL; zero disables eviction.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// WaitFactor scales lookup.MaxLookupTimeout per fan-out.
	WaitFactor float64 `yaml:"wait_factor"`

	// MetricsAddr is the listen address for the Prometheus HTTP endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads and parses a YAML config file at path, then applies any
// environment overrides from a ".env" file in the same style as
// github.com/joho/godotenv's typical local-development usage: godotenv
// values are loaded into the process environment first so a deployment can
// override individual fields without editing the checked-in YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	c.applyEnvOverrides()
	return &c, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("RESOLVER_SECRET"); ok {
		c.Secret = v
	}
	if v, ok := os.LookupEnv("RESOLVER_ROUTER_ADDR"); ok {
		c.RouterAddr = v
	}
	if v, ok := os.LookupEnv("RESOLVER_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("RESOLVER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
}
