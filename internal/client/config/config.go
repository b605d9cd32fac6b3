// Package config handles configuration for evalctl: defaults, then the
// environment (optionally from a .env file), then a JSON file, then flags.
package config

import "time"

// Config holds runtime settings for evalctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the credeval gRPC endpoint.
//   - RequestTimeout: deadline applied to every call.
//   - AccessToken: JWT sent with every call. When empty evalctl prompts for it.
//   - SecretKey: only used by "evalctl token" to sign development tokens.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	AccessToken        string
	SecretKey          string
}

// GlobalFlags are consumed by config and never reach the subcommands.
var GlobalFlags = []string{"-a", "-timeout", "-token", "-c", "-config", "--config"}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays the
// environment, JSON (if present) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
