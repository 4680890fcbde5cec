package config

import "time"

// Config holds runtime settings for the Inkpad client.
//
// Fields:
//   - ServerEndpointURL: base http(s) URL of the backend REST API.
//   - WSEndpointURL: base ws(s) URL of the change feed. Empty disables it.
//   - DatabaseDSN: path of the local SQLite database.
//   - OwnerID: the logical owner all store and queue operations are scoped by.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RemoteCallTimeout: upper bound on any single remote call.
//   - SuppressDelay: how long after a save a note stays protected from
//     remote overwrite. A policy knob, not a correctness constant.
type Config struct {
	ServerEndpointURL   string
	WSEndpointURL       string
	DatabaseDSN         string
	OwnerID             string
	OnlineCheckInterval time.Duration
	RemoteCallTimeout   time.Duration
	SuppressDelay       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointURL = "http://127.0.0.1:8080"
	c.WSEndpointURL = "ws://127.0.0.1:8080"
	c.DatabaseDSN = "inkpad.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RemoteCallTimeout = 10 * time.Second
	c.SuppressDelay = 500 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (including a .env file if present), a JSON file (if
// given) and command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
