package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is loaded first, if present, without
// overriding variables already set in the environment.
//
// Recognized variables:
//
//	INKPAD_SERVER_URL        base http(s) URL of the backend
//	INKPAD_WS_URL            base ws(s) URL of the change feed
//	INKPAD_DATABASE          path of the local database
//	INKPAD_OWNER_ID          owner id for all local data
//	INKPAD_ONLINE_INTERVAL   probe interval, time.ParseDuration syntax
//	INKPAD_SUPPRESS_DELAY    edit-protection delay, time.ParseDuration syntax
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("INKPAD_SERVER_URL"); v != "" {
		cfg.ServerEndpointURL = v
	}
	if v := os.Getenv("INKPAD_WS_URL"); v != "" {
		cfg.WSEndpointURL = v
	}
	if v := os.Getenv("INKPAD_DATABASE"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("INKPAD_OWNER_ID"); v != "" {
		cfg.OwnerID = v
	}
	if v := os.Getenv("INKPAD_ONLINE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OnlineCheckInterval = d
		}
	}
	if v := os.Getenv("INKPAD_SUPPRESS_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SuppressDelay = d
		}
	}
}
