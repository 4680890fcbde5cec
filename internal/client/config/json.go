package config

import (
	"encoding/json"
	"os"

	"github.com/akozadaev/inkpad/internal/flagx"
	"github.com/akozadaev/inkpad/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, non-zero values are copied into
// the runtime Config.
type JsonConfig struct {
	ServerEndpointURL   string         `json:"server_endpoint_url"`
	WSEndpointURL       string         `json:"ws_endpoint_url"`
	DatabaseDSN         string         `json:"database_dsn"`
	OwnerID             string         `json:"owner_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RemoteCallTimeout   timex.Duration `json:"remote_call_timeout"`
	SuppressDelay       timex.Duration `json:"suppress_delay"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. When no file is named the function is a no-op; read or
// unmarshal errors panic (intended usage is defaults -> env -> json ->
// flags, at startup, where a broken config file should be fatal).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointURL != "" {
		cfg.ServerEndpointURL = jc.ServerEndpointURL
	}
	if jc.WSEndpointURL != "" {
		cfg.WSEndpointURL = jc.WSEndpointURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.OwnerID != "" {
		cfg.OwnerID = jc.OwnerID
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RemoteCallTimeout.Duration > 0 {
		cfg.RemoteCallTimeout = jc.RemoteCallTimeout.Duration
	}
	if jc.SuppressDelay.Duration > 0 {
		cfg.SuppressDelay = jc.SuppressDelay.Duration
	}
}
