package config

import "time"

type AppConfig struct {
	DBDriver       string        `yaml:"db_driver" env:"FSTT_DB_DRIVER" env-default:"sqlite"`
	DBURL          string        `yaml:"db_url" env:"FSTT_DB_URL" env-default:"data/incidents.db"`
	ListenAddr     string        `yaml:"listen_addr" env:"FSTT_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"FSTT_SESSION_TTL" env-default:"24h"`
	SeedDefaults   bool          `yaml:"seed_defaults" env:"FSTT_SEED_DEFAULTS" env-default:"true"`
	Uploads        UploadsConfig `yaml:"uploads"`
	SessionSweep   SweepConfig   `yaml:"session_sweep"`
	TrustedProxies []string      `yaml:"trusted_proxies" env:"FSTT_TRUSTED_PROXIES" env-separator:","`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir" env:"FSTT_UPLOADS_DIR" env-default:"data/uploads"`
	MaxBytes int64  `yaml:"max_bytes" env:"FSTT_UPLOADS_MAX_BYTES" env-default:"5242880"`
}

type SweepConfig struct {
	Enabled bool   `yaml:"enabled" env:"FSTT_SESSION_SWEEP_ENABLED" env-default:"true"`
	Spec    string `yaml:"spec" env:"FSTT_SESSION_SWEEP_SPEC" env-default:"@every 10m"`
}

const maxSessionTTL = 24 * time.Hour

// EffectiveSessionTTL clamps the configured TTL to the 24h ceiling the
// session cookie advertises.
func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := maxSessionTTL
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxSessionTTL {
		return maxSessionTTL
	}
	return ttl
}
