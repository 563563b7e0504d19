package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix          = "CODESYNC"
	defaultListenAddr  = ":3000"
	defaultLogLevel    = "info"
	defaultSendBuffer  = 64
	defaultShutdownSec = 5
)

// Config captures runtime configuration for the session server.
type Config struct {
	ListenAddr      string
	AllowedOrigins  []string
	LogLevel        string
	SendBuffer      int
	ShutdownSeconds int
}

// NewViper returns a viper instance with defaults and env bindings
// configured (CODESYNC_LISTEN_ADDR, CODESYNC_LOG_LEVEL, ...).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen.addr", defaultListenAddr)
	v.SetDefault("allowed.origins", "")
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("send.buffer", defaultSendBuffer)
	v.SetDefault("shutdown.seconds", defaultShutdownSec)
	return v
}

// Load parses runtime configuration from viper.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ListenAddr:      v.GetString("listen.addr"),
		AllowedOrigins:  splitOrigins(v.GetString("allowed.origins")),
		LogLevel:        v.GetString("log.level"),
		SendBuffer:      v.GetInt("send.buffer"),
		ShutdownSeconds: v.GetInt("shutdown.seconds"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen.addr is required")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send.buffer must be greater than 0")
	}
	if c.ShutdownSeconds <= 0 {
		return fmt.Errorf("shutdown.seconds must be greater than 0")
	}
	return nil
}

// splitOrigins parses a comma-separated origin list. Empty means any
// origin is accepted at the WebSocket upgrade.
func splitOrigins(s string) []string {
	var origins []string
	for _, part := range strings.Split(s, ",") {
		if o := strings.TrimSpace(part); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
