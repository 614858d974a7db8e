package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the process configuration.
type Config struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// UPnPCallbackURL is the full URL where this process receives UPnP GENA
	// NOTIFY requests. When empty, UPnP eventing is disabled and agents keep
	// a nil session id.
	UPnPCallbackURL string `yaml:"upnp_callback_url"`

	// YXCTimeoutMs bounds every outbound YXC HTTP call.
	YXCTimeoutMs int `yaml:"yxc_timeout_ms"`

	// UPnPTimeoutMs bounds SOAP, GENA and description fetches.
	UPnPTimeoutMs int `yaml:"upnp_timeout_ms"`

	// SSDPRescanSec is the interval between periodic M-SEARCH passes.
	// Zero disables the rescan schedule; the startup auto-discover still runs.
	SSDPRescanSec int `yaml:"ssdp_rescan_sec"`

	// YXCEventPort is the UDP port for unicast YXC events. Devices are
	// enrolled with this port via the X-AppPort header.
	YXCEventPort int `yaml:"yxc_event_port"`

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from an optional YAML file named by
// MUSICCAST_CONFIG, then applies environment variable overrides.
func Load() (Config, error) {
	cfg := Config{
		Host:          "0.0.0.0",
		Port:          "9000",
		YXCTimeoutMs:  5000,
		UPnPTimeoutMs: 5000,
		SSDPRescanSec: 60,
		YXCEventPort:  41100,
		LogLevel:      "info",
	}

	if path := os.Getenv("MUSICCAST_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Host = envString("HOST", cfg.Host)
	cfg.Port = envString("PORT", cfg.Port)
	cfg.UPnPCallbackURL = envString("UPNP_CALLBACK_URL", cfg.UPnPCallbackURL)
	cfg.YXCTimeoutMs = envInt("YXC_TIMEOUT_MS", cfg.YXCTimeoutMs)
	cfg.UPnPTimeoutMs = envInt("UPNP_TIMEOUT_MS", cfg.UPnPTimeoutMs)
	cfg.SSDPRescanSec = envInt("SSDP_RESCAN_SEC", cfg.SSDPRescanSec)
	cfg.YXCEventPort = envInt("YXC_EVENT_PORT", cfg.YXCEventPort)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	if cfg.UPnPCallbackURL != "" && !strings.HasPrefix(cfg.UPnPCallbackURL, "http://") {
		return Config{}, fmt.Errorf("UPNP_CALLBACK_URL must be an absolute http URL")
	}

	return cfg, nil
}

// CallbackPath returns the URL path portion of the configured callback URL,
// or "/upnp/notify" when no callback is configured so the route can still be
// registered.
func (c Config) CallbackPath() string {
	if c.UPnPCallbackURL == "" {
		return "/upnp/notify"
	}
	trimmed := strings.TrimPrefix(c.UPnPCallbackURL, "http://")
	if idx := strings.Index(trimmed, "/"); idx != -1 {
		return trimmed[idx:]
	}
	return "/upnp/notify"
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
