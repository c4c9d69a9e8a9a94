/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package blinksdk holds the core configuration and error types shared by
// every other package in the SDK.
package blinksdk

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the client-wide settings. Values come from (in order of
// precedence) explicit setters, BLINK_* environment variables, an optional
// YAML config file, and the built-in defaults.
type Config struct {
	// WSServer is the websocket URL of the SIP gateway.
	WSServer string `mapstructure:"ws_server"`

	// DefaultDomain is appended to bare usernames when dialing.
	DefaultDomain string `mapstructure:"default_domain"`

	// DefaultConferenceDomain is appended to bare room names.
	DefaultConferenceDomain string `mapstructure:"default_conference_domain"`

	// DefaultGuestDomain is the domain used to synthesize guest accounts.
	DefaultGuestDomain string `mapstructure:"default_guest_domain"`

	// PublicURL is the base URL used when sharing conference links.
	PublicURL string `mapstructure:"public_url"`

	// HistoryPath is the sqlite file holding call history and the last
	// used account. Empty selects an in-memory database.
	HistoryPath string `mapstructure:"history_path"`
}

// DefaultConfig returns a Config populated with the stock gateway settings.
func DefaultConfig() *Config {
	return &Config{
		WSServer:                "wss://webrtc-gateway.sipthor.net:8888/webrtcgateway/ws",
		DefaultDomain:           "sip2sip.info",
		DefaultConferenceDomain: "conference.sip2sip.info",
		DefaultGuestDomain:      "guest.sip2sip.info",
		PublicURL:               "https://webrtc.sipthor.net",
		HistoryPath:             "",
	}
}

// LoadConfig reads configuration from the given file (optional, "" skips the
// file lookup) and the environment, on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("ws_server", def.WSServer)
	v.SetDefault("default_domain", def.DefaultDomain)
	v.SetDefault("default_conference_domain", def.DefaultConferenceDomain)
	v.SetDefault("default_guest_domain", def.DefaultGuestDomain)
	v.SetDefault("public_url", def.PublicURL)
	v.SetDefault("history_path", def.HistoryPath)

	v.SetEnvPrefix("BLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.WSServer == "" {
		return nil, fmt.Errorf("config: ws_server must not be empty")
	}
	return &cfg, nil
}
