package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/scoreboard/internal/config"
	"github.com/danmuck/scoreboard/internal/scoreboard"
)

type fileConfig struct {
	DeviceID                 string   `toml:"device_id"`
	BackendURL               string   `toml:"backend_url"`
	PublishTimeout           string   `toml:"publish_timeout"`
	StreamAddress            string   `toml:"stream_address"`
	StreamSecure             bool     `toml:"stream_secure"`
	StreamNamespace          string   `toml:"stream_namespace"`
	StreamCAFile             string   `toml:"stream_ca_file"`
	StreamServerName         string   `toml:"stream_server_name"`
	StreamInsecureSkipVerify bool     `toml:"stream_insecure_skip_verify"`
	StatusAddr               string   `toml:"status_addr"`
	StatusToken              string   `toml:"status_token"`
	CorsOrigins              []string `toml:"cors_origins"`
	HeartbeatInterval        string   `toml:"heartbeat_interval"`
	BoardFile                string   `toml:"board_file"`
	RedisAddr                string   `toml:"redis_addr"`
	RedisPassword            string   `toml:"redis_password"`
	RedisDB                  int      `toml:"redis_db"`
	RedisChannel             string   `toml:"redis_channel"`
	LogFile                  string   `toml:"log_file"`
}

// settings is everything the service file configures, including the parts
// the service itself does not own.
type settings struct {
	Service   scoreboard.ServiceConfig
	BoardFile string
	LogFile   string
}

func loadSettings(path string) (settings, error) {
	out := settings{Service: scoreboard.DefaultServiceConfig()}
	cfg := &out.Service

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load service config: %w", err)
	}

	if meta.IsDefined("device_id") {
		if id := strings.TrimSpace(raw.DeviceID); id != "" {
			cfg.DeviceID = id
		}
	}
	if meta.IsDefined("backend_url") {
		cfg.BackendURL = strings.TrimSpace(raw.BackendURL)
	}
	if meta.IsDefined("publish_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PublishTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse publish_timeout: %w", err)
		}
		cfg.PublishTimeout = d
	}

	if meta.IsDefined("stream_address") {
		cfg.Stream.Address = strings.TrimSpace(raw.StreamAddress)
	}
	if meta.IsDefined("stream_secure") {
		cfg.Stream.Secure = raw.StreamSecure
		cfg.Stream.Session.TLS.Enabled = raw.StreamSecure
	}
	if meta.IsDefined("stream_namespace") {
		cfg.Stream.Namespace = strings.TrimSpace(raw.StreamNamespace)
	}
	if meta.IsDefined("stream_ca_file") {
		cfg.Stream.Session.TLS.CAFile = resolvePath(path, raw.StreamCAFile)
	}
	if meta.IsDefined("stream_server_name") {
		cfg.Stream.Session.TLS.ServerName = strings.TrimSpace(raw.StreamServerName)
	}
	if meta.IsDefined("stream_insecure_skip_verify") {
		cfg.Stream.Session.TLS.InsecureSkipVerify = raw.StreamInsecureSkipVerify
	}

	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("heartbeat_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HeartbeatInterval))
		if err != nil {
			return settings{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	if meta.IsDefined("redis_addr") {
		cfg.Redis.Addr = strings.TrimSpace(raw.RedisAddr)
	}
	if meta.IsDefined("redis_password") {
		cfg.Redis.Password = raw.RedisPassword
	}
	if meta.IsDefined("redis_db") {
		cfg.Redis.DB = raw.RedisDB
	}
	if meta.IsDefined("redis_channel") {
		if ch := strings.TrimSpace(raw.RedisChannel); ch != "" {
			cfg.Redis.Channel = ch
		}
	}

	if meta.IsDefined("log_file") {
		out.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("board_file") && strings.TrimSpace(raw.BoardFile) != "" {
		out.BoardFile = resolvePath(path, raw.BoardFile)
		board, err := config.LoadBoardConfig(out.BoardFile)
		if err != nil {
			return settings{}, err
		}
		cfg.Board = board
	}
	return out, nil
}

// resolvePath makes p relative to the directory of the config file.
func resolvePath(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
