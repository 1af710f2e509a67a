package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type config struct {
	host             string
	port             int
	login            string
	passcode         string
	topic            string
	url              string
	tls              bool
	handshakeTimeout time.Duration
	maxFrameSize     int
	metricsAddr      string
	logLevel         string
}

// fileConfig is the TOML form of config.
type fileConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	Login            string `toml:"login"`
	Passcode         string `toml:"passcode"`
	Topic            string `toml:"topic"`
	URL              string `toml:"url"`
	TLS              bool   `toml:"tls"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	MaxFrameSize     int    `toml:"max_frame_size"`
	MetricsAddr      string `toml:"metrics_addr"`
	LogLevel         string `toml:"log_level"`
}

func defaultConfig() config {
	return config{
		host:             "localhost",
		port:             61613,
		topic:            "darwin.pushport-v16",
		handshakeTimeout: 30 * time.Second,
		logLevel:         "info",
	}
}

func (cfg *config) addFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.host, "host", cfg.host, "Broker host")
	fs.IntVar(&cfg.port, "port", cfg.port, "Broker STOMP port")
	fs.StringVar(&cfg.login, "login", cfg.login, "Login sent with CONNECT")
	fs.StringVar(&cfg.passcode, "passcode", cfg.passcode, "Passcode sent with CONNECT")
	fs.StringVar(&cfg.topic, "topic", cfg.topic, "Topic to subscribe to, without the /topic/ prefix")
	fs.StringVar(&cfg.url, "url", cfg.url, "STOMP over WebSocket URL (ws:// or wss://); overrides host and port")
	fs.BoolVar(&cfg.tls, "tls", cfg.tls, "Use TLS for the TCP connection")
	fs.DurationVar(&cfg.handshakeTimeout, "handshake.timeout", cfg.handshakeTimeout, "Wait this long for the CONNECT response")
	fs.IntVar(&cfg.maxFrameSize, "max-frame-size", cfg.maxFrameSize, "Fail when a frame buffers more bytes than this, 0 for no limit")
	fs.StringVar(&cfg.metricsAddr, "metrics.addr", cfg.metricsAddr, "Serve Prometheus metrics on this address, empty to disable")
	fs.StringVar(&cfg.logLevel, "log.level", cfg.logLevel, "Log level [trace, debug, info, warn, error, disabled]")
}

// parseConfig applies defaults, then the TOML file named by -config, then flags.
func parseConfig(args []string) (config, error) {
	var path string
	newFlagSet := func(cfg *config) *flag.FlagSet {
		fs := flag.NewFlagSet("pushport", flag.ContinueOnError)
		fs.StringVar(&path, "config", path, "Path to a TOML config file")
		cfg.addFlags(fs)
		return fs
	}

	cfg := defaultConfig()
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	cfg = defaultConfig()
	if err := loadConfigFile(path, &cfg); err != nil {
		return config{}, err
	}
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// loadConfigFile overlays the keys defined in the TOML file at path onto cfg.
func loadConfigFile(path string, cfg *config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("host") {
		cfg.host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.port = raw.Port
	}
	if meta.IsDefined("login") {
		cfg.login = raw.Login
	}
	if meta.IsDefined("passcode") {
		cfg.passcode = raw.Passcode
	}
	if meta.IsDefined("topic") {
		cfg.topic = strings.TrimSpace(raw.Topic)
	}
	if meta.IsDefined("url") {
		cfg.url = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("tls") {
		cfg.tls = raw.TLS
	}
	if meta.IsDefined("handshake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HandshakeTimeout))
		if err != nil {
			return fmt.Errorf("load config: handshake_timeout: %w", err)
		}
		cfg.handshakeTimeout = d
	}
	if meta.IsDefined("max_frame_size") {
		cfg.maxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("metrics_addr") {
		cfg.metricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.logLevel = strings.TrimSpace(raw.LogLevel)
	}
	return nil
}
