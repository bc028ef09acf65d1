package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framectl/internal/protocol/frame"
	"github.com/danmuck/framectl/internal/repl"
	"github.com/danmuck/framectl/internal/transport"
	"github.com/rs/zerolog/log"
)

const DefaultPath = "framectl.toml"

// File is the on-disk TOML layout. Durations are Go duration strings.
type File struct {
	Host               string `toml:"host" comment:"server host"`
	Port               int    `toml:"port" comment:"server port"`
	SecurityMode       string `toml:"security_mode" comment:"development or production; production refuses insecure_skip_verify"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify" comment:"accept any server certificate and skip hostname checks (testing only)"`
	ServerName         string `toml:"server_name" comment:"name checked against the server certificate; defaults to host"`
	CAFile             string `toml:"ca_file" comment:"PEM bundle trusted for the server certificate; empty uses system roots"`
	CertFile           string `toml:"cert_file" comment:"client certificate for mutual TLS"`
	KeyFile            string `toml:"key_file" comment:"client key for mutual TLS"`
	ConnectTimeout     string `toml:"connect_timeout"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	ReadTimeout        string `toml:"read_timeout" comment:"max wait for one reply frame; 0s waits until the server answers or closes"`
	WriteTimeout       string `toml:"write_timeout"`
	MaxPayloadBytes    uint32 `toml:"max_payload_bytes" comment:"cap on frame payload size; 0 allows anything a 32-bit length can describe"`
	FrameInputPolicy   string `toml:"frame_input_policy" comment:"abort or reprompt on a bad frame command"`
	PacketInputPolicy  string `toml:"packet_input_policy" comment:"abort or reprompt on a bad integer list"`
}

// Config is the resolved runtime configuration for both REPLs.
type Config struct {
	Transport    transport.Config
	Limits       frame.Limits
	FramePolicy  repl.InputPolicy
	PacketPolicy repl.InputPolicy
}

func Default() Config {
	return Config{
		Transport:    transport.DefaultConfig(),
		Limits:       frame.DefaultLimits(),
		FramePolicy:  repl.PolicyAbort,
		PacketPolicy: repl.PolicyReprompt,
	}
}

func (c Config) Validate() error {
	return c.Transport.Validate()
}

// LoadOptional loads path when it exists and returns defaults otherwise.
func LoadOptional(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("config file not found, using defaults")
		return Default(), nil
	}
	return Load(path)
}

// Load decodes path and overlays only the keys it defines onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	var raw File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Str("path", path).Str("key", key.String()).Msg("unknown config key ignored")
	}

	if meta.IsDefined("host") {
		cfg.Transport.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Transport.Port = raw.Port
	}
	if meta.IsDefined("security_mode") {
		cfg.Transport.SecurityMode = transport.NormalizeSecurityMode(transport.SecurityMode(raw.SecurityMode))
	}
	if meta.IsDefined("insecure_skip_verify") {
		cfg.Transport.TLS.InsecureSkipVerify = raw.InsecureSkipVerify
	}
	if meta.IsDefined("server_name") {
		cfg.Transport.TLS.ServerName = strings.TrimSpace(raw.ServerName)
	}
	if meta.IsDefined("ca_file") {
		cfg.Transport.TLS.CAFile = strings.TrimSpace(raw.CAFile)
	}
	if meta.IsDefined("cert_file") {
		cfg.Transport.TLS.CertFile = strings.TrimSpace(raw.CertFile)
	}
	if meta.IsDefined("key_file") {
		cfg.Transport.TLS.KeyFile = strings.TrimSpace(raw.KeyFile)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Transport.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.Transport.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Transport.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Transport.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("max_payload_bytes") {
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("frame_input_policy") {
		p, err := repl.ParseInputPolicy(raw.FrameInputPolicy)
		if err != nil {
			return Config{}, fmt.Errorf("load config: frame_input_policy: %w", err)
		}
		cfg.FramePolicy = p
	}
	if meta.IsDefined("packet_input_policy") {
		p, err := repl.ParseInputPolicy(raw.PacketInputPolicy)
		if err != nil {
			return Config{}, fmt.Errorf("load config: packet_input_policy: %w", err)
		}
		cfg.PacketPolicy = p
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}
