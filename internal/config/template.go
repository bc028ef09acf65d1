package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile renders Default() in on-disk form.
func DefaultFile() File {
	cfg := Default()
	return File{
		Host:               cfg.Transport.Host,
		Port:               cfg.Transport.Port,
		SecurityMode:       string(cfg.Transport.SecurityMode),
		InsecureSkipVerify: cfg.Transport.TLS.InsecureSkipVerify,
		ServerName:         cfg.Transport.TLS.ServerName,
		CAFile:             cfg.Transport.TLS.CAFile,
		CertFile:           cfg.Transport.TLS.CertFile,
		KeyFile:            cfg.Transport.TLS.KeyFile,
		ConnectTimeout:     cfg.Transport.ConnectTimeout.String(),
		HandshakeTimeout:   cfg.Transport.HandshakeTimeout.String(),
		ReadTimeout:        cfg.Transport.ReadTimeout.String(),
		WriteTimeout:       cfg.Transport.WriteTimeout.String(),
		MaxPayloadBytes:    cfg.Limits.MaxPayloadBytes,
		FrameInputPolicy:   cfg.FramePolicy.String(),
		PacketInputPolicy:  cfg.PacketPolicy.String(),
	}
}

func Template() ([]byte, error) {
	body, err := toml.Marshal(DefaultFile())
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	header := []byte("# framectl client configuration\n\n")
	return append(header, body...), nil
}

func WriteTemplate(path string, overwrite bool) error {
	data, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
