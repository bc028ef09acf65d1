package transport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/framectl/internal/testutil/testlog"
)

func TestDefaultConfigVerifiesCertificates(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	if cfg.TLS.InsecureSkipVerify {
		t.Fatalf("insecure mode must be opt-in")
	}
	if cfg.Address() != "127.0.0.1:9000" {
		t.Fatalf("unexpected default address: %q", cfg.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	tlsCfg, err := cfg.clientTLSConfig()
	if err != nil {
		t.Fatalf("client tls config: %v", err)
	}
	if tlsCfg.InsecureSkipVerify || tlsCfg.ServerName != "127.0.0.1" {
		t.Fatalf("unexpected tls config: insecure=%v server_name=%q", tlsCfg.InsecureSkipVerify, tlsCfg.ServerName)
	}
}

func TestValidate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "empty host", mutate: func(c *Config) { c.Host = " " }, want: ErrHostRequired},
		{name: "zero port", mutate: func(c *Config) { c.Port = 0 }, want: ErrInvalidPort},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }, want: ErrInvalidPort},
		{name: "unknown mode", mutate: func(c *Config) { c.SecurityMode = "staging" }, want: ErrInvalidSecurityMode},
		{
			name: "production insecure",
			mutate: func(c *Config) {
				c.SecurityMode = SecurityModeProduction
				c.TLS.InsecureSkipVerify = true
			},
			want: ErrTLSInsecureSkipNotAllow,
		},
		{name: "key without cert", mutate: func(c *Config) { c.TLS.KeyFile = "client.key" }, want: ErrTLSCertFileRequired},
		{name: "cert without key", mutate: func(c *Config) { c.TLS.CertFile = "client.crt" }, want: ErrTLSKeyFileRequired},
		{name: "development insecure", mutate: func(c *Config) { c.TLS.InsecureSkipVerify = true }, want: nil},
		{name: "mixed case mode", mutate: func(c *Config) { c.SecurityMode = " Production " }, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientTLSConfigBadCABundle(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(path, []byte("not a pem bundle"), 0o644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	cfg := DefaultConfig()
	cfg.TLS.CAFile = path
	if _, err := cfg.clientTLSConfig(); err == nil {
		t.Fatalf("expected ca parse failure")
	}
}
