package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	ErrHostRequired            = errors.New("transport: host required")
	ErrInvalidPort             = errors.New("transport: invalid port")
	ErrInvalidSecurityMode     = errors.New("transport: invalid security mode")
	ErrTLSInsecureSkipNotAllow = errors.New("transport: insecure skip verify not allowed")
	ErrTLSCertFileRequired     = errors.New("transport: tls cert file required")
	ErrTLSKeyFileRequired      = errors.New("transport: tls key file required")
)

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig holds client-side TLS settings. Verification is on unless
// InsecureSkipVerify is set explicitly.
type TLSConfig struct {
	// InsecureSkipVerify accepts any server certificate and skips hostname
	// checks. Traffic is still encrypted. Testing only.
	InsecureSkipVerify bool
	ServerName         string
	CAFile             string
	CertFile           string
	KeyFile            string
}

// Config is handed to Dial; nothing here is read from process globals.
type Config struct {
	Host             string
	Port             int
	SecurityMode     SecurityMode
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// ReadTimeout bounds a single frame receive. Zero waits until the peer
	// answers, closes, or the receive context ends.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLS          TLSConfig
}

func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             9000,
		SecurityMode:     SecurityModeDevelopment,
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		ReadTimeout:      0,
		WriteTimeout:     15 * time.Second,
	}
}

func (c Config) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrHostRequired
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	mode := NormalizeSecurityMode(c.SecurityMode)
	switch mode {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, c.SecurityMode)
	}
	if mode == SecurityModeProduction && c.TLS.InsecureSkipVerify {
		return ErrTLSInsecureSkipNotAllow
	}

	certSet := strings.TrimSpace(c.TLS.CertFile) != ""
	keySet := strings.TrimSpace(c.TLS.KeyFile) != ""
	if keySet && !certSet {
		return ErrTLSCertFileRequired
	}
	if certSet && !keySet {
		return ErrTLSKeyFileRequired
	}
	return nil
}
