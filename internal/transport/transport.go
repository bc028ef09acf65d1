package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/framectl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("transport: connection closed")

// Conn is one TLS session to the server. It is used by a single goroutine;
// only Close may race with an in-flight receive.
type Conn struct {
	cfg       Config
	conn      *tls.Conn
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a TCP connection to cfg.Address and upgrades it to TLS as client.
// Failures are returned as-is; there is no retry.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.clientTLSConfig()
	if err != nil {
		return nil, err
	}

	addr := cfg.Address()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		handshakeCtx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, fmt.Errorf("transport: tls handshake with %s: %w", addr, err)
	}

	version, cipher, peer := describeState(conn.ConnectionState())
	event := log.Info().
		Str("addr", addr).
		Str("tls_version", version).
		Str("cipher", cipher).
		Str("peer", peer)
	if cfg.TLS.InsecureSkipVerify {
		event = event.Bool("insecure", true)
	}
	event.Msg("transport connected")

	return &Conn{cfg: cfg, conn: conn}, nil
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes p in full. The write ends early when ctx is done or
// WriteTimeout elapses. Sends after Close fail with ErrClosed and never
// reach the socket.
func (c *Conn) Send(ctx context.Context, p []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	stop := c.armWrite(ctx)
	defer stop()

	if _, err := c.conn.Write(p); err != nil {
		return c.sendError(ctx, err)
	}
	return nil
}

// SendFrame writes one frame with the same cancellation rules as Send.
func (c *Conn) SendFrame(ctx context.Context, f frame.Frame, limits frame.Limits) error {
	raw, err := frame.EncodeWithLimits(f, limits)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, raw); err != nil {
		return err
	}
	log.Debug().Uint8("msg_id", f.Type).Int("length", len(f.Payload)).Msg("frame sent")
	return nil
}

func (c *Conn) sendError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transport: send: %w", ctxErr)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return err
}

// ReceiveFrame blocks for exactly one frame. The wait ends early when ctx is
// done or ReadTimeout elapses; both leave the connection unusable.
func (c *Conn) ReceiveFrame(ctx context.Context, limits frame.Limits) (frame.Frame, error) {
	if c.closed.Load() {
		return frame.Frame{}, ErrClosed
	}
	stop := c.armRead(ctx)
	defer stop()

	f, err := frame.ReadFrame(c.conn, limits)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return frame.Frame{}, fmt.Errorf("transport: receive: %w", ctxErr)
		}
		if c.closed.Load() {
			return frame.Frame{}, ErrClosed
		}
		return frame.Frame{}, err
	}
	log.Debug().Uint8("msg_id", f.Type).Int("length", len(f.Payload)).Msg("frame received")
	return f, nil
}

func (c *Conn) armRead(ctx context.Context) func() bool {
	_ = c.conn.SetReadDeadline(deadlineFor(ctx, c.cfg.ReadTimeout))
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Unix(1, 0))
	})
}

func (c *Conn) armWrite(ctx context.Context) func() bool {
	_ = c.conn.SetWriteDeadline(deadlineFor(ctx, c.cfg.WriteTimeout))
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Unix(1, 0))
	})
}

// deadlineFor picks the earlier of ctx's deadline and now+timeout. Zero
// means no deadline.
func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Close tears down the TLS session once; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
		log.Debug().Str("addr", c.cfg.Address()).Msg("transport closed")
	})
	return c.closeErr
}
