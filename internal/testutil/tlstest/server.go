package tlstest

import (
	"bytes"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/framectl/internal/protocol/frame"
)

// EchoPrefix is prepended to every echoed payload by FrameEcho.
const EchoPrefix = "SERVER ECHO: "

// Handler serves one accepted TLS connection. The server closes conn after
// the handler returns.
type Handler func(conn net.Conn)

// Server is a loopback TLS listener for client tests.
type Server struct {
	ln net.Listener
	wg sync.WaitGroup
}

// Fixture bundles a CA and a loopback server certificate.
type Fixture struct {
	Authority *Authority
	CertFile  string
	KeyFile   string
}

func NewFixture(t testing.TB) Fixture {
	t.Helper()
	dir := t.TempDir()
	ca := NewAuthority(t, dir, "framectl test ca")
	certFile, keyFile := ca.IssueServerCert(t, dir, "localhost", []string{"localhost"}, []net.IP{net.IPv4(127, 0, 0, 1)})
	return Fixture{Authority: ca, CertFile: certFile, KeyFile: keyFile}
}

// StartServer listens on 127.0.0.1 with an ephemeral port; the server is shut
// down by t.Cleanup.
func StartServer(t testing.TB, fx Fixture, handler Handler) *Server {
	t.Helper()
	cert, err := tls.LoadX509KeyPair(fx.CertFile, fx.KeyFile)
	if err != nil {
		t.Fatalf("load server keypair: %v", err)
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{ln: ln}
	s.wg.Add(1)
	go s.serve(handler)
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *Server) serve(handler Handler) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			handler(conn)
		}()
	}
}

func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Recorder captures every byte a client sends on the first connection it handles.
type Recorder struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	once sync.Once
	done chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{done: make(chan struct{})}
}

func (r *Recorder) Handle(conn net.Conn) {
	first := false
	r.once.Do(func() { first = true })
	if !first {
		return
	}
	defer close(r.done)
	chunk := make([]byte, 512)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(chunk[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Wait blocks until the recorded client disconnects and returns its bytes.
func (r *Recorder) Wait(t testing.TB, timeout time.Duration) []byte {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("recorder: client did not disconnect within %v", timeout)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf.Bytes()...)
}

// Staller completes the TLS handshake and then never reads, so client
// writes back up once the socket buffers fill.
type Staller struct {
	release chan struct{}
	once    sync.Once
}

func NewStaller() *Staller {
	return &Staller{release: make(chan struct{})}
}

func (s *Staller) Handle(conn net.Conn) {
	if tc, ok := conn.(*tls.Conn); ok {
		if err := tc.Handshake(); err != nil {
			return
		}
	}
	<-s.release
}

// Release lets every stalled handler return.
func (s *Staller) Release() {
	s.once.Do(func() { close(s.release) })
}

// FrameEcho answers every frame with type msg_id+1 and payload
// EchoPrefix+payload, until the client goes away.
func FrameEcho(conn net.Conn) {
	for {
		in, err := frame.ReadFrame(conn, frame.DefaultLimits())
		if err != nil {
			return
		}
		out := frame.Frame{
			Type:    in.Type + 1,
			Payload: append([]byte(EchoPrefix), in.Payload...),
		}
		if err := frame.WriteFrame(conn, out, frame.DefaultLimits()); err != nil {
			return
		}
	}
}

// Silent reads and discards until the client disconnects; it never replies.
func Silent(conn net.Conn) {
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

// HangUpAfterHeader reads one request frame, then sends a reply header that
// promises more payload than it delivers before closing.
func HangUpAfterHeader(conn net.Conn) {
	in, err := frame.ReadFrame(conn, frame.DefaultLimits())
	if err != nil {
		return
	}
	_, _ = conn.Write(frame.EncodeHeader(in.Type, 64))
	_, _ = conn.Write([]byte("short"))
}
