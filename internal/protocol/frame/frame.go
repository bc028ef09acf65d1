package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// HeaderLen is the fixed prefix: 1 byte message type + 4 byte big-endian length.
const HeaderLen = 5

// chunkedReadThreshold bounds the up-front allocation for a declared payload
// length; larger payloads grow as bytes actually arrive.
const chunkedReadThreshold = 64 * 1024

var (
	ErrClosedEarly     = errors.New("frame: connection closed early")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortHeader     = errors.New("frame: short header")
)

// Frame is one complete wire message: |1B type|4B length|payload|.
type Frame struct {
	Type    byte
	Payload []byte
}

// Len reports the encoded size of f.
func (f Frame) Len() int {
	return HeaderLen + len(f.Payload)
}

func (f Frame) String() string {
	return fmt.Sprintf("msg_id=%d length=%d payload=%s", f.Type, len(f.Payload), Escape(f.Payload))
}

// Limits constrains the payload size accepted on encode and decode.
// A zero MaxPayloadBytes leaves only the 32-bit length field as the bound.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{}
}

func (l Limits) allow(n uint64) error {
	if n > math.MaxUint32 {
		return ErrPayloadTooLarge
	}
	if l.MaxPayloadBytes > 0 && n > uint64(l.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, l.MaxPayloadBytes)
	}
	return nil
}

// Encode returns type || u32be(len(payload)) || payload.
func Encode(msgType byte, payload []byte) ([]byte, error) {
	return EncodeWithLimits(Frame{Type: msgType, Payload: payload}, DefaultLimits())
}

// EncodeWithLimits encodes f, rejecting payloads over limits.
func EncodeWithLimits(f Frame, limits Limits) ([]byte, error) {
	if err := limits.allow(uint64(len(f.Payload))); err != nil {
		return nil, err
	}
	buf := make([]byte, f.Len())
	copy(buf, EncodeHeader(f.Type, uint32(len(f.Payload))))
	copy(buf[HeaderLen:], f.Payload)
	return buf, nil
}

func EncodeHeader(msgType byte, length uint32) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = msgType
	binary.BigEndian.PutUint32(buf[1:HeaderLen], length)
	return buf
}

func DecodeHeader(b []byte) (byte, uint32, error) {
	if len(b) != HeaderLen {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	return b[0], binary.BigEndian.Uint32(b[1:HeaderLen]), nil
}

// WriteFrame writes f with a single Write so the header and payload leave together.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	buf, err := EncodeWithLimits(f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame blocks until a whole frame has been read from r. End of stream
// anywhere before the last payload byte yields ErrClosedEarly; partial frames
// are never returned.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var msgType [1]byte
	if err := readExact(r, msgType[:], "type"); err != nil {
		return Frame{}, err
	}
	var lenBuf [4]byte
	if err := readExact(r, lenBuf[:], "length"); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if err := limits.allow(uint64(length)); err != nil {
		return Frame{}, err
	}

	payload, err := readPayload(r, length)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: msgType[0], Payload: payload}, nil
}

func readPayload(r io.Reader, length uint32) ([]byte, error) {
	if length <= chunkedReadThreshold {
		payload := make([]byte, length)
		if err := readExact(r, payload, "payload"); err != nil {
			return nil, err
		}
		return payload, nil
	}

	var buf bytes.Buffer
	buf.Grow(chunkedReadThreshold)
	if _, err := io.CopyN(&buf, r, int64(length)); err != nil {
		return nil, closedEarly("payload", err)
	}
	return buf.Bytes(), nil
}

func readExact(r io.Reader, buf []byte, field string) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return closedEarly(field, err)
	}
	return nil
}

func closedEarly(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: reading %s: %w", ErrClosedEarly, field, err)
	}
	return err
}

// Escape renders payload bytes for terminal display. Printable ASCII is kept
// and every other byte is written as \xNN, so multi-byte UTF-8 shows its
// raw bytes.
func Escape(payload []byte) string {
	var b strings.Builder
	b.Grow(len(payload) + 2)
	b.WriteByte('"')
	for _, c := range payload {
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
				continue
			}
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
