// Package packet builds the one-directional int-list + string packet:
//
//	|4B int32 BE|* |4B uint32 BE byte length|UTF-8 bytes|
//
// There is no decode path; peers never answer this format.
package packet

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	intSize    = 4
	lengthSize = 4
)

var ErrInvalidInt = errors.New("packet: invalid int32")

// Packet is one outgoing message.
type Packet struct {
	Ints []int32
	Text string
}

// Len reports the encoded size of p. The text length counts UTF-8 bytes, not runes.
func (p Packet) Len() int {
	return len(p.Ints)*intSize + lengthSize + len(p.Text)
}

func (p Packet) Bytes() []byte {
	return Encode(p.Ints, p.Text)
}

// Encode packs each int big-endian in order, then the byte length of text and
// the text bytes themselves.
func Encode(ints []int32, text string) []byte {
	buf := make([]byte, 0, len(ints)*intSize+lengthSize+len(text))
	for _, v := range ints {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v))
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(text)))
	return append(buf, text...)
}

// ParseInts splits line on whitespace and parses every token as a signed
// 32-bit decimal. The first bad token is reported.
func ParseInts(line string) ([]int32, error) {
	fields := strings.Fields(line)
	out := make([]int32, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidInt, field)
		}
		out = append(out, int32(v))
	}
	return out, nil
}

// Hex renders b as a lowercase hex string for diagnostics.
func Hex(b []byte) string {
	return hex.EncodeToString(b)
}
