package packet

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/framectl/internal/testutil/testlog"
)

func TestEncodeReferenceBytes(t *testing.T) {
	testlog.Start(t)
	got := Hex(Encode([]int32{1, -1, 0}, "hi"))
	want := "00000001ffffffff00000000000000026869"
	if got != want {
		t.Fatalf("unexpected packet: got=%s want=%s", got, want)
	}
}

func TestEncodeLengthCountsUTF8Bytes(t *testing.T) {
	testlog.Start(t)
	text := "héllo, 世界"
	p := Packet{Ints: []int32{7}, Text: text}
	raw := p.Bytes()
	if len(raw) != p.Len() {
		t.Fatalf("encoded size=%d want=%d", len(raw), p.Len())
	}
	if n := binary.BigEndian.Uint32(raw[4:8]); n != uint32(len(text)) {
		t.Fatalf("length field=%d want=%d", n, len(text))
	}
	if len(text) == len([]rune(text)) {
		t.Fatalf("test text should contain multi-byte runes")
	}
	if string(raw[8:]) != text {
		t.Fatalf("text bytes mismatch: %q", raw[8:])
	}
}

func TestEncodeNoIntsEmptyText(t *testing.T) {
	testlog.Start(t)
	if got := Hex(Encode(nil, "")); got != "00000000" {
		t.Fatalf("unexpected packet: %s", got)
	}
}

func TestEncodeIntBoundaries(t *testing.T) {
	testlog.Start(t)
	got := Hex(Encode([]int32{-2147483648, 2147483647}, ""))
	if got != "800000007fffffff00000000" {
		t.Fatalf("unexpected packet: %s", got)
	}
}

func TestParseInts(t *testing.T) {
	testlog.Start(t)
	got, err := ParseInts("  1 -1\t0  2147483647 ")
	if err != nil {
		t.Fatalf("parse ints: %v", err)
	}
	want := []int32{1, -1, 0, 2147483647}
	if len(got) != len(want) {
		t.Fatalf("unexpected ints: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("int[%d]=%d want=%d", i, got[i], want[i])
		}
	}

	empty, err := ParseInts("   ")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got=%v err=%v", empty, err)
	}
}

func TestParseIntsRejectsBadTokens(t *testing.T) {
	testlog.Start(t)
	for _, line := range []string{"1 two 3", "2147483648", "1.5", "0x10"} {
		if _, err := ParseInts(line); !errors.Is(err, ErrInvalidInt) {
			t.Fatalf("line %q: expected ErrInvalidInt, got %v", line, err)
		}
	}
}
