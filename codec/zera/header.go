package zera

import (
	"encoding/binary"

	"github.com/mrayva/zerialize/zerr"
)

// Wire constants, bit-exact with the format this codec implements.
const (
	Magic          uint32 = 0x564E455A
	Version        uint16 = 1
	HeaderSize            = 20
	ArenaBaseAlign        = 16
	InlineMax             = 12
	RankMax               = 8

	flagLittleEndian uint16 = 1 << 0
)

// Tag values for a ValueRef16's first byte.
const (
	tagNull byte = iota
	tagBool
	tagI64
	tagF64
	tagString
	tagArray
	tagObject
	tagTypedArray
	tagU64
)

const stringInlineFlag byte = 1 << 0

// header is the 20-byte fixed header, little-endian on both read and write.
// The teacher's own pkg/dbflat/parser.go writes this field with
// binary.LittleEndian but reads it back with binary.BigEndian, a latent bug
// not reproduced here: ZERA's round-trip invariant requires a strictly
// consistent byte order.
type header struct {
	magic        uint32
	version      uint16
	flags        uint16
	rootOffset   uint32
	envelopeSize uint32
	arenaOffset  uint32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.version)
	binary.LittleEndian.PutUint16(buf[6:8], h.flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.rootOffset)
	binary.LittleEndian.PutUint32(buf[12:16], h.envelopeSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.arenaOffset)
	return buf
}

func parseHeader(b []byte) (header, error) {
	if len(b) < HeaderSize {
		return header{}, zerr.Deserf("zera", "buffer too short for header: %d bytes", len(b))
	}
	h := header{
		magic:        binary.LittleEndian.Uint32(b[0:4]),
		version:      binary.LittleEndian.Uint16(b[4:6]),
		flags:        binary.LittleEndian.Uint16(b[6:8]),
		rootOffset:   binary.LittleEndian.Uint32(b[8:12]),
		envelopeSize: binary.LittleEndian.Uint32(b[12:16]),
		arenaOffset:  binary.LittleEndian.Uint32(b[16:20]),
	}
	if h.magic != Magic {
		return header{}, zerr.Deserf("zera", "bad magic: got %#x want %#x", h.magic, Magic)
	}
	if h.version != Version {
		return header{}, zerr.Deserf("zera", "unsupported version: %d", h.version)
	}
	if h.flags&flagLittleEndian == 0 {
		return header{}, zerr.Deserf("zera", "flags missing little-endian marker")
	}
	return h, nil
}

func alignUp(n, align uint32) uint32 {
	if align == 0 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}
