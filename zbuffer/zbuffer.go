// Package zbuffer holds the bytes produced by a writer's Finish call.
package zbuffer

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Buffer is a move-only owning byte region in spirit: callers should treat
// a Buffer as consumed once handed to a reader constructor or a translator.
// Go's GC means there is no pointer+deleter variant to track, unlike the
// originating C++ ZBuffer; Wrap exists for callers that already hold a
// stable slice they don't want copied.
type Buffer struct {
	bytes []byte
}

// New copies b into a freshly owned Buffer.
func New(b []byte) Buffer {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Buffer{bytes: cp}
}

// Wrap takes ownership of b without copying. b must not be mutated by the
// caller afterwards.
func Wrap(b []byte) Buffer {
	return Buffer{bytes: b}
}

func (b Buffer) Data() []byte { return b.bytes }
func (b Buffer) Size() int    { return len(b.bytes) }
func (b Buffer) Empty() bool  { return len(b.bytes) == 0 }

// Bytes returns the underlying slice without copying.
func (b Buffer) Bytes() []byte { return b.bytes }

// ToVectorCopy returns an independent copy of the buffer's bytes.
func (b Buffer) ToVectorCopy() []byte {
	cp := make([]byte, len(b.bytes))
	copy(cp, b.bytes)
	return cp
}

func (b Buffer) String() string { return string(b.bytes) }

// Hexdump renders the buffer as a classic hex+ASCII dump, 16 bytes per row.
func (b Buffer) Hexdump() string {
	var sb strings.Builder
	data := b.bytes
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		fmt.Fprintf(&sb, "%08x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(row) {
				fmt.Fprintf(&sb, "%02x ", row[i])
			} else {
				sb.WriteString("   ")
			}
			if i == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

// DebugString is a short one-line summary, distinct from the full Hexdump.
func (b Buffer) DebugString() string {
	return fmt.Sprintf("ZBuffer{%d bytes}", len(b.bytes))
}

// Compress and Decompress are ambient helpers for callers that want to
// shrink a finished Buffer before storing or transmitting it. They are not
// part of any codec's wire format: ZERA's header flags field reserves all
// bits beyond the little-endian marker, so a compression flag cannot be
// threaded through the format itself without breaking that invariant.
func Compress(b Buffer) (Buffer, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return Buffer{}, err
	}
	defer enc.Close()
	return Wrap(enc.EncodeAll(b.bytes, nil)), nil
}

func Decompress(b Buffer) (Buffer, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Buffer{}, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(b.bytes, nil)
	if err != nil {
		return Buffer{}, err
	}
	return Wrap(out), nil
}
