package zera

import "encoding/binary"

// valueRef is the decoded form of a 16-byte ValueRef16 record.
type valueRef struct {
	tag   byte
	flags byte
	aux   uint16
	a, b, c uint32
	raw   []byte // the 16 backing bytes, for inline-string access
}

func decodeValueRef(raw []byte) valueRef {
	return valueRef{
		tag:   raw[0],
		flags: raw[1],
		aux:   binary.LittleEndian.Uint16(raw[2:4]),
		a:     binary.LittleEndian.Uint32(raw[4:8]),
		b:     binary.LittleEndian.Uint32(raw[8:12]),
		c:     binary.LittleEndian.Uint32(raw[12:16]),
		raw:   raw,
	}
}

func encodeValueRef(tag, flags byte, aux uint16, a, b, c uint32) [16]byte {
	var buf [16]byte
	buf[0] = tag
	buf[1] = flags
	binary.LittleEndian.PutUint16(buf[2:4], aux)
	binary.LittleEndian.PutUint32(buf[4:8], a)
	binary.LittleEndian.PutUint32(buf[8:12], b)
	binary.LittleEndian.PutUint32(buf[12:16], c)
	return buf
}

// encodeInlineString builds a ValueRef16 whose payload bytes live directly
// in bytes 4..4+len(s), used when len(s) <= the writer's inline threshold.
func encodeInlineString(s string) [16]byte {
	var buf [16]byte
	buf[0] = tagString
	buf[1] = stringInlineFlag
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(s)))
	copy(buf[4:4+len(s)], s)
	return buf
}
