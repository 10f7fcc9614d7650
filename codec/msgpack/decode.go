package msgpack

import (
	"encoding/binary"
	"math"

	"github.com/mrayva/zerialize/zerr"
)

type kind int

const (
	kNil kind = iota
	kBool
	kInt
	kFloat
	kString
	kBin
	kArray
	kMap
)

// node is the decoded header (and, for scalars, the value) of one
// MessagePack value starting at a given buffer offset.
type node struct {
	kind kind

	boolV bool

	// integer: both fields are populated; unsignedTag records whether the
	// source byte was an unsigned-only tag (uint8/16/32/64, positive
	// fixint), which matters only for range validation in As*.
	ival        int64
	uval        uint64
	unsignedTag bool

	floatV float64

	strStart, strLen int
	binStart, binLen int

	count     int // array length, or map pair count
	bodyStart int // offset of first element/pair

	end int // offset just past this value (valid for scalars only)
}

// decode reads the value header (and body, for scalars) at off.
func decode(buf []byte, off int) (node, error) {
	if off >= len(buf) {
		return node{}, zerr.Deserf("msgpack", "truncated input at offset %d", off)
	}
	b := buf[off]

	switch {
	case b <= 0x7f: // positive fixint
		return node{kind: kInt, ival: int64(b), uval: uint64(b), unsignedTag: true, end: off + 1}, nil
	case b >= 0xe0: // negative fixint
		v := int64(int8(b))
		return node{kind: kInt, ival: v, uval: uint64(v), end: off + 1}, nil
	case b >= 0xa0 && b <= 0xbf: // fixstr
		n := int(b & 0x1f)
		return strNode(buf, off+1, n, off+1+n)
	case b >= 0x90 && b <= 0x9f: // fixarray
		return node{kind: kArray, count: int(b & 0x0f), bodyStart: off + 1}, nil
	case b >= 0x80 && b <= 0x8f: // fixmap
		return node{kind: kMap, count: int(b & 0x0f), bodyStart: off + 1}, nil
	}

	switch b {
	case 0xc0:
		return node{kind: kNil, end: off + 1}, nil
	case 0xc2:
		return node{kind: kBool, boolV: false, end: off + 1}, nil
	case 0xc3:
		return node{kind: kBool, boolV: true, end: off + 1}, nil
	case 0xc4: // bin8
		n, err := need(buf, off+1, 1)
		if err != nil {
			return node{}, err
		}
		ln := int(buf[off+1])
		return binNode(buf, off+2, ln, off+2+ln, n)
	case 0xc5: // bin16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		ln := int(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		return binNode(buf, off+3, ln, off+3+ln, 0)
	case 0xc6: // bin32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		ln := int(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return binNode(buf, off+5, ln, off+5+ln, 0)
	case 0xca: // float32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		bits := binary.BigEndian.Uint32(buf[off+1 : off+5])
		return node{kind: kFloat, floatV: float64(math.Float32frombits(bits)), end: off + 5}, nil
	case 0xcb: // float64
		if err := needN(buf, off+1, 8); err != nil {
			return node{}, err
		}
		bits := binary.BigEndian.Uint64(buf[off+1 : off+9])
		return node{kind: kFloat, floatV: math.Float64frombits(bits), end: off + 9}, nil
	case 0xcc: // uint8
		if err := needN(buf, off+1, 1); err != nil {
			return node{}, err
		}
		v := uint64(buf[off+1])
		return node{kind: kInt, uval: v, ival: int64(v), unsignedTag: true, end: off + 2}, nil
	case 0xcd: // uint16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		v := uint64(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		return node{kind: kInt, uval: v, ival: int64(v), unsignedTag: true, end: off + 3}, nil
	case 0xce: // uint32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		v := uint64(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return node{kind: kInt, uval: v, ival: int64(v), unsignedTag: true, end: off + 5}, nil
	case 0xcf: // uint64
		if err := needN(buf, off+1, 8); err != nil {
			return node{}, err
		}
		v := binary.BigEndian.Uint64(buf[off+1 : off+9])
		return node{kind: kInt, uval: v, ival: int64(v), unsignedTag: true, end: off + 9}, nil
	case 0xd0: // int8
		if err := needN(buf, off+1, 1); err != nil {
			return node{}, err
		}
		v := int64(int8(buf[off+1]))
		return node{kind: kInt, ival: v, uval: uint64(v), end: off + 2}, nil
	case 0xd1: // int16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		v := int64(int16(binary.BigEndian.Uint16(buf[off+1 : off+3])))
		return node{kind: kInt, ival: v, uval: uint64(v), end: off + 3}, nil
	case 0xd2: // int32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		v := int64(int32(binary.BigEndian.Uint32(buf[off+1 : off+5])))
		return node{kind: kInt, ival: v, uval: uint64(v), end: off + 5}, nil
	case 0xd3: // int64
		if err := needN(buf, off+1, 8); err != nil {
			return node{}, err
		}
		v := int64(binary.BigEndian.Uint64(buf[off+1 : off+9]))
		return node{kind: kInt, ival: v, uval: uint64(v), end: off + 9}, nil
	case 0xd9: // str8
		if err := needN(buf, off+1, 1); err != nil {
			return node{}, err
		}
		n := int(buf[off+1])
		return strNode(buf, off+2, n, off+2+n)
	case 0xda: // str16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		return strNode(buf, off+3, n, off+3+n)
	case 0xdb: // str32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return strNode(buf, off+5, n, off+5+n)
	case 0xdc: // array16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		return node{kind: kArray, count: n, bodyStart: off + 3}, nil
	case 0xdd: // array32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return node{kind: kArray, count: n, bodyStart: off + 5}, nil
	case 0xde: // map16
		if err := needN(buf, off+1, 2); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		return node{kind: kMap, count: n, bodyStart: off + 3}, nil
	case 0xdf: // map32
		if err := needN(buf, off+1, 4); err != nil {
			return node{}, err
		}
		n := int(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return node{kind: kMap, count: n, bodyStart: off + 5}, nil
	}

	return node{}, zerr.Deserf("msgpack", "unsupported or reserved byte %#x at offset %d", b, off)
}

func need(buf []byte, off, n int) (int, error) {
	if off+n > len(buf) {
		return 0, zerr.Deserf("msgpack", "truncated input at offset %d", off)
	}
	return n, nil
}

func needN(buf []byte, off, n int) error {
	_, err := need(buf, off, n)
	return err
}

func strNode(buf []byte, start, n, end int) (node, error) {
	if end > len(buf) {
		return node{}, zerr.Deserf("msgpack", "truncated string at offset %d", start)
	}
	return node{kind: kString, strStart: start, strLen: n, end: end}, nil
}

func binNode(buf []byte, start, n, end, _ int) (node, error) {
	if end > len(buf) {
		return node{}, zerr.Deserf("msgpack", "truncated bin at offset %d", start)
	}
	return node{kind: kBin, binStart: start, binLen: n, end: end}, nil
}

// skipValue decodes the value at off and returns the offset just past it,
// recursing into arrays and maps.
func skipValue(buf []byte, off int) (int, error) {
	n, err := decode(buf, off)
	if err != nil {
		return 0, err
	}
	switch n.kind {
	case kArray:
		pos := n.bodyStart
		for i := 0; i < n.count; i++ {
			pos, err = skipValue(buf, pos)
			if err != nil {
				return 0, err
			}
		}
		return pos, nil
	case kMap:
		pos := n.bodyStart
		for i := 0; i < n.count; i++ {
			pos, err = skipValue(buf, pos) // key
			if err != nil {
				return 0, err
			}
			pos, err = skipValue(buf, pos) // value
			if err != nil {
				return 0, err
			}
		}
		return pos, nil
	default:
		return n.end, nil
	}
}
