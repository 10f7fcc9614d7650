package cbor

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

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

// node is the decoded header of one CBOR value. For definite-length
// strings/byte-strings the bytes are referenced in place; for indefinite
// ones they are concatenated into an owned allocation, since CBOR splits
// them across multiple chunks that aren't contiguous in the wire bytes.
type node struct {
	kind kind

	boolV bool

	ival        int64
	uval        uint64
	unsignedTag bool
	negMajor1   bool
	negVal      uint64

	floatV float64

	strStart, strLen int
	strOwned         []byte

	binStart, binLen int
	binOwned         []byte

	count      int // -1 if indefinite
	indefinite bool
	bodyStart  int

	end int // valid for all scalar kinds and for string/bin (both forms)
}

func (n node) stringBytes(buf []byte) []byte {
	if n.strOwned != nil {
		return n.strOwned
	}
	return buf[n.strStart : n.strStart+n.strLen]
}

func (n node) binBytes(buf []byte) []byte {
	if n.binOwned != nil {
		return n.binOwned
	}
	return buf[n.binStart : n.binStart+n.binLen]
}

func isBreak(buf []byte, off int) bool {
	return off < len(buf) && buf[off] == 0xff
}

func readArgument(buf []byte, off int, info byte) (val uint64, next int, indefinite bool, err error) {
	pos := off + 1
	switch {
	case info < 24:
		return uint64(info), pos, false, nil
	case info == 24:
		if pos+1 > len(buf) {
			return 0, 0, false, zerr.Deserf("cbor", "truncated 1-byte argument at %d", off)
		}
		return uint64(buf[pos]), pos + 1, false, nil
	case info == 25:
		if pos+2 > len(buf) {
			return 0, 0, false, zerr.Deserf("cbor", "truncated 2-byte argument at %d", off)
		}
		return uint64(binary.BigEndian.Uint16(buf[pos : pos+2])), pos + 2, false, nil
	case info == 26:
		if pos+4 > len(buf) {
			return 0, 0, false, zerr.Deserf("cbor", "truncated 4-byte argument at %d", off)
		}
		return uint64(binary.BigEndian.Uint32(buf[pos : pos+4])), pos + 4, false, nil
	case info == 27:
		if pos+8 > len(buf) {
			return 0, 0, false, zerr.Deserf("cbor", "truncated 8-byte argument at %d", off)
		}
		return binary.BigEndian.Uint64(buf[pos : pos+8]), pos + 8, false, nil
	case info == 31:
		return 0, pos, true, nil
	default:
		return 0, 0, false, zerr.Deserf("cbor", "reserved additional info %d at %d", info, off)
	}
}

func decode(buf []byte, off int) (node, error) {
	if off >= len(buf) {
		return node{}, zerr.Deserf("cbor", "truncated input at offset %d", off)
	}
	major := buf[off] >> 5
	info := buf[off] & 0x1f

	switch major {
	case 0:
		val, next, indef, err := readArgument(buf, off, info)
		if err != nil {
			return node{}, err
		}
		if indef {
			return node{}, zerr.Deserf("cbor", "indefinite-length unsigned int at %d", off)
		}
		return node{kind: kInt, uval: val, ival: int64(val), unsignedTag: true, end: next}, nil
	case 1:
		val, next, indef, err := readArgument(buf, off, info)
		if err != nil {
			return node{}, err
		}
		if indef {
			return node{}, zerr.Deserf("cbor", "indefinite-length negative int at %d", off)
		}
		return node{kind: kInt, negMajor1: true, negVal: val, end: next}, nil
	case 2:
		return decodeChunked(buf, off, info, kBin)
	case 3:
		return decodeChunked(buf, off, info, kString)
	case 4:
		val, next, indef, err := readArgument(buf, off, info)
		if err != nil {
			return node{}, err
		}
		n := node{kind: kArray, bodyStart: next, indefinite: indef}
		if !indef {
			n.count = int(val)
		} else {
			n.count = -1
		}
		return n, nil
	case 5:
		val, next, indef, err := readArgument(buf, off, info)
		if err != nil {
			return node{}, err
		}
		n := node{kind: kMap, bodyStart: next, indefinite: indef}
		if !indef {
			n.count = int(val)
		} else {
			n.count = -1
		}
		return n, nil
	case 6:
		_, next, indef, err := readArgument(buf, off, info)
		if err != nil {
			return node{}, err
		}
		if indef {
			return node{}, zerr.Deserf("cbor", "indefinite-length tag at %d", off)
		}
		return decode(buf, next) // tags are transparent to the logical domain
	case 7:
		return decodeSimple(buf, off, info)
	}
	return node{}, zerr.Deserf("cbor", "unreachable major type %d", major)
}

func decodeSimple(buf []byte, off int, info byte) (node, error) {
	switch info {
	case 20:
		return node{kind: kBool, boolV: false, end: off + 1}, nil
	case 21:
		return node{kind: kBool, boolV: true, end: off + 1}, nil
	case 22, 23:
		return node{kind: kNil, end: off + 1}, nil
	case 25:
		if off+3 > len(buf) {
			return node{}, zerr.Deserf("cbor", "truncated half float at %d", off)
		}
		bits := binary.BigEndian.Uint16(buf[off+1 : off+3])
		return node{kind: kFloat, floatV: float64(float16.Frombits(bits).Float32()), end: off + 3}, nil
	case 26:
		if off+5 > len(buf) {
			return node{}, zerr.Deserf("cbor", "truncated float32 at %d", off)
		}
		bits := binary.BigEndian.Uint32(buf[off+1 : off+5])
		return node{kind: kFloat, floatV: float64(math.Float32frombits(bits)), end: off + 5}, nil
	case 27:
		if off+9 > len(buf) {
			return node{}, zerr.Deserf("cbor", "truncated float64 at %d", off)
		}
		bits := binary.BigEndian.Uint64(buf[off+1 : off+9])
		return node{kind: kFloat, floatV: math.Float64frombits(bits), end: off + 9}, nil
	case 31:
		return node{}, zerr.Deserf("cbor", "unexpected break code at %d", off)
	default:
		return node{}, zerr.Deserf("cbor", "unsupported simple value %d at %d", info, off)
	}
}

// decodeChunked decodes a definite-length or indefinite-length byte/text
// string, concatenating indefinite chunks into a freshly owned allocation.
func decodeChunked(buf []byte, off int, info byte, k kind) (node, error) {
	val, next, indef, err := readArgument(buf, off, info)
	if err != nil {
		return node{}, err
	}
	if !indef {
		end := next + int(val)
		if end > len(buf) {
			return node{}, zerr.Deserf("cbor", "truncated string/bytes at %d", off)
		}
		if k == kString {
			return node{kind: kString, strStart: next, strLen: int(val), end: end}, nil
		}
		return node{kind: kBin, binStart: next, binLen: int(val), end: end}, nil
	}

	var owned []byte
	pos := next
	for !isBreak(buf, pos) {
		chunk, err := decode(buf, pos)
		if err != nil {
			return node{}, err
		}
		if chunk.kind != k {
			return node{}, zerr.Deserf("cbor", "indefinite string chunk type mismatch at %d", pos)
		}
		if k == kString {
			owned = append(owned, chunk.stringBytes(buf)...)
		} else {
			owned = append(owned, chunk.binBytes(buf)...)
		}
		pos = chunk.end
	}
	pos++ // consume break
	if k == kString {
		return node{kind: kString, strOwned: owned, end: pos}, nil
	}
	return node{kind: kBin, binOwned: owned, end: pos}, nil
}

// skipValue decodes the value at off and returns the offset just past it,
// recursing into (possibly indefinite-length) arrays and maps.
func skipValue(buf []byte, off int) (int, error) {
	n, err := decode(buf, off)
	if err != nil {
		return 0, err
	}
	switch n.kind {
	case kArray:
		pos := n.bodyStart
		if n.indefinite {
			for !isBreak(buf, pos) {
				if pos, err = skipValue(buf, pos); err != nil {
					return 0, err
				}
			}
			return pos + 1, nil
		}
		for i := 0; i < n.count; i++ {
			if pos, err = skipValue(buf, pos); err != nil {
				return 0, err
			}
		}
		return pos, nil
	case kMap:
		pos := n.bodyStart
		if n.indefinite {
			for !isBreak(buf, pos) {
				if pos, err = skipValue(buf, pos); err != nil { // key
					return 0, err
				}
				if pos, err = skipValue(buf, pos); err != nil { // value
					return 0, err
				}
			}
			return pos + 1, nil
		}
		for i := 0; i < n.count; i++ {
			if pos, err = skipValue(buf, pos); err != nil {
				return 0, err
			}
			if pos, err = skipValue(buf, pos); err != nil {
				return 0, err
			}
		}
		return pos, nil
	default:
		return n.end, nil
	}
}
