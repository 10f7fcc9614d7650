package msgpack

import (
	"fmt"
	"math"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zerr"
)

// Reader is a lazy, hand-written MessagePack decoder: child access walks
// the buffer with skipValue rather than materializing a tree up front.
type Reader struct {
	buf []byte
	off int
	n   node
}

func NewReader(b []byte) (zerialize.Reader, error) {
	return valueAt(b, 0)
}

func valueAt(buf []byte, off int) (*Reader, error) {
	n, err := decode(buf, off)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: buf, off: off, n: n}, nil
}

func (r *Reader) IsNull() bool   { return r.n.kind == kNil }
func (r *Reader) IsBool() bool   { return r.n.kind == kBool }
func (r *Reader) IsInt() bool    { return r.n.kind == kInt }
func (r *Reader) IsUint() bool   { return r.n.kind == kInt }
func (r *Reader) IsFloat() bool  { return r.n.kind == kFloat }
func (r *Reader) IsString() bool { return r.n.kind == kString }
func (r *Reader) IsBlob() bool   { return r.n.kind == kBin }
func (r *Reader) IsArray() bool  { return r.n.kind == kArray }
func (r *Reader) IsMap() bool    { return r.n.kind == kMap }

func (r *Reader) AsBool() (bool, error) {
	if r.n.kind != kBool {
		return false, zerr.Deserf("msgpack", "AsBool on non-bool value")
	}
	return r.n.boolV, nil
}

func (r *Reader) AsInt64() (int64, error) {
	if r.n.kind != kInt {
		return 0, zerr.Deserf("msgpack", "AsInt64 on non-integer value")
	}
	if r.n.unsignedTag && r.n.uval > math.MaxInt64 {
		return 0, zerr.Deserf("msgpack", "AsInt64: value %d overflows int64", r.n.uval)
	}
	return r.n.ival, nil
}

func (r *Reader) AsUint64() (uint64, error) {
	if r.n.kind != kInt {
		return 0, zerr.Deserf("msgpack", "AsUint64 on non-integer value")
	}
	if !r.n.unsignedTag && r.n.ival < 0 {
		return 0, zerr.Deserf("msgpack", "AsUint64: value %d is negative", r.n.ival)
	}
	return r.n.uval, nil
}

func narrowInt(v int64, lo, hi int64) error {
	if v < lo || v > hi {
		return zerr.Deserf("msgpack", "value %d out of range", v)
	}
	return nil
}

func (r *Reader) AsInt8() (int8, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowInt(v, math.MinInt8, math.MaxInt8); err != nil {
		return 0, err
	}
	return int8(v), nil
}

func (r *Reader) AsInt16() (int16, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowInt(v, math.MinInt16, math.MaxInt16); err != nil {
		return 0, err
	}
	return int16(v), nil
}

func (r *Reader) AsInt32() (int32, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowInt(v, math.MinInt32, math.MaxInt32); err != nil {
		return 0, err
	}
	return int32(v), nil
}

func (r *Reader) AsUint8() (uint8, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint8 {
		return 0, zerr.Deserf("msgpack", "value %d out of range", v)
	}
	return uint8(v), nil
}

func (r *Reader) AsUint16() (uint16, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, zerr.Deserf("msgpack", "value %d out of range", v)
	}
	return uint16(v), nil
}

func (r *Reader) AsUint32() (uint32, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, zerr.Deserf("msgpack", "value %d out of range", v)
	}
	return uint32(v), nil
}

func (r *Reader) AsFloat64() (float64, error) {
	if r.n.kind != kFloat {
		return 0, zerr.Deserf("msgpack", "AsFloat64 on non-float value")
	}
	return r.n.floatV, nil
}

func (r *Reader) AsFloat32() (float32, error) {
	v, err := r.AsFloat64()
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

func (r *Reader) AsString() (string, error) {
	if r.n.kind != kString {
		return "", zerr.Deserf("msgpack", "AsString on non-string value")
	}
	return string(r.buf[r.n.strStart : r.n.strStart+r.n.strLen]), nil
}

func (r *Reader) AsBlob() (zerialize.Blob, error) {
	if r.n.kind != kBin {
		return zerialize.Blob{}, zerr.Deserf("msgpack", "AsBlob on non-blob value")
	}
	return zerialize.Blob{Bytes: r.buf[r.n.binStart : r.n.binStart+r.n.binLen], Owning: false}, nil
}

func (r *Reader) ArraySize() (int, error) {
	if r.n.kind != kArray {
		return 0, zerr.Deserf("msgpack", "ArraySize on non-array value")
	}
	return r.n.count, nil
}

func (r *Reader) At(i int) (zerialize.Reader, error) {
	if r.n.kind != kArray {
		return nil, zerr.Deserf("msgpack", "At on non-array value")
	}
	if i < 0 || i >= r.n.count {
		return nil, zerr.Deserf("msgpack", "array index %d out of range [0,%d)", i, r.n.count)
	}
	pos := r.n.bodyStart
	for j := 0; j < i; j++ {
		next, err := skipValue(r.buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
	}
	return valueAt(r.buf, pos)
}

func (r *Reader) MapKeys() ([]string, error) {
	if r.n.kind != kMap {
		return nil, zerr.Deserf("msgpack", "MapKeys on non-map value")
	}
	keys := make([]string, 0, r.n.count)
	pos := r.n.bodyStart
	for i := 0; i < r.n.count; i++ {
		kn, err := decode(r.buf, pos)
		if err != nil {
			return nil, err
		}
		if kn.kind != kString {
			return nil, zerr.Deserf("msgpack", "map key %d is not a string", i)
		}
		keys = append(keys, string(r.buf[kn.strStart:kn.strStart+kn.strLen]))
		pos, err = skipValue(r.buf, pos) // key
		if err != nil {
			return nil, err
		}
		pos, err = skipValue(r.buf, pos) // value
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (r *Reader) Contains(key string) bool {
	_, err := r.Index(key)
	return err == nil
}

func (r *Reader) Index(key string) (zerialize.Reader, error) {
	if r.n.kind != kMap {
		return nil, zerr.Deserf("msgpack", "Index on non-map value")
	}
	pos := r.n.bodyStart
	for i := 0; i < r.n.count; i++ {
		kn, err := decode(r.buf, pos)
		if err != nil {
			return nil, err
		}
		valOff, err := skipValue(r.buf, pos)
		if err != nil {
			return nil, err
		}
		if kn.kind == kString && string(r.buf[kn.strStart:kn.strStart+kn.strLen]) == key {
			return valueAt(r.buf, valOff)
		}
		pos, err = skipValue(r.buf, valOff)
		if err != nil {
			return nil, err
		}
	}
	return nil, zerr.Deserf("msgpack", "missing map key %q", key)
}

func (r *Reader) String() string {
	switch r.n.kind {
	case kNil:
		return "null"
	case kBool:
		return fmt.Sprintf("%v", r.n.boolV)
	case kInt:
		return fmt.Sprintf("%d", r.n.ival)
	case kFloat:
		return fmt.Sprintf("%g", r.n.floatV)
	case kString:
		s, _ := r.AsString()
		return fmt.Sprintf("%q", s)
	case kBin:
		return fmt.Sprintf("bin(%d bytes)", r.n.binLen)
	case kArray:
		return "[array]"
	case kMap:
		return "{map}"
	default:
		return "<msgpack:unknown>"
	}
}
