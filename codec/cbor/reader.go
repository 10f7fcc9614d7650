package cbor

import (
	"fmt"
	"math"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zerr"
)

type Reader struct {
	buf []byte
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
	return &Reader{buf: buf, n: n}, nil
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
		return false, zerr.Deserf("cbor", "AsBool on non-bool value")
	}
	return r.n.boolV, nil
}

func (r *Reader) AsInt64() (int64, error) {
	if r.n.kind != kInt {
		return 0, zerr.Deserf("cbor", "AsInt64 on non-integer value")
	}
	if r.n.negMajor1 {
		if r.n.negVal > uint64(math.MaxInt64) {
			return 0, zerr.Deserf("cbor", "AsInt64: value -1-%d overflows int64", r.n.negVal)
		}
		return -1 - int64(r.n.negVal), nil
	}
	if r.n.uval > math.MaxInt64 {
		return 0, zerr.Deserf("cbor", "AsInt64: value %d overflows int64", r.n.uval)
	}
	return r.n.ival, nil
}

func (r *Reader) AsUint64() (uint64, error) {
	if r.n.kind != kInt {
		return 0, zerr.Deserf("cbor", "AsUint64 on non-integer value")
	}
	if r.n.negMajor1 {
		return 0, zerr.Deserf("cbor", "AsUint64: value is negative")
	}
	return r.n.uval, nil
}

func narrowInt(v int64, lo, hi int64) error {
	if v < lo || v > hi {
		return zerr.Deserf("cbor", "value %d out of range", v)
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
		return 0, zerr.Deserf("cbor", "value %d out of range", v)
	}
	return uint8(v), nil
}

func (r *Reader) AsUint16() (uint16, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, zerr.Deserf("cbor", "value %d out of range", v)
	}
	return uint16(v), nil
}

func (r *Reader) AsUint32() (uint32, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, zerr.Deserf("cbor", "value %d out of range", v)
	}
	return uint32(v), nil
}

func (r *Reader) AsFloat64() (float64, error) {
	if r.n.kind != kFloat {
		return 0, zerr.Deserf("cbor", "AsFloat64 on non-float value")
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
		return "", zerr.Deserf("cbor", "AsString on non-string value")
	}
	return string(r.n.stringBytes(r.buf)), nil
}

func (r *Reader) AsBlob() (zerialize.Blob, error) {
	if r.n.kind != kBin {
		return zerialize.Blob{}, zerr.Deserf("cbor", "AsBlob on non-blob value")
	}
	if r.n.binOwned != nil {
		return zerialize.Blob{Bytes: r.n.binOwned, Owning: true}, nil
	}
	return zerialize.Blob{Bytes: r.n.binBytes(r.buf), Owning: false}, nil
}

func (r *Reader) ArraySize() (int, error) {
	if r.n.kind != kArray {
		return 0, zerr.Deserf("cbor", "ArraySize on non-array value")
	}
	if !r.n.indefinite {
		return r.n.count, nil
	}
	count := 0
	pos := r.n.bodyStart
	for !isBreak(r.buf, pos) {
		next, err := skipValue(r.buf, pos)
		if err != nil {
			return 0, err
		}
		pos = next
		count++
	}
	return count, nil
}

func (r *Reader) At(i int) (zerialize.Reader, error) {
	if r.n.kind != kArray {
		return nil, zerr.Deserf("cbor", "At on non-array value")
	}
	if i < 0 {
		return nil, zerr.Deserf("cbor", "array index %d out of range", i)
	}
	pos := r.n.bodyStart
	for j := 0; j < i; j++ {
		if isBreak(r.buf, pos) {
			return nil, zerr.Deserf("cbor", "array index %d out of range", i)
		}
		next, err := skipValue(r.buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
	}
	if isBreak(r.buf, pos) {
		return nil, zerr.Deserf("cbor", "array index %d out of range", i)
	}
	return valueAt(r.buf, pos)
}

func (r *Reader) MapKeys() ([]string, error) {
	if r.n.kind != kMap {
		return nil, zerr.Deserf("cbor", "MapKeys on non-map value")
	}
	var keys []string
	pos := r.n.bodyStart
	stop := func() bool {
		if r.n.indefinite {
			return isBreak(r.buf, pos)
		}
		return len(keys) >= r.n.count
	}
	for !stop() {
		kn, err := decode(r.buf, pos)
		if err != nil {
			return nil, err
		}
		if kn.kind != kString {
			return nil, zerr.Deserf("cbor", "map key is not a string")
		}
		keys = append(keys, string(kn.stringBytes(r.buf)))
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
		return nil, zerr.Deserf("cbor", "Index on non-map value")
	}
	pos := r.n.bodyStart
	i := 0
	for {
		if r.n.indefinite {
			if isBreak(r.buf, pos) {
				break
			}
		} else if i >= r.n.count {
			break
		}
		kn, err := decode(r.buf, pos)
		if err != nil {
			return nil, err
		}
		valOff, err := skipValue(r.buf, pos)
		if err != nil {
			return nil, err
		}
		if kn.kind == kString && string(kn.stringBytes(r.buf)) == key {
			return valueAt(r.buf, valOff)
		}
		next, err := skipValue(r.buf, valOff)
		if err != nil {
			return nil, err
		}
		pos = next
		i++
	}
	return nil, zerr.Deserf("cbor", "missing map key %q", key)
}

func (r *Reader) String() string {
	switch r.n.kind {
	case kNil:
		return "null"
	case kBool:
		return fmt.Sprintf("%v", r.n.boolV)
	case kInt:
		if r.n.negMajor1 {
			return fmt.Sprintf("-1-%d", r.n.negVal)
		}
		return fmt.Sprintf("%d", r.n.uval)
	case kFloat:
		return fmt.Sprintf("%g", r.n.floatV)
	case kString:
		s, _ := r.AsString()
		return fmt.Sprintf("%q", s)
	case kBin:
		return fmt.Sprintf("bin(%d bytes)", len(r.n.binBytes(r.buf)))
	case kArray:
		return "[array]"
	case kMap:
		return "{map}"
	default:
		return "<cbor:unknown>"
	}
}
