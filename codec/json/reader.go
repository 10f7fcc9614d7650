package json

import (
	"fmt"
	"math"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zerr"
)

// Reader walks a JSON document parsed up front by decode. Blobs are
// recognized by the ["~b","<base64>","base64"] envelope and never appear
// as ordinary arrays to callers.
type Reader struct {
	v value
}

func NewReader(b []byte) (zerialize.Reader, error) {
	v, err := decode(b)
	if err != nil {
		return nil, err
	}
	return &Reader{v: v}, nil
}

func (r *Reader) IsNull() bool   { return r.v.kind == kNil }
func (r *Reader) IsBool() bool   { return r.v.kind == kBool }
func (r *Reader) IsInt() bool    { return r.v.kind == kInt }
func (r *Reader) IsUint() bool   { return r.v.kind == kInt }
func (r *Reader) IsFloat() bool  { return r.v.kind == kFloat }
func (r *Reader) IsString() bool { return r.v.kind == kString }
func (r *Reader) IsBlob() bool   { return r.v.kind == kBlob }
func (r *Reader) IsArray() bool  { return r.v.kind == kArray }
func (r *Reader) IsMap() bool    { return r.v.kind == kMap }

func (r *Reader) AsBool() (bool, error) {
	if r.v.kind != kBool {
		return false, zerr.Deserf("json", "AsBool on non-bool value")
	}
	return r.v.boolV, nil
}

func (r *Reader) AsInt64() (int64, error) {
	if r.v.kind != kInt {
		return 0, zerr.Deserf("json", "AsInt64 on non-integer value")
	}
	if r.v.unsignedOnly {
		return 0, zerr.Deserf("json", "AsInt64: value %d overflows int64", r.v.uval)
	}
	return r.v.ival, nil
}

func (r *Reader) AsUint64() (uint64, error) {
	if r.v.kind != kInt {
		return 0, zerr.Deserf("json", "AsUint64 on non-integer value")
	}
	if r.v.unsignedOnly {
		return r.v.uval, nil
	}
	if r.v.ival < 0 {
		return 0, zerr.Deserf("json", "AsUint64: value %d is negative", r.v.ival)
	}
	return uint64(r.v.ival), nil
}

func narrowInt(v int64, lo, hi int64) error {
	if v < lo || v > hi {
		return zerr.Deserf("json", "value %d out of range", v)
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
		return 0, zerr.Deserf("json", "value %d out of range", v)
	}
	return uint8(v), nil
}

func (r *Reader) AsUint16() (uint16, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, zerr.Deserf("json", "value %d out of range", v)
	}
	return uint16(v), nil
}

func (r *Reader) AsUint32() (uint32, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, zerr.Deserf("json", "value %d out of range", v)
	}
	return uint32(v), nil
}

func (r *Reader) AsFloat64() (float64, error) {
	switch r.v.kind {
	case kFloat:
		return r.v.floatV, nil
	case kInt:
		if r.v.unsignedOnly {
			return float64(r.v.uval), nil
		}
		return float64(r.v.ival), nil
	default:
		return 0, zerr.Deserf("json", "AsFloat64 on non-numeric value")
	}
}

func (r *Reader) AsFloat32() (float32, error) {
	v, err := r.AsFloat64()
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

func (r *Reader) AsString() (string, error) {
	if r.v.kind != kString {
		return "", zerr.Deserf("json", "AsString on non-string value")
	}
	return r.v.str, nil
}

func (r *Reader) AsBlob() (zerialize.Blob, error) {
	if r.v.kind != kBlob {
		return zerialize.Blob{}, zerr.Deserf("json", "AsBlob on non-blob value")
	}
	return zerialize.Blob{Bytes: r.v.blob, Owning: true}, nil
}

func (r *Reader) ArraySize() (int, error) {
	if r.v.kind != kArray {
		return 0, zerr.Deserf("json", "ArraySize on non-array value")
	}
	return len(r.v.arr), nil
}

func (r *Reader) At(i int) (zerialize.Reader, error) {
	if r.v.kind != kArray {
		return nil, zerr.Deserf("json", "At on non-array value")
	}
	if i < 0 || i >= len(r.v.arr) {
		return nil, zerr.Deserf("json", "array index %d out of range [0,%d)", i, len(r.v.arr))
	}
	return &Reader{v: r.v.arr[i]}, nil
}

func (r *Reader) MapKeys() ([]string, error) {
	if r.v.kind != kMap {
		return nil, zerr.Deserf("json", "MapKeys on non-map value")
	}
	keys := make([]string, len(r.v.keys))
	copy(keys, r.v.keys)
	return keys, nil
}

func (r *Reader) Contains(key string) bool {
	_, err := r.Index(key)
	return err == nil
}

func (r *Reader) Index(key string) (zerialize.Reader, error) {
	if r.v.kind != kMap {
		return nil, zerr.Deserf("json", "Index on non-map value")
	}
	for i, k := range r.v.keys {
		if k == key {
			return &Reader{v: r.v.vals[i]}, nil
		}
	}
	return nil, zerr.Deserf("json", "missing map key %q", key)
}

func (r *Reader) String() string {
	switch r.v.kind {
	case kNil:
		return "null"
	case kBool:
		return fmt.Sprintf("%v", r.v.boolV)
	case kInt:
		if r.v.unsignedOnly {
			return fmt.Sprintf("%d", r.v.uval)
		}
		return fmt.Sprintf("%d", r.v.ival)
	case kFloat:
		return fmt.Sprintf("%g", r.v.floatV)
	case kString:
		return fmt.Sprintf("%q", r.v.str)
	case kBlob:
		return fmt.Sprintf("bin(%d bytes)", len(r.v.blob))
	case kArray:
		return "[array]"
	case kMap:
		return "{map}"
	default:
		return "<json:unknown>"
	}
}
