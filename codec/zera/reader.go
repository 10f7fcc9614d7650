package zera

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/tensor"
	"github.com/mrayva/zerialize/zerr"
)

type doc struct {
	h        header
	envelope []byte
	arena    []byte
}

// Reader is a lazily-parseable view into a ZERA buffer: child access is
// O(1) for arrays and a linear scan for map entries, and nothing beyond
// the header is validated until it is actually accessed.
type Reader struct {
	doc *doc
	ref valueRef
}

// NewReader parses the 20-byte header and returns a Reader positioned at
// the root value. The envelope and arena bounds are checked up front;
// individual value contents are validated lazily on access.
func NewReader(b []byte) (zerialize.Reader, error) {
	h, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	envEnd := uint64(HeaderSize) + uint64(h.envelopeSize)
	if envEnd > uint64(len(b)) {
		return nil, zerr.Deserf("zera", "envelope extends past buffer end")
	}
	if uint64(h.arenaOffset) > uint64(len(b)) {
		return nil, zerr.Deserf("zera", "arena offset past buffer end")
	}
	if h.arenaOffset < uint32(envEnd) {
		return nil, zerr.Deserf("zera", "arena offset overlaps envelope")
	}
	if h.arenaOffset%ArenaBaseAlign != 0 {
		return nil, zerr.Deserf("zera", "arena offset %d is not 16-aligned", h.arenaOffset)
	}
	d := &doc{
		h:        h,
		envelope: b[HeaderSize:envEnd],
		arena:    b[h.arenaOffset:],
	}
	return valueAt(d, h.rootOffset)
}

func valueAt(d *doc, envOffset uint32) (*Reader, error) {
	if uint64(envOffset)+16 > uint64(len(d.envelope)) {
		return nil, zerr.Deserf("zera", "value ref at %d out of envelope bounds", envOffset)
	}
	return &Reader{doc: d, ref: decodeValueRef(d.envelope[envOffset : envOffset+16])}, nil
}

func (r *Reader) IsNull() bool   { return r.ref.tag == tagNull }
func (r *Reader) IsBool() bool   { return r.ref.tag == tagBool }
func (r *Reader) IsInt() bool    { return r.ref.tag == tagI64 }
func (r *Reader) IsUint() bool   { return r.ref.tag == tagU64 }
func (r *Reader) IsFloat() bool  { return r.ref.tag == tagF64 }
func (r *Reader) IsString() bool { return r.ref.tag == tagString }
func (r *Reader) IsArray() bool  { return r.ref.tag == tagArray }
func (r *Reader) IsMap() bool    { return r.ref.tag == tagObject }
func (r *Reader) IsBlob() bool {
	return r.ref.tag == tagTypedArray && r.ref.aux == uint16(tensor.DTypeUint8)
}

func (r *Reader) AsBool() (bool, error) {
	if r.ref.tag != tagBool {
		return false, zerr.Deserf("zera", "AsBool on non-bool value")
	}
	return r.ref.aux != 0, nil
}

func (r *Reader) i64() (int64, error) {
	switch r.ref.tag {
	case tagI64:
		return int64(uint64(r.ref.a) | uint64(r.ref.b)<<32), nil
	case tagU64:
		u := uint64(r.ref.a) | uint64(r.ref.b)<<32
		if u > math.MaxInt64 {
			return 0, zerr.Deserf("zera", "AsInt64: value %d overflows int64", u)
		}
		return int64(u), nil
	default:
		return 0, zerr.Deserf("zera", "AsInt64 on non-integer value")
	}
}

func (r *Reader) u64() (uint64, error) {
	switch r.ref.tag {
	case tagU64:
		return uint64(r.ref.a) | uint64(r.ref.b)<<32, nil
	case tagI64:
		v := int64(uint64(r.ref.a) | uint64(r.ref.b)<<32)
		if v < 0 {
			return 0, zerr.Deserf("zera", "AsUint64: value %d is negative", v)
		}
		return uint64(v), nil
	default:
		return 0, zerr.Deserf("zera", "AsUint64 on non-integer value")
	}
}

func (r *Reader) AsInt64() (int64, error) { return r.i64() }

func narrowInt[T ~int8 | ~int16 | ~int32](r *Reader, lo, hi int64) (T, error) {
	v, err := r.i64()
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, zerr.Deserf("zera", "value %d out of range", v)
	}
	return T(v), nil
}

func narrowUint[T ~uint8 | ~uint16 | ~uint32](r *Reader, hi uint64) (T, error) {
	v, err := r.u64()
	if err != nil {
		return 0, err
	}
	if v > hi {
		return 0, zerr.Deserf("zera", "value %d out of range", v)
	}
	return T(v), nil
}

func (r *Reader) AsInt8() (int8, error)   { return narrowInt[int8](r, math.MinInt8, math.MaxInt8) }
func (r *Reader) AsInt16() (int16, error) { return narrowInt[int16](r, math.MinInt16, math.MaxInt16) }
func (r *Reader) AsInt32() (int32, error) { return narrowInt[int32](r, math.MinInt32, math.MaxInt32) }
func (r *Reader) AsUint8() (uint8, error)  { return narrowUint[uint8](r, math.MaxUint8) }
func (r *Reader) AsUint16() (uint16, error) { return narrowUint[uint16](r, math.MaxUint16) }
func (r *Reader) AsUint32() (uint32, error) { return narrowUint[uint32](r, math.MaxUint32) }
func (r *Reader) AsUint64() (uint64, error) { return r.u64() }

func (r *Reader) AsFloat64() (float64, error) {
	if r.ref.tag != tagF64 {
		return 0, zerr.Deserf("zera", "AsFloat64 on non-float value")
	}
	bits := uint64(r.ref.a) | uint64(r.ref.b)<<32
	return math.Float64frombits(bits), nil
}

func (r *Reader) AsFloat32() (float32, error) {
	v, err := r.AsFloat64()
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

func (r *Reader) AsString() (string, error) {
	if r.ref.tag != tagString {
		return "", zerr.Deserf("zera", "AsString on non-string value")
	}
	if r.ref.flags&stringInlineFlag != 0 {
		n := r.ref.aux
		return string(r.ref.raw[4 : 4+n]), nil
	}
	a, b := r.ref.a, r.ref.b
	if uint64(a)+uint64(b) > uint64(len(r.doc.arena)) {
		return "", zerr.Deserf("zera", "string payload out of arena bounds")
	}
	return string(r.doc.arena[a : a+b]), nil
}

func (r *Reader) AsBlob() (zerialize.Blob, error) {
	if !r.IsBlob() {
		return zerialize.Blob{}, zerr.Deserf("zera", "AsBlob on non-blob value")
	}
	a, b := r.ref.a, r.ref.b
	if uint64(a)+uint64(b) > uint64(len(r.doc.arena)) {
		return zerialize.Blob{}, zerr.Deserf("zera", "blob payload out of arena bounds")
	}
	return zerialize.Blob{Bytes: r.doc.arena[a : a+b], Owning: false}, nil
}

func (r *Reader) arrayPayload() ([]byte, uint32, error) {
	if r.ref.tag != tagArray {
		return nil, 0, zerr.Deserf("zera", "value is not an array")
	}
	off := r.ref.a
	if uint64(off)+4 > uint64(len(r.doc.envelope)) {
		return nil, 0, zerr.Deserf("zera", "array payload out of envelope bounds")
	}
	count := binary.LittleEndian.Uint32(r.doc.envelope[off : off+4])
	return r.doc.envelope, off, boundsCheck(count, func(n uint32) bool {
		return uint64(off)+4+16*uint64(n) <= uint64(len(r.doc.envelope))
	})
}

func boundsCheck(count uint32, ok func(uint32) bool) error {
	if !ok(count) {
		return zerr.Deserf("zera", "array payload truncated for %d elements", count)
	}
	return nil
}

func (r *Reader) ArraySize() (int, error) {
	_, off, err := r.arrayPayload()
	if err != nil {
		return 0, err
	}
	count := binary.LittleEndian.Uint32(r.doc.envelope[off : off+4])
	return int(count), nil
}

func (r *Reader) At(i int) (zerialize.Reader, error) {
	n, err := r.ArraySize()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, zerr.Deserf("zera", "array index %d out of range [0,%d)", i, n)
	}
	_, off, _ := r.arrayPayload()
	elemOff := off + 4 + 16*uint32(i)
	return valueAt(r.doc, elemOff)
}

// objectEntry is one decoded {key, valueOffset} pair of an Object payload.
type objectEntry struct {
	key       string
	valueOff  uint32
}

func (r *Reader) objectEntries() ([]objectEntry, error) {
	if r.ref.tag != tagObject {
		return nil, zerr.Deserf("zera", "value is not a map")
	}
	off := r.ref.a
	env := r.doc.envelope
	if uint64(off)+4 > uint64(len(env)) {
		return nil, zerr.Deserf("zera", "object payload out of envelope bounds")
	}
	count := binary.LittleEndian.Uint32(env[off : off+4])
	pos := off + 4
	entries := make([]objectEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if uint64(pos)+4 > uint64(len(env)) {
			return nil, zerr.Deserf("zera", "object entry header truncated")
		}
		keyLen := binary.LittleEndian.Uint16(env[pos : pos+2])
		pos += 4
		if uint64(pos)+uint64(keyLen)+16 > uint64(len(env)) {
			return nil, zerr.Deserf("zera", "object entry body truncated")
		}
		key := string(env[pos : pos+uint32(keyLen)])
		pos += uint32(keyLen)
		entries = append(entries, objectEntry{key: key, valueOff: pos})
		pos += 16
	}
	return entries, nil
}

func (r *Reader) MapKeys() ([]string, error) {
	entries, err := r.objectEntries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys, nil
}

func (r *Reader) Contains(key string) bool {
	entries, err := r.objectEntries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.key == key {
			return true
		}
	}
	return false
}

func (r *Reader) Index(key string) (zerialize.Reader, error) {
	entries, err := r.objectEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.key == key {
			return valueAt(r.doc, e.valueOff)
		}
	}
	return nil, zerr.Deserf("zera", "missing map key %q", key)
}

func (r *Reader) String() string {
	switch r.ref.tag {
	case tagNull:
		return "null"
	case tagBool:
		b, _ := r.AsBool()
		return fmt.Sprintf("%v", b)
	case tagI64:
		v, _ := r.AsInt64()
		return fmt.Sprintf("%d", v)
	case tagU64:
		v, _ := r.AsUint64()
		return fmt.Sprintf("%d", v)
	case tagF64:
		v, _ := r.AsFloat64()
		return fmt.Sprintf("%g", v)
	case tagString:
		s, _ := r.AsString()
		return fmt.Sprintf("%q", s)
	case tagTypedArray:
		return fmt.Sprintf("blob(%d bytes)", r.ref.b)
	case tagArray:
		return "[array]"
	case tagObject:
		return "{object}"
	default:
		return "<zera:unknown>"
	}
}
