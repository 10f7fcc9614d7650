// Package flexbuffers adapts the FlexBuffers on-disk format to this
// module's Reader/Writer abstraction. It wraps the external builder and
// reference-reader from github.com/google/flatbuffers/go/flexbuffers
// rather than re-implementing the format: FlexBuffers maps are physically
// sorted by key, so MapKeys here returns that sorted order (not insertion
// order), which is the one codec where the two differ.
package flexbuffers

import (
	fb "github.com/google/flatbuffers/go/flexbuffers"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zbuffer"
	"github.com/mrayva/zerialize/zerr"
)

var Protocol = zerialize.Protocol{
	Name:      "flexbuffers",
	NewReader: NewReader,
	NewWriter: func() zerialize.RootWriter { return NewWriter() },
}

// --- Reader --------------------------------------------------------------

type Reader struct {
	ref fb.Reference
}

func NewReader(b []byte) (zerialize.Reader, error) {
	ref, err := fb.GetRoot(b)
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "parse root: %v", err)
	}
	return &Reader{ref: ref}, nil
}

func (r *Reader) IsNull() bool   { return r.ref.IsNull() }
func (r *Reader) IsBool() bool   { return r.ref.IsBool() }
func (r *Reader) IsInt() bool    { return r.ref.IsInt() }
func (r *Reader) IsUint() bool   { return r.ref.IsUInt() }
func (r *Reader) IsFloat() bool  { return r.ref.IsFloat() }
func (r *Reader) IsString() bool { return r.ref.IsString() }
func (r *Reader) IsBlob() bool   { return r.ref.IsBlob() }
func (r *Reader) IsArray() bool  { return r.ref.IsVector() }
func (r *Reader) IsMap() bool    { return r.ref.IsMap() }

func (r *Reader) AsBool() (bool, error) {
	if !r.ref.IsBool() {
		return false, zerr.Deserf("flexbuffers", "AsBool on non-bool value")
	}
	return r.ref.ToBool()
}

func (r *Reader) AsInt64() (int64, error) {
	if !(r.ref.IsInt() || r.ref.IsUInt()) {
		return 0, zerr.Deserf("flexbuffers", "AsInt64 on non-integer value")
	}
	v, err := r.ref.ToInt64()
	if err != nil {
		return 0, zerr.Deserf("flexbuffers", "AsInt64: %v", err)
	}
	return v, nil
}

func (r *Reader) AsUint64() (uint64, error) {
	if !(r.ref.IsInt() || r.ref.IsUInt()) {
		return 0, zerr.Deserf("flexbuffers", "AsUint64 on non-integer value")
	}
	v, err := r.ref.ToUInt64()
	if err != nil {
		return 0, zerr.Deserf("flexbuffers", "AsUint64: %v", err)
	}
	return v, nil
}

func narrowI(v int64, lo, hi int64) error {
	if v < lo || v > hi {
		return zerr.Deserf("flexbuffers", "value %d out of range", v)
	}
	return nil
}

func (r *Reader) AsInt8() (int8, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowI(v, -128, 127); err != nil {
		return 0, err
	}
	return int8(v), nil
}

func (r *Reader) AsInt16() (int16, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowI(v, -32768, 32767); err != nil {
		return 0, err
	}
	return int16(v), nil
}

func (r *Reader) AsInt32() (int32, error) {
	v, err := r.AsInt64()
	if err != nil {
		return 0, err
	}
	if err := narrowI(v, -2147483648, 2147483647); err != nil {
		return 0, err
	}
	return int32(v), nil
}

func (r *Reader) AsUint8() (uint8, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > 255 {
		return 0, zerr.Deserf("flexbuffers", "value %d out of range", v)
	}
	return uint8(v), nil
}

func (r *Reader) AsUint16() (uint16, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > 65535 {
		return 0, zerr.Deserf("flexbuffers", "value %d out of range", v)
	}
	return uint16(v), nil
}

func (r *Reader) AsUint32() (uint32, error) {
	v, err := r.AsUint64()
	if err != nil {
		return 0, err
	}
	if v > 4294967295 {
		return 0, zerr.Deserf("flexbuffers", "value %d out of range", v)
	}
	return uint32(v), nil
}

func (r *Reader) AsFloat64() (float64, error) {
	if !r.ref.IsFloat() {
		return 0, zerr.Deserf("flexbuffers", "AsFloat64 on non-float value")
	}
	v, err := r.ref.ToFloat64()
	if err != nil {
		return 0, zerr.Deserf("flexbuffers", "AsFloat64: %v", err)
	}
	return v, nil
}

func (r *Reader) AsFloat32() (float32, error) {
	v, err := r.AsFloat64()
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

func (r *Reader) AsString() (string, error) {
	if !r.ref.IsString() {
		return "", zerr.Deserf("flexbuffers", "AsString on non-string value")
	}
	s, err := r.ref.ToString()
	if err != nil {
		return "", zerr.Deserf("flexbuffers", "AsString: %v", err)
	}
	return s, nil
}

func (r *Reader) AsBlob() (zerialize.Blob, error) {
	if !r.ref.IsBlob() {
		return zerialize.Blob{}, zerr.Deserf("flexbuffers", "AsBlob on non-blob value")
	}
	b, err := r.ref.ToBlob()
	if err != nil {
		return zerialize.Blob{}, zerr.Deserf("flexbuffers", "AsBlob: %v", err)
	}
	return zerialize.Blob{Bytes: b.Data(), Owning: false}, nil
}

func (r *Reader) MapKeys() ([]string, error) {
	if !r.ref.IsMap() {
		return nil, zerr.Deserf("flexbuffers", "MapKeys on non-map value")
	}
	m, err := r.ref.ToMap()
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "ToMap: %v", err)
	}
	keys := m.Keys()
	out := make([]string, keys.Len())
	for i := 0; i < keys.Len(); i++ {
		s, err := keys.AtString(i)
		if err != nil {
			return nil, zerr.Deserf("flexbuffers", "map key %d: %v", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func (r *Reader) Contains(key string) bool {
	v, err := r.Index(key)
	return err == nil && v != nil
}

func (r *Reader) Index(key string) (zerialize.Reader, error) {
	if !r.ref.IsMap() {
		return nil, zerr.Deserf("flexbuffers", "Index on non-map value")
	}
	m, err := r.ref.ToMap()
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "ToMap: %v", err)
	}
	v, err := m.Get(key)
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "missing map key %q", key)
	}
	return &Reader{ref: v}, nil
}

func (r *Reader) ArraySize() (int, error) {
	if !r.ref.IsVector() {
		return 0, zerr.Deserf("flexbuffers", "ArraySize on non-array value")
	}
	v, err := r.ref.ToVector()
	if err != nil {
		return 0, zerr.Deserf("flexbuffers", "ToVector: %v", err)
	}
	return v.Len(), nil
}

func (r *Reader) At(i int) (zerialize.Reader, error) {
	if !r.ref.IsVector() {
		return nil, zerr.Deserf("flexbuffers", "At on non-array value")
	}
	v, err := r.ref.ToVector()
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "ToVector: %v", err)
	}
	if i < 0 || i >= v.Len() {
		return nil, zerr.Deserf("flexbuffers", "array index %d out of range [0,%d)", i, v.Len())
	}
	el, err := v.At(i)
	if err != nil {
		return nil, zerr.Deserf("flexbuffers", "array element %d: %v", i, err)
	}
	return &Reader{ref: el}, nil
}

func (r *Reader) String() string { return r.ref.String() }

// --- Writer ---------------------------------------------------------------

type frameKind int

const (
	frameArray frameKind = iota
	frameMap
)

type frame struct {
	kind  frameKind
	start int
}

// Writer wraps fb.Builder's start/push/end vector-and-map API with this
// module's begin/end container calls.
type Writer struct {
	b        *fb.Builder
	stack    []frame
	rootSet  bool
	finished bool
}

func NewWriter() *Writer {
	return &Writer{b: fb.NewBuilder()}
}

func (w *Writer) checkOpen(op string) error {
	if w.finished {
		return zerr.Serf(op, "writer already finished")
	}
	return nil
}

func (w *Writer) markValue() error {
	if len(w.stack) == 0 {
		if w.rootSet {
			return zerr.Serf("flexbuffers", "writer may emit at most one root value")
		}
		w.rootSet = true
	}
	return nil
}

func (w *Writer) Null() error {
	if err := w.checkOpen("null"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.Null()
	return nil
}

func (w *Writer) Boolean(v bool) error {
	if err := w.checkOpen("boolean"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.Bool(v)
	return nil
}

func (w *Writer) Int64(v int64) error {
	if err := w.checkOpen("int64"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.Int(v)
	return nil
}

func (w *Writer) Uint64(v uint64) error {
	if err := w.checkOpen("uint64"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.UInt(v)
	return nil
}

func (w *Writer) Double(v float64) error {
	if err := w.checkOpen("double"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.Float(v)
	return nil
}

func (w *Writer) String(s string) error {
	if err := w.checkOpen("string"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.String(s)
	return nil
}

func (w *Writer) Binary(b []byte) error {
	if err := w.checkOpen("binary"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.b.Blob(b)
	return nil
}

func (w *Writer) Key(s string) error {
	if err := w.checkOpen("key"); err != nil {
		return err
	}
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].kind != frameMap {
		return zerr.Serf("flexbuffers", "key() outside a map frame")
	}
	w.b.Key(s)
	return nil
}

func (w *Writer) BeginArray(n int) error {
	if err := w.checkOpen("begin_array"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.stack = append(w.stack, frame{kind: frameArray, start: w.b.StartVector()})
	return nil
}

func (w *Writer) BeginMap(n int) error {
	if err := w.checkOpen("begin_map"); err != nil {
		return err
	}
	if err := w.markValue(); err != nil {
		return err
	}
	w.stack = append(w.stack, frame{kind: frameMap, start: w.b.StartMap()})
	return nil
}

func (w *Writer) EndArray() error {
	if err := w.checkOpen("end_array"); err != nil {
		return err
	}
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].kind != frameArray {
		return zerr.Serf("flexbuffers", "end_array on a map frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.b.EndVector(top.start, false, false)
	return nil
}

func (w *Writer) EndMap() error {
	if err := w.checkOpen("end_map"); err != nil {
		return err
	}
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].kind != frameMap {
		return zerr.Serf("flexbuffers", "end_map on an array frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.b.EndMap(top.start)
	return nil
}

func (w *Writer) Finish() (zbuffer.Buffer, error) {
	if err := w.checkOpen("finish"); err != nil {
		return zbuffer.Buffer{}, err
	}
	if len(w.stack) != 0 {
		return zbuffer.Buffer{}, zerr.Serf("flexbuffers", "finish() with %d container(s) still open", len(w.stack))
	}
	if !w.rootSet {
		w.b.Null()
	}
	w.finished = true
	w.b.Finish()
	return zbuffer.Wrap(w.b.Bytes[w.b.Head():]), nil
}
