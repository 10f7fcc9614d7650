// Package value implements the dynamic runtime value described by the
// library's logical domain: null, bool, signed/unsigned 64-bit integers,
// float64, string, blob, ordered array, and order-preserving map. It lets
// callers build a tree at runtime and emit it through any Writer via
// Serialize, the same way the builder DSL's default serializers dispatch
// on static Go types.
package value

import "github.com/mrayva/zerialize"

type Kind int

const (
	Null Kind = iota
	Bool
	Int64
	Uint64
	Float64
	String
	Blob
	Array
	Map
	Opaque
)

// Entry is one key/value pair of a Map value. Maps are a slice of Entry,
// not a Go map, so that insertion order survives a round-trip.
type Entry struct {
	Key string
	Val Value
}

// Emitter lets an Opaque value plug arbitrary types (e.g. a tensor view)
// into the dynamic value tree without widening Kind.
type Emitter func(w zerialize.Writer) error

// Value is a closed sum type over the kinds above. Exactly one of the
// fields matching Kind is meaningful.
type Value struct {
	kind    Kind
	boolV   bool
	intV    int64
	uintV   uint64
	floatV  float64
	strV    string
	blobV   []byte
	arrV    []Value
	mapV    []Entry
	emitter Emitter
}

func (v Value) Kind() Kind { return v.kind }

func NewNull() Value              { return Value{kind: Null} }
func NewBool(b bool) Value        { return Value{kind: Bool, boolV: b} }
func NewInt64(i int64) Value      { return Value{kind: Int64, intV: i} }
func NewUint64(u uint64) Value    { return Value{kind: Uint64, uintV: u} }
func NewFloat64(f float64) Value  { return Value{kind: Float64, floatV: f} }
func NewString(s string) Value    { return Value{kind: String, strV: s} }
func NewBlob(b []byte) Value      { return Value{kind: Blob, blobV: b} }
func NewArray(vs []Value) Value   { return Value{kind: Array, arrV: vs} }
func NewMap(es []Entry) Value     { return Value{kind: Map, mapV: es} }
func NewOpaque(fn Emitter) Value  { return Value{kind: Opaque, emitter: fn} }

func (v Value) Bool() bool       { return v.boolV }
func (v Value) Int64() int64     { return v.intV }
func (v Value) Uint64() uint64   { return v.uintV }
func (v Value) Float64() float64 { return v.floatV }
func (v Value) String() string   { return v.strV }
func (v Value) Blob() []byte     { return v.blobV }
func (v Value) Array() []Value   { return v.arrV }
func (v Value) Map() []Entry     { return v.mapV }

// Serialize walks v and emits it into w, recursing through arrays and maps
// in their stored order. Opaque values delegate directly to their emitter.
func Serialize(v Value, w zerialize.Writer) error {
	switch v.kind {
	case Null:
		return w.Null()
	case Bool:
		return w.Boolean(v.boolV)
	case Int64:
		return w.Int64(v.intV)
	case Uint64:
		return w.Uint64(v.uintV)
	case Float64:
		return w.Double(v.floatV)
	case String:
		return w.String(v.strV)
	case Blob:
		return w.Binary(v.blobV)
	case Array:
		if err := w.BeginArray(len(v.arrV)); err != nil {
			return err
		}
		for _, el := range v.arrV {
			if err := Serialize(el, w); err != nil {
				return err
			}
		}
		return w.EndArray()
	case Map:
		if err := w.BeginMap(len(v.mapV)); err != nil {
			return err
		}
		for _, e := range v.mapV {
			if err := w.Key(e.Key); err != nil {
				return err
			}
			if err := Serialize(e.Val, w); err != nil {
				return err
			}
		}
		return w.EndMap()
	case Opaque:
		return v.emitter(w)
	default:
		return w.Null()
	}
}
