// Package zerialize defines the reader/writer/builder abstraction every
// codec in this module implements identically: FlexBuffers, MessagePack,
// CBOR, and ZERA all produce and consume the same logical value domain
// through these interfaces, which is what lets the builder DSL and the
// translator drive any of them without knowing which one they're talking to.
package zerialize

import "github.com/mrayva/zerialize/zbuffer"

// Blob is the result of a blob accessor. Owning is false when Bytes aliases
// the reader's backing buffer (FlexBuffers, MessagePack, CBOR, ZERA); it is
// true when the codec had to materialize the bytes on access (JSON, whose
// blobs live as base64 text). Tensor views use Owning to decide whether a
// zero-copy view is even possible before checking alignment.
type Blob struct {
	Bytes  []byte
	Owning bool
}

// Reader is an immutable view over encoded bytes. A zero value is never
// valid; readers are produced by a Protocol's NewReader or by indexing into
// another Reader.
type Reader interface {
	IsNull() bool
	IsBool() bool
	IsInt() bool
	IsUint() bool
	IsFloat() bool
	IsString() bool
	IsBlob() bool
	IsArray() bool
	IsMap() bool

	AsBool() (bool, error)
	AsInt8() (int8, error)
	AsInt16() (int16, error)
	AsInt32() (int32, error)
	AsInt64() (int64, error)
	AsUint8() (uint8, error)
	AsUint16() (uint16, error)
	AsUint32() (uint32, error)
	AsUint64() (uint64, error)
	AsFloat32() (float32, error)
	AsFloat64() (float64, error)
	AsString() (string, error)
	AsBlob() (Blob, error)

	// MapKeys returns the keys of a map value in the order the codec
	// exposes them (insertion order, except FlexBuffers which is
	// physically sorted).
	MapKeys() ([]string, error)
	Contains(key string) bool
	Index(key string) (Reader, error)
	ArraySize() (int, error)
	At(i int) (Reader, error)

	// String renders a short human-readable form of the value; exact
	// formatting is codec-specific.
	String() string
}

// Writer accepts a sequence of emission calls describing exactly one value.
// Primitive emissions and container begin/end calls must respect the
// nesting and key/value pairing rules: inside a map frame a value emission
// must be immediately preceded by a Key call, and a writer may only ever
// emit one root value.
type Writer interface {
	Null() error
	Boolean(b bool) error
	Int64(v int64) error
	Uint64(v uint64) error
	Double(v float64) error
	String(s string) error
	Binary(b []byte) error
	Key(s string) error
	BeginArray(n int) error
	EndArray() error
	BeginMap(n int) error
	EndMap() error
}

// RootWriter is a Writer that owns the accumulator and can be finalized.
// Finish is single-use: a finished writer must not be reused.
type RootWriter interface {
	Writer
	Finish() (zbuffer.Buffer, error)
}

// Builder is a value that, given a writer, emits exactly one logical value.
// Builders compose: a Builder argument passed to build.Vec or build.Map is
// invoked recursively rather than serialized as an opaque value.
type Builder func(w Writer) error

// Protocol bundles a codec's constructors so generic code (the translator,
// the test suite) can be parameterized over "which codec" at runtime.
type Protocol struct {
	Name      string
	NewReader func(b []byte) (Reader, error)
	NewWriter func() RootWriter
}
