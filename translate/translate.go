// Package translate bridges any Reader to any Writer, walking the source
// value tree and replaying it into the destination. It is the generic
// interop path used for cross-codec round-trip tests and for converting
// between wire formats without a schema.
package translate

import (
	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zerr"
)

// To recursively walks v and emits it into w. Predicates are tested in a
// fixed order: null, bool, int, uint, float, string, blob, map, array.
// Maps are emitted in the reader's own key order (mapKeys() order); arrays
// preserve index order. Reaching a source value class the destination
// cannot represent raises a SerializationError.
func To(v zerialize.Reader, w zerialize.Writer) error {
	switch {
	case v.IsNull():
		return w.Null()
	case v.IsBool():
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		return w.Boolean(b)
	case v.IsInt():
		i, err := v.AsInt64()
		if err != nil {
			return err
		}
		return w.Int64(i)
	case v.IsUint():
		u, err := v.AsUint64()
		if err != nil {
			return err
		}
		return w.Uint64(u)
	case v.IsFloat():
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		return w.Double(f)
	case v.IsString():
		s, err := v.AsString()
		if err != nil {
			return err
		}
		return w.String(s)
	case v.IsBlob():
		b, err := v.AsBlob()
		if err != nil {
			return err
		}
		return w.Binary(b.Bytes)
	case v.IsMap():
		keys, err := v.MapKeys()
		if err != nil {
			return err
		}
		if err := w.BeginMap(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := w.Key(k); err != nil {
				return err
			}
			child, err := v.Index(k)
			if err != nil {
				return err
			}
			if err := To(child, w); err != nil {
				return err
			}
		}
		return w.EndMap()
	case v.IsArray():
		n, err := v.ArraySize()
		if err != nil {
			return err
		}
		if err := w.BeginArray(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			child, err := v.At(i)
			if err != nil {
				return err
			}
			if err := To(child, w); err != nil {
				return err
			}
		}
		return w.EndArray()
	default:
		return zerr.Serf("translate", "unsupported source value class")
	}
}

// Translate converts src into dst's wire format, returning a reader over
// the freshly produced bytes.
func Translate(dst zerialize.Protocol, src zerialize.Reader) (zerialize.Reader, error) {
	w := dst.NewWriter()
	if err := To(src, w); err != nil {
		return nil, err
	}
	buf, err := w.Finish()
	if err != nil {
		return nil, err
	}
	return dst.NewReader(buf.Bytes())
}
