package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/codec/msgpack"
	"github.com/mrayva/zerialize/value"
)

func TestSerializeDynamicTree(t *testing.T) {
	doc := value.NewMap([]value.Entry{
		{Key: "title", Val: value.NewString("report")},
		{Key: "count", Val: value.NewInt64(-3)},
		{Key: "tags", Val: value.NewArray([]value.Value{
			value.NewString("a"),
			value.NewString("b"),
		})},
		{Key: "active", Val: value.NewBool(true)},
		{Key: "missing", Val: value.NewNull()},
	})

	w := msgpack.NewWriter()
	require.NoError(t, value.Serialize(doc, w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := msgpack.NewReader(buf.Bytes())
	require.NoError(t, err)

	keys, err := r.MapKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"title", "count", "tags", "active", "missing"}, keys)

	missing, err := r.Index("missing")
	require.NoError(t, err)
	require.True(t, missing.IsNull())

	tags, err := r.Index("tags")
	require.NoError(t, err)
	n, err := tags.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestOpaqueValueDelegatesToEmitter(t *testing.T) {
	called := false
	opaque := value.NewOpaque(func(w zerialize.Writer) error {
		called = true
		return w.Int64(99)
	})

	w := msgpack.NewWriter()
	require.NoError(t, value.Serialize(opaque, w))
	_, err := w.Finish()
	require.NoError(t, err)
	require.True(t, called)
}
