package zera_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/zera"
)

func TestRoundTripScalars(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, w.Int64(-42))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsInt())
	v, err := r.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-42), v)
}

func TestRoundTripMapAndArray(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "id", Val: uint64(9)},
		build.Field{Key: "values", Val: build.Vec(int64(1), int64(2), int64(3))},
		build.Field{Key: "label", Val: "hello"},
		build.Field{Key: "present", Val: true},
	)

	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsMap())

	keys, err := r.MapKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "values", "label", "present"}, keys)

	id, err := r.Index("id")
	require.NoError(t, err)
	u, err := id.AsUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(9), u)

	values, err := r.Index("values")
	require.NoError(t, err)
	require.True(t, values.IsArray())
	n, err := values.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		el, err := values.At(i)
		require.NoError(t, err)
		v, err := el.AsInt64()
		require.NoError(t, err)
		require.Equal(t, int64(i+1), v)
	}

	label, err := r.Index("label")
	require.NoError(t, err)
	s, err := label.AsString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestWidthNarrowingRejectsOutOfRange(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, w.Int64(1000))
	buf, err := w.Finish()
	require.NoError(t, err)
	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)
	_, err = r.AsInt8()
	require.Error(t, err)
}

func TestWriterRejectsSecondRootValue(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, w.Null())
	require.Error(t, w.Int64(1))
}

func TestWriterRejectsUnbalancedContainer(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, w.BeginMap(1))
	require.Error(t, w.EndArray())
}

func TestBlobIsZeroCopy(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, w.Binary([]byte{1, 2, 3, 4}))
	buf, err := w.Finish()
	require.NoError(t, err)
	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)
	b, err := r.AsBlob()
	require.NoError(t, err)
	require.False(t, b.Owning)
	require.Equal(t, []byte{1, 2, 3, 4}, b.Bytes)
}
