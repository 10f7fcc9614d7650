package msgpack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/msgpack"
)

func TestRoundTripScalars(t *testing.T) {
	w := msgpack.NewWriter()
	require.NoError(t, w.Double(3.25))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := msgpack.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsFloat())
	v, err := r.AsFloat64()
	require.NoError(t, err)
	require.Equal(t, 3.25, v)
}

func TestRoundTripNestedContainers(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "items", Val: build.Vec(
			build.Map(build.Field{Key: "n", Val: int64(1)}),
			build.Map(build.Field{Key: "n", Val: int64(2)}),
		)},
		build.Field{Key: "negative", Val: int64(-900)},
		build.Field{Key: "unsigned", Val: uint64(1) << 40},
	)

	w := msgpack.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := msgpack.NewReader(buf.Bytes())
	require.NoError(t, err)

	items, err := r.Index("items")
	require.NoError(t, err)
	n, err := items.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	for i := 0; i < n; i++ {
		el, err := items.At(i)
		require.NoError(t, err)
		field, err := el.Index("n")
		require.NoError(t, err)
		v, err := field.AsInt64()
		require.NoError(t, err)
		require.Equal(t, int64(i+1), v)
	}

	neg, err := r.Index("negative")
	require.NoError(t, err)
	nv, err := neg.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-900), nv)

	u, err := r.Index("unsigned")
	require.NoError(t, err)
	uv, err := u.AsUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<40, uv)
}

func TestUint64OverflowingInt64Rejected(t *testing.T) {
	w := msgpack.NewWriter()
	require.NoError(t, w.Uint64(1<<63))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := msgpack.NewReader(buf.Bytes())
	require.NoError(t, err)
	_, err = r.AsInt64()
	require.Error(t, err)
	v, err := r.AsUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<63, v)
}

func TestWriterRejectsKeyOutsideMap(t *testing.T) {
	w := msgpack.NewWriter()
	require.Error(t, w.Key("oops"))
}

func TestWriterRejectsDanglingKey(t *testing.T) {
	w := msgpack.NewWriter()
	require.NoError(t, w.BeginMap(1))
	require.NoError(t, w.Key("k"))
	require.Error(t, w.EndMap())
}
