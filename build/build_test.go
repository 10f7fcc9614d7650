package build_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/zera"
)

func TestVecAndMapCompose(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "name", Val: "widget"},
		build.Field{Key: "parts", Val: build.Vec(int64(1), int64(2), build.Vec(int64(3), int64(4)))},
	)

	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)

	parts, err := r.Index("parts")
	require.NoError(t, err)
	n, err := parts.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	nested, err := parts.At(2)
	require.NoError(t, err)
	require.True(t, nested.IsArray())
	nn, err := nested.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 2, nn)
}

func TestSerializeDefaultsOverSlice(t *testing.T) {
	w := zera.NewWriter()
	require.NoError(t, build.Serialize([]int64{1, 2, 3}, w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsArray())
	n, err := r.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSerializeRejectsUnknownType(t *testing.T) {
	w := zera.NewWriter()
	err := build.Serialize(struct{ X int }{X: 1}, w)
	require.Error(t, err)
}
