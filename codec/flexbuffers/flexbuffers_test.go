package flexbuffers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/flexbuffers"
)

func TestRoundTripScalars(t *testing.T) {
	w := flexbuffers.NewWriter()
	require.NoError(t, w.Boolean(true))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := flexbuffers.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsBool())
	v, err := r.AsBool()
	require.NoError(t, err)
	require.True(t, v)
}

// FlexBuffers maps are physically sorted by key; this is the one codec
// where MapKeys order differs from insertion order.
func TestMapKeysComeBackSorted(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "zeta", Val: int64(1)},
		build.Field{Key: "alpha", Val: int64(2)},
		build.Field{Key: "mid", Val: int64(3)},
	)
	w := flexbuffers.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := flexbuffers.NewReader(buf.Bytes())
	require.NoError(t, err)
	keys, err := r.MapKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, keys)
}

func TestRoundTripArray(t *testing.T) {
	doc := build.Vec(int64(1), int64(2), int64(3), int64(4))
	w := flexbuffers.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := flexbuffers.NewReader(buf.Bytes())
	require.NoError(t, err)
	n, err := r.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 4, n)
	for i, want := range []int64{1, 2, 3, 4} {
		el, err := r.At(i)
		require.NoError(t, err)
		v, err := el.AsInt64()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestBlobAliasesSourceBuffer(t *testing.T) {
	w := flexbuffers.NewWriter()
	require.NoError(t, w.Binary([]byte{9, 8, 7}))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := flexbuffers.NewReader(buf.Bytes())
	require.NoError(t, err)
	b, err := r.AsBlob()
	require.NoError(t, err)
	require.False(t, b.Owning)
	require.Equal(t, []byte{9, 8, 7}, b.Bytes)
}
