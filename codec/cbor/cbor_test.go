package cbor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/cbor"
)

func TestRoundTripScalars(t *testing.T) {
	w := cbor.NewWriter()
	require.NoError(t, w.String("hello, cbor"))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := cbor.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsString())
	s, err := r.AsString()
	require.NoError(t, err)
	require.Equal(t, "hello, cbor", s)
}

func TestRoundTripNegativeIntegers(t *testing.T) {
	w := cbor.NewWriter()
	require.NoError(t, w.Int64(-1000000))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := cbor.NewReader(buf.Bytes())
	require.NoError(t, err)
	v, err := r.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-1000000), v)
}

func TestRoundTripMapAndArray(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "values", Val: build.Vec(int64(10), int64(20), int64(30))},
		build.Field{Key: "blob", Val: []byte{0xca, 0xfe}},
	)

	w := cbor.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := cbor.NewReader(buf.Bytes())
	require.NoError(t, err)

	values, err := r.Index("values")
	require.NoError(t, err)
	n, err := values.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for i, want := range []int64{10, 20, 30} {
		el, err := values.At(i)
		require.NoError(t, err)
		v, err := el.AsInt64()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}

	blob, err := r.Index("blob")
	require.NoError(t, err)
	b, err := blob.AsBlob()
	require.NoError(t, err)
	require.Equal(t, []byte{0xca, 0xfe}, b.Bytes)
	require.False(t, b.Owning)
}

// Decoding an indefinite-length text string split across several chunks,
// terminated by the break byte, is a reading concern only: this library's
// writer never emits the indefinite form.
func TestDecodesIndefiniteLengthTextString(t *testing.T) {
	raw := []byte{
		0x7f,                   // text string, indefinite length
		0x62, 'h', 'i',         // chunk "hi"
		0x63, 'y', 'a', '!',    // chunk "ya!"
		0xff,                   // break
	}
	r, err := cbor.NewReader(raw)
	require.NoError(t, err)
	require.True(t, r.IsString())
	s, err := r.AsString()
	require.NoError(t, err)
	require.Equal(t, "hiya!", s)
}

func TestDecodesIndefiniteLengthArray(t *testing.T) {
	raw := []byte{
		0x9f,       // array, indefinite length
		0x01,       // 1
		0x02,       // 2
		0x03,       // 3
		0xff,       // break
	}
	r, err := cbor.NewReader(raw)
	require.NoError(t, err)
	require.True(t, r.IsArray())
	n, err := r.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for i, want := range []int64{1, 2, 3} {
		el, err := r.At(i)
		require.NoError(t, err)
		v, err := el.AsInt64()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestWriterOnlyEmitsDefiniteLength(t *testing.T) {
	w := cbor.NewWriter()
	require.NoError(t, w.BeginArray(2))
	require.NoError(t, w.Int64(1))
	require.NoError(t, w.Int64(2))
	require.NoError(t, w.EndArray())
	buf, err := w.Finish()
	require.NoError(t, err)
	require.NotEqual(t, byte(0x9f), buf.Bytes()[0])
}
