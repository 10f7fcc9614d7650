package translate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/cbor"
	"github.com/mrayva/zerialize/codec/flexbuffers"
	"github.com/mrayva/zerialize/codec/json"
	"github.com/mrayva/zerialize/codec/msgpack"
	"github.com/mrayva/zerialize/codec/zera"
	"github.com/mrayva/zerialize/translate"
)

var allProtocols = []zerialize.Protocol{
	zera.Protocol,
	msgpack.Protocol,
	cbor.Protocol,
	json.Protocol,
	flexbuffers.Protocol,
}

func sampleDoc() zerialize.Builder {
	return build.Map(
		build.Field{Key: "name", Val: "translator"},
		build.Field{Key: "count", Val: int64(7)},
		build.Field{Key: "ratio", Val: 0.5},
		build.Field{Key: "ok", Val: true},
		build.Field{Key: "tags", Val: build.Vec("a", "b", "c")},
		build.Field{Key: "blob", Val: []byte{0xde, 0xad, 0xbe, 0xef}},
	)
}

func encodeWith(t *testing.T, p zerialize.Protocol, b zerialize.Builder) zerialize.Reader {
	t.Helper()
	w := p.NewWriter()
	require.NoError(t, b(w))
	buf, err := w.Finish()
	require.NoError(t, err)
	r, err := p.NewReader(buf.Bytes())
	require.NoError(t, err)
	return r
}

func assertSampleDoc(t *testing.T, r zerialize.Reader) {
	t.Helper()
	require.True(t, r.IsMap())
	keys, err := r.MapKeys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"name", "count", "ratio", "ok", "tags", "blob"}, keys)

	name, err := r.Index("name")
	require.NoError(t, err)
	s, err := name.AsString()
	require.NoError(t, err)
	require.Equal(t, "translator", s)

	count, err := r.Index("count")
	require.NoError(t, err)
	i, err := count.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(7), i)

	ok, err := r.Index("ok")
	require.NoError(t, err)
	b, err := ok.AsBool()
	require.NoError(t, err)
	require.True(t, b)

	tags, err := r.Index("tags")
	require.NoError(t, err)
	require.True(t, tags.IsArray())
	n, err := tags.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for i, want := range []string{"a", "b", "c"} {
		el, err := tags.At(i)
		require.NoError(t, err)
		s, err := el.AsString()
		require.NoError(t, err)
		require.Equal(t, want, s)
	}

	blob, err := r.Index("blob")
	require.NoError(t, err)
	require.True(t, blob.IsBlob())
	got, err := blob.AsBlob()
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got.Bytes)
}

func TestTranslateAcrossEveryCodecPair(t *testing.T) {
	for _, src := range allProtocols {
		src := src
		srcReader := encodeWith(t, src, sampleDoc())
		for _, dst := range allProtocols {
			dst := dst
			t.Run(src.Name+"->"+dst.Name, func(t *testing.T) {
				out, err := translate.Translate(dst, srcReader)
				require.NoError(t, err)
				assertSampleDoc(t, out)
			})
		}
	}
}

func TestTranslatePreservesArrayOrder(t *testing.T) {
	b := build.Vec(int64(5), int64(4), int64(3), int64(2), int64(1))
	src := encodeWith(t, zera.Protocol, b)
	out, err := translate.Translate(msgpack.Protocol, src)
	require.NoError(t, err)
	n, err := out.ArraySize()
	require.NoError(t, err)
	require.Equal(t, 5, n)
	for i, want := range []int64{5, 4, 3, 2, 1} {
		el, err := out.At(i)
		require.NoError(t, err)
		got, err := el.AsInt64()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestTranslatePreservesMapKeyOrder(t *testing.T) {
	b := build.Map(
		build.Field{Key: "z", Val: int64(1)},
		build.Field{Key: "a", Val: int64(2)},
		build.Field{Key: "m", Val: int64(3)},
	)
	src := encodeWith(t, zera.Protocol, b)
	out, err := translate.Translate(cbor.Protocol, src)
	require.NoError(t, err)
	keys, err := out.MapKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"z", "a", "m"}, keys)
}
