package json_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/json"
)

func TestRoundTripScalars(t *testing.T) {
	w := json.NewWriter()
	require.NoError(t, w.Int64(-17))
	buf, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, "-17", buf.String())

	r, err := json.NewReader(buf.Bytes())
	require.NoError(t, err)
	v, err := r.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-17), v)
}

func TestRoundTripMapAndArray(t *testing.T) {
	doc := build.Map(
		build.Field{Key: "name", Val: "zera"},
		build.Field{Key: "versions", Val: build.Vec(int64(1), int64(2))},
	)
	w := json.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := json.NewReader(buf.Bytes())
	require.NoError(t, err)
	keys, err := r.MapKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"name", "versions"}, keys)

	name, err := r.Index("name")
	require.NoError(t, err)
	s, err := name.AsString()
	require.NoError(t, err)
	require.Equal(t, "zera", s)
}

func TestBlobRoundTripsAsBase64Envelope(t *testing.T) {
	w := json.NewWriter()
	require.NoError(t, w.Binary([]byte{0x01, 0x02, 0x03}))
	buf, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, `["~b","AQID","base64"]`, buf.String())

	r, err := json.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsBlob())
	require.False(t, r.IsArray())
	b, err := r.AsBlob()
	require.NoError(t, err)
	require.True(t, b.Owning)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, b.Bytes)
}

func TestPlainThreeElementArrayIsNotMistakenForBlob(t *testing.T) {
	doc := build.Vec(int64(1), int64(2), int64(3))
	w := json.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := json.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.True(t, r.IsArray())
	require.False(t, r.IsBlob())
}
