package zbuffer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize/zbuffer"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := zbuffer.New([]byte("the quick brown fox jumps over the lazy dog, repeatedly, " +
		"the quick brown fox jumps over the lazy dog, repeatedly"))

	compressed, err := zbuffer.Compress(original)
	require.NoError(t, err)
	require.Less(t, compressed.Size(), original.Size())

	restored, err := zbuffer.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, original.Bytes(), restored.Bytes())
}

func TestDecompressRejectsNonZstdInput(t *testing.T) {
	_, err := zbuffer.Decompress(zbuffer.New([]byte("not zstd framed data")))
	require.Error(t, err)
}

func TestHexdumpAndDebugString(t *testing.T) {
	buf := zbuffer.New([]byte{0x00, 0x01, 0x02, 0x41, 0x42})
	require.Contains(t, buf.Hexdump(), "AB")
	require.Equal(t, "ZBuffer{5 bytes}", buf.DebugString())
}
