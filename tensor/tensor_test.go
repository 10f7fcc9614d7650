package tensor_test

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/build"
	"github.com/mrayva/zerialize/codec/json"
	"github.com/mrayva/zerialize/codec/zera"
	"github.com/mrayva/zerialize/tensor"
)

// fakeNode is a minimal hand-rolled zerialize.Reader used only to engineer a
// borrowed blob at a byte offset tensor.Read can't get from any real codec
// (every codec here either owns its blob bytes or, like ZERA, places them
// on a 16-byte-aligned boundary), so the Misaligned path can be exercised
// directly.
type fakeNode struct {
	isArray bool
	isBlob  bool
	ival    int64
	uval    uint64
	elems   []fakeNode
	blob    zerialize.Blob
}

func fakeInt(v uint64) fakeNode { return fakeNode{ival: int64(v), uval: v} }

func (n fakeNode) IsNull() bool   { return false }
func (n fakeNode) IsBool() bool   { return false }
func (n fakeNode) IsInt() bool    { return !n.isArray && !n.isBlob }
func (n fakeNode) IsUint() bool   { return !n.isArray && !n.isBlob }
func (n fakeNode) IsFloat() bool  { return false }
func (n fakeNode) IsString() bool { return false }
func (n fakeNode) IsBlob() bool   { return n.isBlob }
func (n fakeNode) IsArray() bool  { return n.isArray }
func (n fakeNode) IsMap() bool    { return false }

func (n fakeNode) AsBool() (bool, error)    { return false, fmt.Errorf("fakeNode: not a bool") }
func (n fakeNode) AsInt8() (int8, error)    { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsInt16() (int16, error)  { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsInt32() (int32, error)  { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsInt64() (int64, error) {
	if n.isArray || n.isBlob {
		return 0, fmt.Errorf("fakeNode: not an int")
	}
	return n.ival, nil
}
func (n fakeNode) AsUint8() (uint8, error)   { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsUint16() (uint16, error) { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsUint32() (uint32, error) { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsUint64() (uint64, error) {
	if n.isArray || n.isBlob {
		return 0, fmt.Errorf("fakeNode: not a uint")
	}
	return n.uval, nil
}
func (n fakeNode) AsFloat32() (float32, error) { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsFloat64() (float64, error) { return 0, fmt.Errorf("fakeNode: not supported") }
func (n fakeNode) AsString() (string, error)   { return "", fmt.Errorf("fakeNode: not a string") }
func (n fakeNode) AsBlob() (zerialize.Blob, error) {
	if !n.isBlob {
		return zerialize.Blob{}, fmt.Errorf("fakeNode: not a blob")
	}
	return n.blob, nil
}

func (n fakeNode) MapKeys() ([]string, error) { return nil, fmt.Errorf("fakeNode: not a map") }
func (n fakeNode) Contains(key string) bool    { return false }
func (n fakeNode) Index(key string) (zerialize.Reader, error) {
	return nil, fmt.Errorf("fakeNode: not a map")
}
func (n fakeNode) ArraySize() (int, error) {
	if !n.isArray {
		return 0, fmt.Errorf("fakeNode: not an array")
	}
	return len(n.elems), nil
}
func (n fakeNode) At(i int) (zerialize.Reader, error) {
	if !n.isArray || i < 0 || i >= len(n.elems) {
		return nil, fmt.Errorf("fakeNode: index out of range")
	}
	return n.elems[i], nil
}
func (n fakeNode) String() string { return "fakeNode" }

func TestZeroCopyViewOverZeraBlob(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0} // four int32 little-endian
	doc := build.Vec(int64(tensor.DTypeInt32), build.Vec(uint64(4)), raw)

	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)

	view, err := tensor.Read[int32](r)
	require.NoError(t, err)
	require.Equal(t, []uint64{4}, view.Shape)
	require.Equal(t, []int32{1, 2, 3, 4}, view.Data)
	require.True(t, view.Info.ZeroCopy)
	require.Equal(t, tensor.Ok, view.Info.Reason)
}

func TestOwningCopyOverJSONBlob(t *testing.T) {
	raw := []byte{5, 0, 0, 0, 6, 0, 0, 0} // two int32
	doc := build.Vec(int64(tensor.DTypeInt32), build.Vec(uint64(2)), raw)

	w := json.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := json.NewReader(buf.Bytes())
	require.NoError(t, err)

	view, err := tensor.Read[int32](r)
	require.NoError(t, err)
	require.Equal(t, []int32{5, 6}, view.Data)
	require.False(t, view.Info.ZeroCopy)
	require.Equal(t, tensor.NotSpanBacked, view.Info.Reason)
}

func TestTensorMapFormAcceptedAlongsideArrayForm(t *testing.T) {
	raw := []byte{7, 0, 0, 0}
	doc := build.Map(
		build.Field{Key: tensor.DTypeKey, Val: int64(tensor.DTypeInt32)},
		build.Field{Key: tensor.ShapeKey, Val: build.Vec(uint64(1))},
		build.Field{Key: tensor.DataKey, Val: raw},
	)

	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)

	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)

	view, err := tensor.Read[int32](r)
	require.NoError(t, err)
	require.Equal(t, []int32{7}, view.Data)
}

func TestDtypeMismatchRejected(t *testing.T) {
	doc := build.Vec(int64(tensor.DTypeFloat32), build.Vec(uint64(1)), []byte{0, 0, 0, 0})
	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)
	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)

	_, err = tensor.Read[int32](r)
	require.Error(t, err)
}

func TestMisalignedBorrowedBlobIsCopied(t *testing.T) {
	backing := make([]byte, 17)
	binary.LittleEndian.PutUint32(backing[1:5], 1)
	binary.LittleEndian.PutUint32(backing[5:9], 2)
	binary.LittleEndian.PutUint32(backing[9:13], 3)
	binary.LittleEndian.PutUint32(backing[13:17], 4)
	shifted := backing[1:17] // one byte off whatever alignment backing's array got

	root := fakeNode{isArray: true, elems: []fakeNode{
		fakeInt(uint64(tensor.DTypeInt32)),
		{isArray: true, elems: []fakeNode{fakeInt(4)}},
		{isBlob: true, blob: zerialize.Blob{Bytes: shifted, Owning: false}},
	}}

	view, err := tensor.Read[int32](root)
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3, 4}, view.Data)
	require.False(t, view.Info.ZeroCopy)
	require.Equal(t, tensor.Misaligned, view.Info.Reason)
}

func TestZeroDimensionYieldsEmptyView(t *testing.T) {
	doc := build.Vec(int64(tensor.DTypeInt32), build.Vec(uint64(0)), []byte{})
	w := zera.NewWriter()
	require.NoError(t, doc(w))
	buf, err := w.Finish()
	require.NoError(t, err)
	r, err := zera.NewReader(buf.Bytes())
	require.NoError(t, err)

	view, err := tensor.Read[int32](r)
	require.NoError(t, err)
	require.Nil(t, view.Data)
	require.True(t, view.Info.ZeroCopy)
}
