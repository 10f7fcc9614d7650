// Package tensor implements the zero-copy-or-copy tensor adapter: given a
// reader positioned at a tensor triple (dtype code, shape, blob), it
// produces a typed view that aliases the source buffer when the blob is
// borrowed and properly aligned, and otherwise allocates an owning copy,
// always reporting which path was taken and why. The alignment check is
// the same unsafe.Pointer/reflect technique the teacher's
// checkSliceAlignment/getAlignment pair uses for its own zero-copy slice
// aliasing.
package tensor

import (
	"fmt"
	"unsafe"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zerr"
)

// Element is the set of Go types that can back a tensor view. float16 is
// excluded: Go has no native half-float arithmetic type, so float16 data
// is only reachable through the raw-blob accessor plus a caller-supplied
// bit conversion, never through View[T].
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// Dtype codes, fixed and bit-exact with the dtype table this spec was
// distilled from (original_source tensor_dtype_index).
const (
	DTypeInt8       = 0
	DTypeInt16      = 1
	DTypeInt32      = 2
	DTypeInt64      = 3
	DTypeUint8      = 4
	DTypeUint16     = 5
	DTypeUint32     = 6
	DTypeUint64     = 7
	DTypeFloat32    = 10
	DTypeFloat64    = 11
	DTypeComplex64  = 12
	DTypeComplex128 = 13
	DTypeFloat16    = 14
)

const (
	ShapeKey = "shape"
	DTypeKey = "dtype"
	DataKey  = "data"
)

// ViewReason is the closed set of reasons a view is or isn't zero-copy.
type ViewReason int

const (
	Ok ViewReason = iota
	NotSpanBacked
	Misaligned
)

func (r ViewReason) String() string {
	switch r {
	case Ok:
		return "Ok"
	case NotSpanBacked:
		return "NotSpanBacked"
	case Misaligned:
		return "Misaligned"
	default:
		return "Unknown"
	}
}

// ViewInfo records whether a view ended up zero-copy and why, so tests and
// callers can verify the zero-copy path was (or wasn't) taken.
type ViewInfo struct {
	ZeroCopy          bool
	Reason            ViewReason
	RequiredAlignment uintptr
	Address           uintptr
	ByteSize          uintptr
}

// View is a tensor accessor over shape+data, carrying the ViewInfo that
// explains how Data came to be.
type View[T Element] struct {
	Shape []uint64
	Data  []T
	Info  ViewInfo
}

func elementSize[T Element]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

func dtypeCode[T Element]() (int, error) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return DTypeInt8, nil
	case int16:
		return DTypeInt16, nil
	case int32:
		return DTypeInt32, nil
	case int64:
		return DTypeInt64, nil
	case uint8:
		return DTypeUint8, nil
	case uint16:
		return DTypeUint16, nil
	case uint32:
		return DTypeUint32, nil
	case uint64:
		return DTypeUint64, nil
	case float32:
		return DTypeFloat32, nil
	case float64:
		return DTypeFloat64, nil
	case complex64:
		return DTypeComplex64, nil
	case complex128:
		return DTypeComplex128, nil
	default:
		return 0, fmt.Errorf("tensor: unsupported element type %T", zero)
	}
}

// isTensorMap reports whether v looks like the {dtype,shape,data} map form.
func isTensorMap(v zerialize.Reader) bool {
	return v.IsMap() && v.Contains(DTypeKey) && v.Contains(ShapeKey) && v.Contains(DataKey)
}

func fields(v zerialize.Reader) (dtype zerialize.Reader, shape zerialize.Reader, data zerialize.Reader, err error) {
	if isTensorMap(v) {
		if dtype, err = v.Index(DTypeKey); err != nil {
			return
		}
		if shape, err = v.Index(ShapeKey); err != nil {
			return
		}
		if data, err = v.Index(DataKey); err != nil {
			return
		}
		return
	}
	if v.IsArray() {
		n, e := v.ArraySize()
		if e != nil {
			err = e
			return
		}
		if n != 3 {
			err = zerr.Deserf("tensor", "tensor array form must have 3 elements, got %d", n)
			return
		}
		if dtype, err = v.At(0); err != nil {
			return
		}
		if shape, err = v.At(1); err != nil {
			return
		}
		if data, err = v.At(2); err != nil {
			return
		}
		return
	}
	err = zerr.Deserf("tensor", "value is not a tensor triple")
	return
}

func readShape(v zerialize.Reader) ([]uint64, error) {
	n, err := v.ArraySize()
	if err != nil {
		return nil, err
	}
	shape := make([]uint64, n)
	for i := 0; i < n; i++ {
		el, err := v.At(i)
		if err != nil {
			return nil, err
		}
		dim, err := el.AsUint64()
		if err != nil {
			return nil, zerr.Deserf("tensor", "shape dimension %d: %v", i, err)
		}
		shape[i] = dim
	}
	return shape, nil
}

// elementCount computes prod(shape), returning an error on overflow. A zero
// dimension is valid and yields 0 elements (matching the original's
// checked_element_count).
func elementCount(shape []uint64) (uint64, error) {
	var count uint64 = 1
	for _, d := range shape {
		if d == 0 {
			return 0, nil
		}
		next := count * d
		if count != 0 && next/d != count {
			return 0, zerr.Deserf("tensor", "shape element count overflows uint64")
		}
		count = next
	}
	return count, nil
}

// Read parses the tensor triple at v and returns a typed view: zero-copy
// when the blob is a borrowed, properly-aligned span; otherwise an owning,
// freshly allocated, element-aligned copy.
func Read[T Element](v zerialize.Reader) (*View[T], error) {
	dtypeR, shapeR, dataR, err := fields(v)
	if err != nil {
		return nil, err
	}

	wantDtype, err := dtypeCode[T]()
	if err != nil {
		return nil, err
	}
	gotDtype, err := dtypeR.AsInt64()
	if err != nil {
		return nil, zerr.Deserf("tensor", "dtype field: %v", err)
	}
	if int(gotDtype) != wantDtype {
		return nil, zerr.Deserf("tensor", "dtype mismatch: want %d got %d", wantDtype, gotDtype)
	}

	shape, err := readShape(shapeR)
	if err != nil {
		return nil, err
	}
	count, err := elementCount(shape)
	if err != nil {
		return nil, err
	}

	elemSize := elementSize[T]()
	expectBytes := count * uint64(elemSize)

	blob, err := dataR.AsBlob()
	if err != nil {
		return nil, zerr.Deserf("tensor", "data field: %v", err)
	}
	if uint64(len(blob.Bytes)) != expectBytes {
		return nil, zerr.Deserf("tensor", "data length %d does not match expected %d bytes", len(blob.Bytes), expectBytes)
	}

	info := ViewInfo{
		RequiredAlignment: elemSize,
		ByteSize:          uintptr(len(blob.Bytes)),
	}

	if count == 0 {
		if blob.Owning {
			info.Reason = NotSpanBacked
			info.ZeroCopy = false
		} else {
			info.Reason = Ok
			info.ZeroCopy = true
		}
		return &View[T]{Shape: shape, Data: nil, Info: info}, nil
	}

	if blob.Owning {
		data := copyAligned[T](blob.Bytes, int(count))
		info.Reason = NotSpanBacked
		info.ZeroCopy = false
		info.Address = uintptr(unsafe.Pointer(&data[0]))
		return &View[T]{Shape: shape, Data: data, Info: info}, nil
	}

	addr := uintptr(unsafe.Pointer(&blob.Bytes[0]))
	info.Address = addr
	if addr%elemSize == 0 {
		data := unsafe.Slice((*T)(unsafe.Pointer(&blob.Bytes[0])), count)
		info.Reason = Ok
		info.ZeroCopy = true
		return &View[T]{Shape: shape, Data: data, Info: info}, nil
	}

	data := copyAligned[T](blob.Bytes, int(count))
	info.Reason = Misaligned
	info.ZeroCopy = false
	info.Address = uintptr(unsafe.Pointer(&data[0]))
	return &View[T]{Shape: shape, Data: data, Info: info}, nil
}

// copyAligned allocates a fresh, naturally aligned []T and copies n
// elements' worth of bytes from src into it.
func copyAligned[T Element](src []byte, n int) []T {
	out := make([]T, n)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(src))
	copy(dst, src)
	return out
}
