// Package cbor implements the CBOR codec (RFC 8949): a hand-written
// decoder with full indefinite-length support, and a writer that frames
// arrays and maps by hand (always definite-length, since every
// begin_array/begin_map call carries an exact count) and defers scalar
// encoding to github.com/fxamacker/cbor/v2.
package cbor

import (
	"bytes"
	"encoding/binary"

	fcbor "github.com/fxamacker/cbor/v2"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zbuffer"
	"github.com/mrayva/zerialize/zerr"
)

var Protocol = zerialize.Protocol{
	Name:      "cbor",
	NewReader: NewReader,
	NewWriter: func() zerialize.RootWriter { return NewWriter() },
}

var encMode = func() fcbor.EncMode {
	m, err := fcbor.EncOptions{}.EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

type frame struct {
	isMap      bool
	expected   int
	count      int
	pendingKey bool
}

type Writer struct {
	buf      bytes.Buffer
	stack    []frame
	rootSet  bool
	finished bool
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) checkOpen(op string) error {
	if w.finished {
		return zerr.Serf(op, "writer already finished")
	}
	return nil
}

func (w *Writer) beforeValue(op string) error {
	if err := w.checkOpen(op); err != nil {
		return err
	}
	if len(w.stack) == 0 {
		if w.rootSet {
			return zerr.Serf("cbor", "writer may emit at most one root value")
		}
		w.rootSet = true
		return nil
	}
	top := &w.stack[len(w.stack)-1]
	if top.isMap {
		if !top.pendingKey {
			return zerr.Serf("cbor", "map value without a preceding key")
		}
		top.pendingKey = false
	}
	top.count++
	return nil
}

func (w *Writer) encode(v any) error {
	b, err := encMode.Marshal(v)
	if err != nil {
		return zerr.Serf("cbor", "encode %T: %v", v, err)
	}
	_, err = w.buf.Write(b)
	return err
}

func (w *Writer) Null() error {
	if err := w.beforeValue("null"); err != nil {
		return err
	}
	return w.encode(nil)
}

func (w *Writer) Boolean(v bool) error {
	if err := w.beforeValue("boolean"); err != nil {
		return err
	}
	return w.encode(v)
}

func (w *Writer) Int64(v int64) error {
	if err := w.beforeValue("int64"); err != nil {
		return err
	}
	return w.encode(v)
}

func (w *Writer) Uint64(v uint64) error {
	if err := w.beforeValue("uint64"); err != nil {
		return err
	}
	return w.encode(v)
}

func (w *Writer) Double(v float64) error {
	if err := w.beforeValue("double"); err != nil {
		return err
	}
	return w.encode(v)
}

func (w *Writer) String(s string) error {
	if err := w.beforeValue("string"); err != nil {
		return err
	}
	return w.encode(s)
}

func (w *Writer) Binary(b []byte) error {
	if err := w.beforeValue("binary"); err != nil {
		return err
	}
	return w.encode(b)
}

func (w *Writer) Key(s string) error {
	if err := w.checkOpen("key"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("cbor", "key() outside a map frame")
	}
	top := &w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("cbor", "two consecutive keys without an intervening value")
	}
	top.pendingKey = true
	return w.encode(s)
}

// writeHeader emits a definite-length major-type header with the given count.
func writeHeader(buf *bytes.Buffer, major byte, n int) error {
	u := uint64(n)
	switch {
	case u < 24:
		return buf.WriteByte(major<<5 | byte(u))
	case u <= 0xff:
		if err := buf.WriteByte(major<<5 | 24); err != nil {
			return err
		}
		return buf.WriteByte(byte(u))
	case u <= 0xffff:
		if err := buf.WriteByte(major<<5 | 25); err != nil {
			return err
		}
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(u))
		_, err := buf.Write(tmp[:])
		return err
	case u <= 0xffffffff:
		if err := buf.WriteByte(major<<5 | 26); err != nil {
			return err
		}
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(u))
		_, err := buf.Write(tmp[:])
		return err
	default:
		if err := buf.WriteByte(major<<5 | 27); err != nil {
			return err
		}
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], u)
		_, err := buf.Write(tmp[:])
		return err
	}
}

func (w *Writer) BeginArray(n int) error {
	if err := w.beforeValue("begin_array"); err != nil {
		return err
	}
	if err := writeHeader(&w.buf, 4, n); err != nil {
		return err
	}
	w.stack = append(w.stack, frame{isMap: false, expected: n})
	return nil
}

func (w *Writer) BeginMap(n int) error {
	if err := w.beforeValue("begin_map"); err != nil {
		return err
	}
	if err := writeHeader(&w.buf, 5, n); err != nil {
		return err
	}
	w.stack = append(w.stack, frame{isMap: true, expected: n})
	return nil
}

func (w *Writer) EndArray() error {
	if err := w.checkOpen("end_array"); err != nil {
		return err
	}
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("cbor", "end_array on a map frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if top.count != top.expected {
		return zerr.Serf("cbor", "begin_array(%d) but %d elements written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) EndMap() error {
	if err := w.checkOpen("end_map"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("cbor", "end_map on an array frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("cbor", "end_map with a dangling key")
	}
	w.stack = w.stack[:len(w.stack)-1]
	if top.count != top.expected {
		return zerr.Serf("cbor", "begin_map(%d) but %d entries written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) Finish() (zbuffer.Buffer, error) {
	if err := w.checkOpen("finish"); err != nil {
		return zbuffer.Buffer{}, err
	}
	if len(w.stack) != 0 {
		return zbuffer.Buffer{}, zerr.Serf("cbor", "finish() with %d container(s) still open", len(w.stack))
	}
	if !w.rootSet {
		if err := w.Null(); err != nil {
			return zbuffer.Buffer{}, err
		}
	}
	w.finished = true
	return zbuffer.Wrap(w.buf.Bytes()), nil
}
