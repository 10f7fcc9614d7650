// Package msgpack implements the MessagePack codec: a hand-written
// skip/scan reader (no library exposes a zero-copy, lazy, random-access
// MessagePack reader) and a writer built on top of
// github.com/vmihailenco/msgpack/v5's streaming Encoder, whose
// EncodeArrayLen/EncodeMapLen already require an exact count up front —
// exactly matching begin_array(n)/begin_map(n)'s contract — so end_array
// and end_map only need to validate the count actually written.
package msgpack

import (
	"bytes"

	vmsgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zbuffer"
	"github.com/mrayva/zerialize/zerr"
)

var Protocol = zerialize.Protocol{
	Name:      "msgpack",
	NewReader: NewReader,
	NewWriter: func() zerialize.RootWriter { return NewWriter() },
}

type frame struct {
	isMap    bool
	expected int
	count    int
	pendingKey bool
}

type Writer struct {
	buf      bytes.Buffer
	enc      *vmsgpack.Encoder
	stack    []frame
	rootSet  bool
	finished bool
}

func NewWriter() *Writer {
	w := &Writer{}
	w.enc = vmsgpack.NewEncoder(&w.buf)
	return w
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
			return zerr.Serf("msgpack", "writer may emit at most one root value")
		}
		w.rootSet = true
		return nil
	}
	top := &w.stack[len(w.stack)-1]
	if top.isMap {
		if !top.pendingKey {
			return zerr.Serf("msgpack", "map value without a preceding key")
		}
		top.pendingKey = false
	}
	top.count++
	return nil
}

func (w *Writer) Null() error {
	if err := w.beforeValue("null"); err != nil {
		return err
	}
	return w.enc.EncodeNil()
}

func (w *Writer) Boolean(v bool) error {
	if err := w.beforeValue("boolean"); err != nil {
		return err
	}
	return w.enc.EncodeBool(v)
}

func (w *Writer) Int64(v int64) error {
	if err := w.beforeValue("int64"); err != nil {
		return err
	}
	return w.enc.EncodeInt64(v)
}

func (w *Writer) Uint64(v uint64) error {
	if err := w.beforeValue("uint64"); err != nil {
		return err
	}
	return w.enc.EncodeUint64(v)
}

func (w *Writer) Double(v float64) error {
	if err := w.beforeValue("double"); err != nil {
		return err
	}
	return w.enc.EncodeFloat64(v)
}

func (w *Writer) String(s string) error {
	if err := w.beforeValue("string"); err != nil {
		return err
	}
	return w.enc.EncodeString(s)
}

func (w *Writer) Binary(b []byte) error {
	if err := w.beforeValue("binary"); err != nil {
		return err
	}
	return w.enc.EncodeBytes(b)
}

func (w *Writer) Key(s string) error {
	if err := w.checkOpen("key"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("msgpack", "key() outside a map frame")
	}
	top := &w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("msgpack", "two consecutive keys without an intervening value")
	}
	top.pendingKey = true
	return w.enc.EncodeString(s)
}

func (w *Writer) BeginArray(n int) error {
	if err := w.beforeValue("begin_array"); err != nil {
		return err
	}
	if err := w.enc.EncodeArrayLen(n); err != nil {
		return err
	}
	w.stack = append(w.stack, frame{isMap: false, expected: n})
	return nil
}

func (w *Writer) BeginMap(n int) error {
	if err := w.beforeValue("begin_map"); err != nil {
		return err
	}
	if err := w.enc.EncodeMapLen(n); err != nil {
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
		return zerr.Serf("msgpack", "end_array on a map frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if top.count != top.expected {
		return zerr.Serf("msgpack", "begin_array(%d) but %d elements written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) EndMap() error {
	if err := w.checkOpen("end_map"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("msgpack", "end_map on an array frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("msgpack", "end_map with a dangling key")
	}
	w.stack = w.stack[:len(w.stack)-1]
	if top.count != top.expected {
		return zerr.Serf("msgpack", "begin_map(%d) but %d entries written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) Finish() (zbuffer.Buffer, error) {
	if err := w.checkOpen("finish"); err != nil {
		return zbuffer.Buffer{}, err
	}
	if len(w.stack) != 0 {
		return zbuffer.Buffer{}, zerr.Serf("msgpack", "finish() with %d container(s) still open", len(w.stack))
	}
	if !w.rootSet {
		if err := w.Null(); err != nil {
			return zbuffer.Buffer{}, err
		}
	}
	w.finished = true
	return zbuffer.Wrap(w.buf.Bytes()), nil
}
