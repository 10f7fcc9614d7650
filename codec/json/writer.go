// Package json implements a plain-text codec over encoding/json. Blobs
// have no native JSON representation, so they round-trip through the
// three-element envelope ["~b","<base64 data>","base64"]; a reader
// recognizes this envelope on any array of that exact shape and never
// surfaces it as an ordinary array.
package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/mrayva/zerialize"
	"github.com/mrayva/zerialize/zbuffer"
	"github.com/mrayva/zerialize/zerr"
)

var Protocol = zerialize.Protocol{
	Name:      "json",
	NewReader: NewReader,
	NewWriter: func() zerialize.RootWriter { return NewWriter() },
}

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

// beforeValue validates and accounts for one scalar or container value
// about to be written as either the root, an array element, or a map
// value (never a key, which Key handles on its own).
func (w *Writer) beforeValue(op string) error {
	if err := w.checkOpen(op); err != nil {
		return err
	}
	if len(w.stack) == 0 {
		if w.rootSet {
			return zerr.Serf("json", "writer may emit at most one root value")
		}
		w.rootSet = true
		return nil
	}
	top := &w.stack[len(w.stack)-1]
	if top.isMap {
		if !top.pendingKey {
			return zerr.Serf("json", "map value without a preceding key")
		}
		top.pendingKey = false
	} else {
		if top.count > 0 {
			w.buf.WriteByte(',')
		}
	}
	top.count++
	return nil
}

func (w *Writer) writeJSONString(s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return zerr.Serf("json", "marshal string: %v", err)
	}
	_, err = w.buf.Write(b)
	return err
}

func (w *Writer) Null() error {
	if err := w.beforeValue("null"); err != nil {
		return err
	}
	w.buf.WriteString("null")
	return nil
}

func (w *Writer) Boolean(v bool) error {
	if err := w.beforeValue("boolean"); err != nil {
		return err
	}
	if v {
		w.buf.WriteString("true")
	} else {
		w.buf.WriteString("false")
	}
	return nil
}

func (w *Writer) Int64(v int64) error {
	if err := w.beforeValue("int64"); err != nil {
		return err
	}
	w.buf.WriteString(strconv.FormatInt(v, 10))
	return nil
}

func (w *Writer) Uint64(v uint64) error {
	if err := w.beforeValue("uint64"); err != nil {
		return err
	}
	w.buf.WriteString(strconv.FormatUint(v, 10))
	return nil
}

func (w *Writer) Double(v float64) error {
	if err := w.beforeValue("double"); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return zerr.Serf("json", "double %v has no JSON representation: %v", v, err)
	}
	_, err = w.buf.Write(b)
	return err
}

func (w *Writer) String(s string) error {
	if err := w.beforeValue("string"); err != nil {
		return err
	}
	return w.writeJSONString(s)
}

func (w *Writer) Binary(b []byte) error {
	if err := w.beforeValue("binary"); err != nil {
		return err
	}
	w.buf.WriteString(`["~b",`)
	if err := w.writeJSONString(base64.StdEncoding.EncodeToString(b)); err != nil {
		return err
	}
	w.buf.WriteString(`,"base64"]`)
	return nil
}

func (w *Writer) Key(s string) error {
	if err := w.checkOpen("key"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("json", "key() outside a map frame")
	}
	top := &w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("json", "two consecutive keys without an intervening value")
	}
	if top.count > 0 {
		w.buf.WriteByte(',')
	}
	if err := w.writeJSONString(s); err != nil {
		return err
	}
	w.buf.WriteByte(':')
	top.pendingKey = true
	return nil
}

func (w *Writer) BeginArray(n int) error {
	if err := w.beforeValue("begin_array"); err != nil {
		return err
	}
	w.buf.WriteByte('[')
	w.stack = append(w.stack, frame{isMap: false, expected: n})
	return nil
}

func (w *Writer) BeginMap(n int) error {
	if err := w.beforeValue("begin_map"); err != nil {
		return err
	}
	w.buf.WriteByte('{')
	w.stack = append(w.stack, frame{isMap: true, expected: n})
	return nil
}

func (w *Writer) EndArray() error {
	if err := w.checkOpen("end_array"); err != nil {
		return err
	}
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("json", "end_array on a map frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte(']')
	if top.count != top.expected {
		return zerr.Serf("json", "begin_array(%d) but %d elements written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) EndMap() error {
	if err := w.checkOpen("end_map"); err != nil {
		return err
	}
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].isMap {
		return zerr.Serf("json", "end_map on an array frame or empty stack")
	}
	top := w.stack[len(w.stack)-1]
	if top.pendingKey {
		return zerr.Serf("json", "end_map with a dangling key")
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte('}')
	if top.count != top.expected {
		return zerr.Serf("json", "begin_map(%d) but %d entries written", top.expected, top.count)
	}
	return nil
}

func (w *Writer) Finish() (zbuffer.Buffer, error) {
	if err := w.checkOpen("finish"); err != nil {
		return zbuffer.Buffer{}, err
	}
	if len(w.stack) != 0 {
		return zbuffer.Buffer{}, zerr.Serf("json", "finish() with %d container(s) still open", len(w.stack))
	}
	if !w.rootSet {
		if err := w.Null(); err != nil {
			return zbuffer.Buffer{}, err
		}
	}
	w.finished = true
	return zbuffer.Wrap(w.buf.Bytes()), nil
}
