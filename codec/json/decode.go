package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/mrayva/zerialize/zerr"
)

type kind int

const (
	kNil kind = iota
	kBool
	kInt
	kFloat
	kString
	kBlob
	kArray
	kMap
)

// value is an eagerly-parsed JSON subtree. Unlike the other codecs' lazy
// offset-based nodes, JSON's text format gives no cheap way to skip a
// value without parsing it, so decode builds the whole tree once up
// front and readers walk it directly.
type value struct {
	kind kind

	boolV bool

	ival         int64
	uval         uint64
	unsignedOnly bool // true when the number only fits in a uint64
	floatV       float64

	str  string
	blob []byte

	arr []value

	keys []string
	vals []value
}

// decode parses the entire document and recognizes the ["~b","<base64>","base64"]
// blob envelope on any three-element array.
func decode(b []byte) (value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return value{}, err
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, zerr.Deserf("json", "read token: %v", err)
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (value, error) {
	switch t := tok.(type) {
	case nil:
		return value{kind: kNil}, nil
	case bool:
		return value{kind: kBool, boolV: t}, nil
	case json.Number:
		return parseNumber(t)
	case string:
		return value{kind: kString, str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			return parseArray(dec)
		case '{':
			return parseObject(dec)
		default:
			return value{}, zerr.Deserf("json", "unexpected closing delimiter %q", t)
		}
	default:
		return value{}, zerr.Deserf("json", "unrecognized token type %T", tok)
	}
}

func parseNumber(n json.Number) (value, error) {
	s := string(n)
	if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value{kind: kInt, ival: iv, uval: uint64(iv)}, nil
	}
	if uv, err := strconv.ParseUint(s, 10, 64); err == nil {
		return value{kind: kInt, uval: uv, unsignedOnly: true}, nil
	}
	fv, err := n.Float64()
	if err != nil {
		return value{}, zerr.Deserf("json", "number %q: %v", s, err)
	}
	return value{kind: kFloat, floatV: fv}, nil
}

func parseArray(dec *json.Decoder) (value, error) {
	var elems []value
	for dec.More() {
		e, err := parseValue(dec)
		if err != nil {
			return value{}, err
		}
		elems = append(elems, e)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return value{}, zerr.Deserf("json", "read array close: %v", err)
	}
	if blob, ok := asBlobEnvelope(elems); ok {
		return value{kind: kBlob, blob: blob}, nil
	}
	return value{kind: kArray, arr: elems}, nil
}

func asBlobEnvelope(elems []value) ([]byte, bool) {
	if len(elems) != 3 {
		return nil, false
	}
	if elems[0].kind != kString || elems[0].str != "~b" {
		return nil, false
	}
	if elems[1].kind != kString {
		return nil, false
	}
	if elems[2].kind != kString || elems[2].str != "base64" {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(elems[1].str)
	if err != nil {
		return nil, false
	}
	return data, true
}

func parseObject(dec *json.Decoder) (value, error) {
	var keys []string
	var vals []value
	for dec.More() {
		ktok, err := dec.Token()
		if err != nil {
			return value{}, zerr.Deserf("json", "read object key: %v", err)
		}
		key, ok := ktok.(string)
		if !ok {
			return value{}, zerr.Deserf("json", "object key is not a string: %v", ktok)
		}
		v, err := parseValue(dec)
		if err != nil {
			return value{}, err
		}
		keys = append(keys, key)
		vals = append(vals, v)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return value{}, zerr.Deserf("json", "read object close: %v", err)
	}
	return value{kind: kMap, keys: keys, vals: vals}, nil
}
