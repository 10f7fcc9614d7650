// Package zera implements the ZERA v1 wire format: a 20-byte fixed header,
// a variable-size envelope of structural ValueRef16 records, and a
// variable-size 16-byte-aligned arena holding bulk bytes. All child access
// is O(1) for arrays and a linear key scan for maps; nothing beyond the
// header is validated until it's actually read.
package zera

import "github.com/mrayva/zerialize"

// Protocol bundles this codec's constructors for generic code (the
// translator, cross-codec tests) that wants to work with "a codec" at
// runtime rather than the concrete zera types.
var Protocol = zerialize.Protocol{
	Name:      "zera",
	NewReader: NewReader,
	NewWriter: func() zerialize.RootWriter { return NewWriter() },
}
