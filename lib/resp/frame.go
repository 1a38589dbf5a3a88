package resp

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Type Prefixes
// --------------------------------------------------------------------------

// RESP type prefixes. Every frame starts with exactly one of these bytes.
const (
	TypeSimpleString byte = '+'
	TypeError        byte = '-'
	TypeInteger      byte = ':'
	TypeBulkString   byte = '$'
	TypeArray        byte = '*'
	TypeNull         byte = '_'
	TypeBoolean      byte = '#'
	TypeDouble       byte = ','
	TypeMap          byte = '%'
	TypeSet          byte = '~'
)

// --------------------------------------------------------------------------
// Frame Interface
// --------------------------------------------------------------------------

// Frame is a single RESP value. The set of implementations is closed: only the
// types declared in this package satisfy it.
type Frame interface {
	// Type returns the prefix byte of the frame on the wire.
	Type() byte

	// appendTo appends the wire encoding of the frame to dst.
	appendTo(dst []byte) []byte
}

// --------------------------------------------------------------------------
// Frame Variants
// --------------------------------------------------------------------------

// SimpleString is a CRLF-free line of text ("+OK\r\n").
type SimpleString string

// SimpleError is a CRLF-free error line ("-ERR unknown\r\n").
type SimpleError string

// Integer is a signed 64-bit integer (":42\r\n").
type Integer int64

// BulkString is a length-prefixed binary string. A nil BulkString is the null
// bulk string ("$-1\r\n"), a non-nil empty one encodes as "$0\r\n\r\n".
type BulkString []byte

// Array is an ordered sequence of frames. A nil Array is the null array
// ("*-1\r\n"), a non-nil empty one encodes as "*0\r\n".
type Array []Frame

// Null is the RESP3 null value ("_\r\n").
type Null struct{}

// Boolean is the RESP3 boolean ("#t\r\n" / "#f\r\n").
type Boolean bool

// Double is the RESP3 double (",+1.5\r\n").
type Double float64

// Map maps text keys to frames. Keys are written as simple strings in
// ascending order so equal maps always encode to the same bytes.
type Map map[string]Frame

// Set is a sequence of frames that the protocol treats as unordered.
type Set []Frame

func (SimpleString) Type() byte { return TypeSimpleString }
func (SimpleError) Type() byte  { return TypeError }
func (Integer) Type() byte      { return TypeInteger }
func (BulkString) Type() byte   { return TypeBulkString }
func (Array) Type() byte        { return TypeArray }
func (Null) Type() byte         { return TypeNull }
func (Boolean) Type() byte      { return TypeBoolean }
func (Double) Type() byte       { return TypeDouble }
func (Map) Type() byte          { return TypeMap }
func (Set) Type() byte          { return TypeSet }

// --------------------------------------------------------------------------
// Shared Values and Constructors
// --------------------------------------------------------------------------

// OK is the reply of every write command.
const OK = SimpleString("OK")

// Type returns the prefix byte of f.
func Type(f Frame) byte { return f.Type() }

// NewSimpleString returns a simple string frame. s must not contain CR or LF.
func NewSimpleString(s string) SimpleString { return SimpleString(s) }

// NewBulkString returns a non-null bulk string holding a copy of s.
func NewBulkString(s string) BulkString {
	b := make([]byte, len(s))
	copy(b, s)
	return b
}

// NewArray returns a non-null array holding the given frames.
func NewArray(frames ...Frame) Array {
	a := make(Array, len(frames))
	copy(a, frames)
	return a
}

// NewError formats an error frame.
func NewError(format string, args ...any) SimpleError {
	return SimpleError(fmt.Sprintf(format, args...))
}

// IsNull reports whether b is the null bulk string.
func (b BulkString) IsNull() bool { return b == nil }

// String returns the payload as text.
func (b BulkString) String() string { return string(b) }

// IsNull reports whether a is the null array.
func (a Array) IsNull() bool { return a == nil }
