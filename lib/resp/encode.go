package resp

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	// bufCap is the initial capacity used by Encode
	bufCap = 64

	// doubles outside [minPlainDouble, maxPlainDouble] use exponential notation
	minPlainDouble = 1e-8
	maxPlainDouble = 1e8
)

var (
	crlf            = []byte("\r\n")
	nullBulkBytes   = []byte("$-1\r\n")
	nullArrayBytes  = []byte("*-1\r\n")
	nullBytes       = []byte("_\r\n")
	trueBytes       = []byte("#t\r\n")
	falseBytes      = []byte("#f\r\n")
	doubleInfBytes  = []byte("inf")
	doubleNInfBytes = []byte("-inf")
	doubleNaNBytes  = []byte("nan")
)

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// Encode returns the wire encoding of f. Encoding never fails: every frame
// value has exactly one encoding.
func Encode(f Frame) []byte {
	return f.appendTo(make([]byte, 0, bufCap))
}

// AppendFrame appends the wire encoding of f to dst and returns the extended
// slice. It is used to batch several replies into a single write.
func AppendFrame(dst []byte, f Frame) []byte {
	return f.appendTo(dst)
}

// --------------------------------------------------------------------------
// Per Variant Encoding
// --------------------------------------------------------------------------

// - simple string: "+<text>\r\n"
func (s SimpleString) appendTo(dst []byte) []byte {
	return appendLine(dst, TypeSimpleString, string(s))
}

// - error: "-<text>\r\n"
func (e SimpleError) appendTo(dst []byte) []byte {
	return appendLine(dst, TypeError, string(e))
}

// - integer: ":[<+|->]<value>\r\n"
func (i Integer) appendTo(dst []byte) []byte {
	return appendHeader(dst, TypeInteger, int64(i))
}

// - bulk string: "$<length>\r\n<data>\r\n"
func (b BulkString) appendTo(dst []byte) []byte {
	if b == nil {
		return append(dst, nullBulkBytes...)
	}
	dst = appendHeader(dst, TypeBulkString, int64(len(b)))
	dst = append(dst, b...)
	return append(dst, crlf...)
}

// - array: "*<number-of-elements>\r\n<element-1>...<element-n>"
func (a Array) appendTo(dst []byte) []byte {
	if a == nil {
		return append(dst, nullArrayBytes...)
	}
	dst = appendHeader(dst, TypeArray, int64(len(a)))
	for _, f := range a {
		dst = f.appendTo(dst)
	}
	return dst
}

// - null: "_\r\n"
func (Null) appendTo(dst []byte) []byte {
	return append(dst, nullBytes...)
}

// - boolean: "#<t|f>\r\n"
func (b Boolean) appendTo(dst []byte) []byte {
	if b {
		return append(dst, trueBytes...)
	}
	return append(dst, falseBytes...)
}

// - double: ",[<+|->]<integral>[.<fractional>][<E|e>[sign]<exponent>]\r\n"
func (d Double) appendTo(dst []byte) []byte {
	dst = append(dst, TypeDouble)
	dst = appendDouble(dst, float64(d))
	return append(dst, crlf...)
}

// - map: "%<number-of-entries>\r\n<key-1><value-1>...<key-n><value-n>"
// keys are always written as simple strings
func (m Map) appendTo(dst []byte) []byte {
	dst = appendHeader(dst, TypeMap, int64(len(m)))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		dst = SimpleString(key).appendTo(dst)
		dst = m[key].appendTo(dst)
	}
	return dst
}

// - set: "~<number-of-elements>\r\n<element-1>...<element-n>"
func (s Set) appendTo(dst []byte) []byte {
	dst = appendHeader(dst, TypeSet, int64(len(s)))
	for _, f := range s {
		dst = f.appendTo(dst)
	}
	return dst
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// appendLine writes prefix, text and the line terminator
func appendLine(dst []byte, prefix byte, text string) []byte {
	dst = append(dst, prefix)
	dst = append(dst, text...)
	return append(dst, crlf...)
}

// appendHeader writes prefix, a decimal number and the line terminator
func appendHeader(dst []byte, prefix byte, n int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

// appendDouble formats f with an explicit sign. Magnitudes inside
// [1e-8, 1e8] use plain decimal notation, everything else uses the shortest
// exponential form without exponent padding (e.g. +1.23456e8).
func appendDouble(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, doubleNaNBytes...)
	case math.IsInf(f, 1):
		return append(dst, doubleInfBytes...)
	case math.IsInf(f, -1):
		return append(dst, doubleNInfBytes...)
	}

	if math.Signbit(f) {
		dst = append(dst, '-')
	} else {
		dst = append(dst, '+')
	}

	abs := math.Abs(f)
	if abs >= minPlainDouble && abs <= maxPlainDouble {
		return strconv.AppendFloat(dst, abs, 'f', -1, 64)
	}

	// strconv writes "1.23456e+08", the wire form is "1.23456e8"
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(abs, 'e', -1, 64), "e")
	e, _ := strconv.Atoi(exp)
	dst = append(dst, mantissa...)
	dst = append(dst, 'e')
	return strconv.AppendInt(dst, int64(e), 10)
}
