package batch

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/ValentinKolb/rKV/lib/resp"
)

// ParseFrame builds the frame at the start of data and returns it together with
// the number of bytes it occupies. data is expected to hold a whole frame, as
// reported by ParseFrameLength. Every failure wraps resp.ErrMalformed.
func ParseFrame(data []byte) (resp.Frame, int, error) {
	return parse(data, 0, 0)
}

func parse(data []byte, pos, depth int) (resp.Frame, int, error) {
	if pos >= len(data) {
		return nil, 0, malformed("unexpected end of input at %d", pos)
	}

	switch prefix := data[pos]; prefix {
	case resp.TypeSimpleString:
		text, next, err := parseLine(data, pos)
		return resp.SimpleString(text), next, err

	case resp.TypeError:
		text, next, err := parseLine(data, pos)
		return resp.SimpleError(text), next, err

	case resp.TypeInteger:
		text, next, err := parseLine(data, pos)
		if err != nil {
			return nil, 0, err
		}
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, 0, malformed("invalid integer %q", text)
		}
		return resp.Integer(i), next, nil

	case resp.TypeDouble:
		text, next, err := parseLine(data, pos)
		if err != nil {
			return nil, 0, err
		}
		if !resp.ValidDouble([]byte(text)) {
			return nil, 0, malformed("invalid double %q", text)
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, 0, malformed("invalid double %q", text)
		}
		return resp.Double(f), next, nil

	case resp.TypeNull:
		next, ok := literal(data, pos, "_\r\n")
		if !ok {
			return nil, 0, malformed("invalid null")
		}
		return resp.Null{}, next, nil

	case resp.TypeBoolean:
		if next, ok := literal(data, pos, "#t\r\n"); ok {
			return resp.Boolean(true), next, nil
		}
		if next, ok := literal(data, pos, "#f\r\n"); ok {
			return resp.Boolean(false), next, nil
		}
		return nil, 0, malformed("invalid boolean")

	case resp.TypeBulkString:
		next, n, ok := header(data, pos)
		if !ok {
			return nil, 0, malformed("invalid bulk string header")
		}
		if n == -1 {
			return resp.BulkString(nil), next, nil
		}
		end := next + n
		if end+2 > len(data) || data[end] != '\r' || data[end+1] != '\n' {
			return nil, 0, malformed("bulk string not terminated by CRLF")
		}
		payload := make([]byte, n)
		copy(payload, data[next:end])
		return resp.BulkString(payload), end + 2, nil

	case resp.TypeArray, resp.TypeSet:
		next, n, ok := header(data, pos)
		if !ok {
			return nil, 0, malformed("invalid %q header", prefix)
		}
		if n == -1 && prefix == resp.TypeArray {
			return resp.Array(nil), next, nil
		}
		if n < 0 || n > resp.MaxAggregateLength {
			return nil, 0, malformed("invalid %q length %d", prefix, n)
		}
		if depth >= resp.MaxNestingDepth {
			return nil, 0, malformed("nesting deeper than %d", resp.MaxNestingDepth)
		}
		frames := make([]resp.Frame, 0, n)
		for i := 0; i < n; i++ {
			var f resp.Frame
			var err error
			if f, next, err = parse(data, next, depth+1); err != nil {
				return nil, 0, err
			}
			frames = append(frames, f)
		}
		if prefix == resp.TypeSet {
			return resp.Set(frames), next, nil
		}
		return resp.Array(frames), next, nil

	case resp.TypeMap:
		next, n, ok := header(data, pos)
		if !ok {
			return nil, 0, malformed("invalid map header")
		}
		if n < 0 || n > resp.MaxAggregateLength {
			return nil, 0, malformed("invalid map length %d", n)
		}
		if depth >= resp.MaxNestingDepth {
			return nil, 0, malformed("nesting deeper than %d", resp.MaxNestingDepth)
		}
		m := make(resp.Map, n)
		for i := 0; i < n; i++ {
			if next >= len(data) || data[next] != resp.TypeSimpleString {
				return nil, 0, malformed("map key must be a simple string")
			}
			key, afterKey, err := parseLine(data, next)
			if err != nil {
				return nil, 0, err
			}
			var value resp.Frame
			if value, next, err = parse(data, afterKey, depth+1); err != nil {
				return nil, 0, err
			}
			m[key] = value
		}
		return m, next, nil

	default:
		return nil, 0, malformed("unknown type prefix %q", prefix)
	}
}

// parseLine returns the text of a "<prefix><text>\r\n" line.
func parseLine(data []byte, pos int) (string, int, error) {
	end := lineEnd(data, pos)
	if end < 0 {
		return "", 0, malformed("line not terminated by CRLF")
	}
	text := data[pos+1 : end]
	if !utf8.Valid(text) {
		return "", 0, malformed("line is not valid UTF-8")
	}
	return string(text), end + 2, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", resp.ErrMalformed, fmt.Sprintf(format, args...))
}
