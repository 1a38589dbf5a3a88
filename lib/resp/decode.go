package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

const (
	crlfLen = 2

	// MaxBulkLength is the largest accepted bulk string payload (512 MiB).
	MaxBulkLength = 512 * 1024 * 1024

	// MaxAggregateLength is the largest accepted element count of an array,
	// map or set.
	MaxAggregateLength = 1_000_000

	// MaxNestingDepth is the deepest accepted nesting of arrays, maps and sets.
	MaxNestingDepth = 512
)

var (
	// ErrNotComplete is returned when the buffered bytes hold only a prefix of
	// a frame. It is not fatal: read more bytes and try again.
	ErrNotComplete = errors.New("resp: frame not complete")

	// ErrMalformed is returned when the buffered bytes can never become a
	// valid frame. It is fatal for the stream it was read from.
	ErrMalformed = errors.New("resp: malformed frame")
)

// DecodeFunc decodes one frame from the front of a buffer. Implementations
// must return ErrNotComplete and leave the buffer untouched when it holds only
// part of a frame. Decode and batch.Decode both satisfy it.
type DecodeFunc func(buf *bytes.Buffer) (Frame, error)

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// Decode decodes exactly one frame from the front of buf.
//
// On success the frame's bytes are consumed and bytes following the frame stay
// in buf. If buf holds only part of a frame ErrNotComplete is returned and buf
// is left untouched. Any other error wraps ErrMalformed.
func Decode(buf *bytes.Buffer) (Frame, error) {
	return decode(buf, 0)
}

func decode(buf *bytes.Buffer, depth int) (Frame, error) {
	data := buf.Bytes()
	if len(data) == 0 {
		return nil, ErrNotComplete
	}

	switch data[0] {
	case TypeSimpleString:
		return decodeSimpleString(buf)
	case TypeError:
		return decodeSimpleError(buf)
	case TypeInteger:
		return decodeInteger(buf)
	case TypeBulkString:
		return decodeBulkString(buf)
	case TypeArray:
		return decodeArray(buf, depth)
	case TypeNull:
		return decodeNull(buf)
	case TypeBoolean:
		return decodeBoolean(buf)
	case TypeDouble:
		return decodeDouble(buf)
	case TypeMap:
		return decodeMap(buf, depth)
	case TypeSet:
		return decodeSet(buf, depth)
	default:
		return nil, fmt.Errorf("%w: unknown type prefix %q", ErrMalformed, data[0])
	}
}

// ExpectLength reports the total byte length of the frame starting at data[0]
// without decoding it. For bulk strings the header alone determines the length,
// so the result may exceed len(data). For aggregates every element is probed and
// ErrNotComplete is returned as soon as one of them is not fully buffered.
// Integers and doubles are validated, so a malformed number is reported here
// rather than when decoding.
func ExpectLength(data []byte) (int, error) {
	return expectLength(data, 0)
}

func expectLength(data []byte, depth int) (int, error) {
	if len(data) == 0 {
		return 0, ErrNotComplete
	}

	switch prefix := data[0]; prefix {
	case TypeSimpleString, TypeError:
		end, err := findLineEnd(data, prefix)
		if err != nil {
			return 0, err
		}
		return end + crlfLen, nil

	case TypeInteger:
		end, _, err := parseInteger(data)
		if err != nil {
			return 0, err
		}
		return end + crlfLen, nil

	case TypeDouble:
		end, _, err := parseDouble(data)
		if err != nil {
			return 0, err
		}
		return end + crlfLen, nil

	case TypeNull:
		if err := matchLiteral(data, nullBytes); err != nil {
			return 0, err
		}
		return len(nullBytes), nil

	case TypeBoolean:
		if err := matchBoolean(data); err != nil {
			return 0, err
		}
		return len(trueBytes), nil

	case TypeBulkString:
		end, n, err := parseLength(data, prefix)
		if err != nil {
			return 0, err
		}
		if n == -1 {
			return end + crlfLen, nil
		}
		if n < 0 || n > MaxBulkLength {
			return 0, fmt.Errorf("%w: invalid bulk string length %d", ErrMalformed, n)
		}
		total := end + crlfLen + n + crlfLen
		if len(data) >= total && !bytes.Equal(data[total-crlfLen:total], crlf) {
			return 0, fmt.Errorf("%w: bulk string not terminated by CRLF", ErrMalformed)
		}
		return total, nil

	case TypeArray, TypeMap, TypeSet:
		end, n, err := parseLength(data, prefix)
		if err != nil {
			return 0, err
		}
		if n == -1 && prefix == TypeArray {
			return end + crlfLen, nil
		}
		if err := checkAggregateLength(prefix, n); err != nil {
			return 0, err
		}
		if depth >= MaxNestingDepth {
			return 0, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxNestingDepth)
		}
		return calcTotalLength(data, end, n, prefix, depth)

	default:
		return 0, fmt.Errorf("%w: unknown type prefix %q", ErrMalformed, prefix)
	}
}

// --------------------------------------------------------------------------
// Per Variant Decoding
// --------------------------------------------------------------------------

func decodeSimpleString(buf *bytes.Buffer) (Frame, error) {
	text, err := decodeLine(buf, TypeSimpleString)
	if err != nil {
		return nil, err
	}
	return SimpleString(text), nil
}

func decodeSimpleError(buf *bytes.Buffer) (Frame, error) {
	text, err := decodeLine(buf, TypeError)
	if err != nil {
		return nil, err
	}
	return SimpleError(text), nil
}

func decodeInteger(buf *bytes.Buffer) (Frame, error) {
	end, i, err := parseInteger(buf.Bytes())
	if err != nil {
		return nil, err
	}
	buf.Next(end + crlfLen)
	return Integer(i), nil
}

func decodeDouble(buf *bytes.Buffer) (Frame, error) {
	end, f, err := parseDouble(buf.Bytes())
	if err != nil {
		return nil, err
	}
	buf.Next(end + crlfLen)
	return Double(f), nil
}

func decodeNull(buf *bytes.Buffer) (Frame, error) {
	if err := matchLiteral(buf.Bytes(), nullBytes); err != nil {
		return nil, err
	}
	buf.Next(len(nullBytes))
	return Null{}, nil
}

func decodeBoolean(buf *bytes.Buffer) (Frame, error) {
	data := buf.Bytes()
	if err := matchBoolean(data); err != nil {
		return nil, err
	}
	b := data[1] == 't'
	buf.Next(len(trueBytes))
	return Boolean(b), nil
}

func decodeBulkString(buf *bytes.Buffer) (Frame, error) {
	data := buf.Bytes()
	total, err := ExpectLength(data)
	if err != nil {
		return nil, err
	}
	if len(data) < total {
		return nil, ErrNotComplete
	}

	end := bytes.Index(data, crlf)
	if n, _ := strconv.Atoi(string(data[1:end])); n == -1 {
		buf.Next(total)
		return BulkString(nil), nil
	}

	payload := make([]byte, total-end-2*crlfLen)
	copy(payload, data[end+crlfLen:])
	buf.Next(total)
	return BulkString(payload), nil
}

func decodeArray(buf *bytes.Buffer, depth int) (Frame, error) {
	return scoped(buf, depth, func(b *bytes.Buffer) (Frame, error) {
		n, isNull, err := consumeAggregateHeader(b, TypeArray)
		if err != nil {
			return nil, err
		}
		if isNull {
			return Array(nil), nil
		}
		frames, err := decodeElements(b, n, depth)
		if err != nil {
			return nil, err
		}
		return Array(frames), nil
	})
}

func decodeSet(buf *bytes.Buffer, depth int) (Frame, error) {
	return scoped(buf, depth, func(b *bytes.Buffer) (Frame, error) {
		n, _, err := consumeAggregateHeader(b, TypeSet)
		if err != nil {
			return nil, err
		}
		frames, err := decodeElements(b, n, depth)
		if err != nil {
			return nil, err
		}
		return Set(frames), nil
	})
}

func decodeMap(buf *bytes.Buffer, depth int) (Frame, error) {
	return scoped(buf, depth, func(b *bytes.Buffer) (Frame, error) {
		n, _, err := consumeAggregateHeader(b, TypeMap)
		if err != nil {
			return nil, err
		}

		m := make(Map, n)
		for i := 0; i < n; i++ {
			// probing has already checked that every key is a simple string
			key, err := decodeLine(b, TypeSimpleString)
			if err != nil {
				return nil, err
			}
			value, err := decode(b, depth+1)
			if err != nil {
				return nil, err
			}
			m[key] = value
		}
		return m, nil
	})
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// findLineEnd checks the prefix and returns the index of the CR of the first
// CRLF in data.
func findLineEnd(data []byte, prefix byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrNotComplete
	}
	if data[0] != prefix {
		return 0, fmt.Errorf("%w: expected %q, got %q", ErrMalformed, prefix, data[0])
	}
	end := bytes.Index(data, crlf)
	if end < 0 {
		return 0, ErrNotComplete
	}
	return end, nil
}

// decodeLine consumes a "<prefix><text>\r\n" line and returns text.
func decodeLine(buf *bytes.Buffer, prefix byte) (string, error) {
	data := buf.Bytes()
	end, err := findLineEnd(data, prefix)
	if err != nil {
		return "", err
	}
	text := data[1:end]
	if !utf8.Valid(text) {
		return "", fmt.Errorf("%w: line is not valid UTF-8", ErrMalformed)
	}
	s := string(text)
	buf.Next(end + crlfLen)
	return s, nil
}

// parseInteger validates the integer line at the front of data and returns
// the index of its CR and its value.
func parseInteger(data []byte) (int, int64, error) {
	end, err := findLineEnd(data, TypeInteger)
	if err != nil {
		return 0, 0, err
	}
	i, err := strconv.ParseInt(string(data[1:end]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid integer %q", ErrMalformed, data[1:end])
	}
	return end, i, nil
}

// parseDouble is parseInteger for doubles.
func parseDouble(data []byte) (int, float64, error) {
	end, err := findLineEnd(data, TypeDouble)
	if err != nil {
		return 0, 0, err
	}
	text := data[1:end]
	if !ValidDouble(text) {
		return 0, 0, fmt.Errorf("%w: invalid double %q", ErrMalformed, text)
	}
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid double %q", ErrMalformed, text)
	}
	return end, f, nil
}

// parseLength reads the decimal header of a bulk string or aggregate. It
// returns the index of the header's CR and the raw length.
func parseLength(data []byte, prefix byte) (end int, n int, err error) {
	end, err = findLineEnd(data, prefix)
	if err != nil {
		return 0, 0, err
	}
	n, err = strconv.Atoi(string(data[1:end]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid length %q", ErrMalformed, data[1:end])
	}
	return end, n, nil
}

func checkAggregateLength(prefix byte, n int) error {
	if n < 0 || n > MaxAggregateLength {
		return fmt.Errorf("%w: invalid %q length %d", ErrMalformed, prefix, n)
	}
	return nil
}

// calcTotalLength probes the n elements (or n key/value pairs for maps) that
// follow the header ending at end and returns the byte length of the whole
// aggregate.
func calcTotalLength(data []byte, end, n int, prefix byte, depth int) (int, error) {
	total := end + crlfLen
	rest := data[total:]

	probe := func(isKey bool) error {
		if isKey && len(rest) > 0 && rest[0] != TypeSimpleString {
			return fmt.Errorf("%w: map key must be a simple string, got %q", ErrMalformed, rest[0])
		}
		l, err := expectLength(rest, depth+1)
		if err != nil {
			return err
		}
		if l > len(rest) {
			return ErrNotComplete
		}
		total += l
		rest = rest[l:]
		return nil
	}

	for i := 0; i < n; i++ {
		if prefix == TypeMap {
			if err := probe(true); err != nil {
				return 0, err
			}
		}
		if err := probe(false); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// scoped decodes the aggregate at the front of buf with fn. The outermost
// aggregate is probed first and fn runs on a copy of the buffer holding
// exactly its bytes, so buf is consumed only if fn succeeds. Nested aggregates
// run inside that scope.
func scoped(buf *bytes.Buffer, depth int, fn func(*bytes.Buffer) (Frame, error)) (Frame, error) {
	if depth > 0 {
		return fn(buf)
	}

	data := buf.Bytes()
	total, err := expectLength(data, depth)
	if err != nil {
		return nil, err
	}
	f, err := fn(bytes.NewBuffer(data[:total]))
	if err != nil {
		return nil, truncated(err)
	}
	buf.Next(total)
	return f, nil
}

// consumeAggregateHeader consumes the header of an aggregate that has already
// been probed.
func consumeAggregateHeader(buf *bytes.Buffer, prefix byte) (n int, isNull bool, err error) {
	end, n, err := parseLength(buf.Bytes(), prefix)
	if err != nil {
		return 0, false, err
	}
	if n == -1 && prefix == TypeArray {
		buf.Next(end + crlfLen)
		return 0, true, nil
	}
	if err := checkAggregateLength(prefix, n); err != nil {
		return 0, false, err
	}
	buf.Next(end + crlfLen)
	return n, false, nil
}

func decodeElements(buf *bytes.Buffer, n, depth int) ([]Frame, error) {
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		f, err := decode(buf, depth+1)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// truncated converts errors found after the aggregate header was consumed. At
// that point the frame can no longer be retried.
func truncated(err error) error {
	if errors.Is(err, ErrNotComplete) {
		return fmt.Errorf("%w: aggregate truncated after probing", ErrMalformed)
	}
	return err
}

// matchLiteral compares data against a fixed frame such as "_\r\n".
func matchLiteral(data, literal []byte) error {
	if len(data) < len(literal) {
		if !bytes.HasPrefix(literal, data) {
			return fmt.Errorf("%w: expected %q", ErrMalformed, literal)
		}
		return ErrNotComplete
	}
	if !bytes.Equal(data[:len(literal)], literal) {
		return fmt.Errorf("%w: expected %q", ErrMalformed, literal)
	}
	return nil
}

func matchBoolean(data []byte) error {
	if len(data) >= 2 && data[1] == 'f' {
		return matchLiteral(data, falseBytes)
	}
	return matchLiteral(data, trueBytes)
}

// ValidDouble reports whether b is the text of a double frame:
// [sign](inf|nan|digits[.digits][(e|E)[sign]digits]). It does not allocate.
func ValidDouble(b []byte) bool {
	if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
		b = b[1:]
	}
	if string(b) == "inf" || string(b) == "nan" {
		return true
	}

	digits := func() int {
		i := 0
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
		b = b[i:]
		return i
	}

	if digits() == 0 {
		return false
	}
	if len(b) > 0 && b[0] == '.' {
		b = b[1:]
		if digits() == 0 {
			return false
		}
	}
	if len(b) > 0 && (b[0] == 'e' || b[0] == 'E') {
		b = b[1:]
		if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
			b = b[1:]
		}
		if digits() == 0 {
			return false
		}
	}
	return len(b) == 0
}
