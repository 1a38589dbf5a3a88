package batch

import (
	"bytes"
	"math"

	"github.com/ValentinKolb/rKV/lib/resp"
)

var crlf = []byte("\r\n")

// ParseFrameLength walks the grammar of the frame at the start of data and
// returns its byte length. It does not allocate and does not build any frame.
//
// Every failure, whether the input is truncated or not valid RESP at all, is
// reported as resp.ErrNotComplete. Callers that need to tell the two apart use
// ParseFrame on the returned length.
func ParseFrameLength(data []byte) (int, error) {
	n, ok := advance(data, 0, 0)
	if !ok {
		return 0, resp.ErrNotComplete
	}
	return n, nil
}

// advance returns the position just after the frame starting at pos. depth is
// the number of enclosing aggregates.
func advance(data []byte, pos, depth int) (int, bool) {
	if pos >= len(data) {
		return 0, false
	}

	switch data[pos] {
	case resp.TypeSimpleString, resp.TypeError:
		end := lineEnd(data, pos)
		if end < 0 {
			return 0, false
		}
		return end + 2, true

	case resp.TypeInteger:
		end := lineEnd(data, pos)
		if end < 0 {
			return 0, false
		}
		if _, ok := parseDecimal(data[pos+1 : end]); !ok {
			return 0, false
		}
		return end + 2, true

	case resp.TypeDouble:
		end := lineEnd(data, pos)
		if end < 0 || !resp.ValidDouble(data[pos+1:end]) {
			return 0, false
		}
		return end + 2, true

	case resp.TypeNull:
		return literal(data, pos, "_\r\n")

	case resp.TypeBoolean:
		if pos+1 < len(data) && data[pos+1] == 'f' {
			return literal(data, pos, "#f\r\n")
		}
		return literal(data, pos, "#t\r\n")

	case resp.TypeBulkString:
		next, n, ok := header(data, pos)
		if !ok {
			return 0, false
		}
		if n == -1 {
			return next, true
		}
		end := next + n
		if end+2 > len(data) || data[end] != '\r' || data[end+1] != '\n' {
			return 0, false
		}
		return end + 2, true

	case resp.TypeArray, resp.TypeSet, resp.TypeMap:
		prefix := data[pos]
		next, n, ok := header(data, pos)
		if !ok {
			return 0, false
		}
		if n == -1 && prefix == resp.TypeArray {
			return next, true
		}
		if n < 0 || n > resp.MaxAggregateLength || depth >= resp.MaxNestingDepth {
			return 0, false
		}
		for i := 0; i < n; i++ {
			if prefix == resp.TypeMap {
				if next >= len(data) || data[next] != resp.TypeSimpleString {
					return 0, false
				}
				if next, ok = advance(data, next, depth+1); !ok {
					return 0, false
				}
			}
			if next, ok = advance(data, next, depth+1); !ok {
				return 0, false
			}
		}
		return next, true

	default:
		return 0, false
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// lineEnd returns the index of the CR of the first CRLF after pos, or -1.
func lineEnd(data []byte, pos int) int {
	i := bytes.Index(data[pos:], crlf)
	if i < 0 {
		return -1
	}
	return pos + i
}

// header parses "<prefix><number>\r\n" and returns the position after it.
// Numbers outside [-1, resp.MaxBulkLength] are rejected.
func header(data []byte, pos int) (next int, n int, ok bool) {
	end := lineEnd(data, pos)
	if end < 0 {
		return 0, 0, false
	}
	v, ok := parseDecimal(data[pos+1 : end])
	if !ok || v < -1 || v > resp.MaxBulkLength {
		return 0, 0, false
	}
	return end + 2, int(v), true
}

func literal(data []byte, pos int, lit string) (int, bool) {
	end := pos + len(lit)
	if end > len(data) || string(data[pos:end]) != lit {
		return 0, false
	}
	return end, true
}

// parseDecimal parses an optionally signed decimal int64 without allocating.
// Values outside the int64 range are rejected.
func parseDecimal(b []byte) (int64, bool) {
	neg := false
	if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
		neg = b[0] == '-'
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, false
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	var u uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if u > (limit-d)/10 {
			return 0, false
		}
		u = u*10 + d
	}

	if neg {
		// -int64(1<<63) wraps to math.MinInt64
		return -int64(u), true
	}
	return int64(u), true
}
