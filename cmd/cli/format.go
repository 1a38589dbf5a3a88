package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/client"
)

// FormatFrame renders a reply for humans, one element per line for
// aggregates, nested elements indented
func FormatFrame(f resp.Frame) string {
	var sb strings.Builder
	formatFrame(&sb, f, "")
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatFrame(sb *strings.Builder, f resp.Frame, indent string) {
	switch v := f.(type) {
	case resp.SimpleString:
		sb.WriteString(string(v) + "\n")
	case resp.SimpleError:
		sb.WriteString("(error) " + string(v) + "\n")
	case resp.Integer:
		sb.WriteString("(integer) " + strconv.FormatInt(int64(v), 10) + "\n")
	case resp.Double:
		sb.WriteString("(double) " + strconv.FormatFloat(float64(v), 'g', -1, 64) + "\n")
	case resp.Boolean:
		sb.WriteString("(boolean) " + strconv.FormatBool(bool(v)) + "\n")
	case resp.Null:
		sb.WriteString("(nil)\n")
	case resp.BulkString:
		if v.IsNull() {
			sb.WriteString("(nil)\n")
		} else {
			sb.WriteString(strconv.Quote(v.String()) + "\n")
		}
	case resp.Array:
		formatElements(sb, v, v.IsNull(), indent)
	case resp.Set:
		formatElements(sb, v, false, indent)
	case resp.Map:
		if len(v) == 0 {
			sb.WriteString("(empty map)\n")
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(indent)
			}
			prefix := fmt.Sprintf("%d# %s => ", i+1, strconv.Quote(k))
			sb.WriteString(prefix)
			formatFrame(sb, v[k], indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		sb.WriteString(fmt.Sprintf("%v\n", f))
	}
}

func formatElements(sb *strings.Builder, elements []resp.Frame, isNull bool, indent string) {
	if isNull {
		sb.WriteString("(nil)\n")
		return
	}
	if len(elements) == 0 {
		sb.WriteString("(empty array)\n")
		return
	}
	for i, e := range elements {
		if i > 0 {
			sb.WriteString(indent)
		}
		prefix := fmt.Sprintf("%d) ", i+1)
		sb.WriteString(prefix)
		formatFrame(sb, e, indent+strings.Repeat(" ", len(prefix)))
	}
}

// formatOptional renders a value that may be missing
func formatOptional(value string, ok bool) string {
	if !ok {
		return "(nil)"
	}
	return strconv.Quote(value)
}

// formatFields renders hash fields as "field: value" lines
func formatFields(fields []client.FieldValue) string {
	if len(fields) == 0 {
		return "(empty hash)\n"
	}
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("%s: %s\n", strconv.Quote(f.Field), strconv.Quote(f.Value)))
	}
	return sb.String()
}
