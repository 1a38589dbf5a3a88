package batch

import (
	"bytes"

	"github.com/ValentinKolb/rKV/lib/resp"
)

// Decode decodes one frame from the front of buf using the two phases: the
// frame length is established first and only a complete frame is parsed and
// consumed. It satisfies resp.DecodeFunc.
func Decode(buf *bytes.Buffer) (resp.Frame, error) {
	data := buf.Bytes()
	n, err := ParseFrameLength(data)
	if err != nil {
		return nil, err
	}

	f, used, err := ParseFrame(data[:n])
	if err != nil {
		return nil, err
	}
	buf.Next(used)
	return f, nil
}

// ExpectLength reports the byte length of the frame at the start of data. Unlike
// resp.ExpectLength the result never exceeds len(data): a frame that is not
// fully present yields resp.ErrNotComplete.
func ExpectLength(data []byte) (int, error) {
	return ParseFrameLength(data)
}
