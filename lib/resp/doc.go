// Package resp implements the RESP2/RESP3 wire format used by rKV.
//
// The package provides a closed set of frame types and an incremental codec that
// decodes frames from a growing byte buffer, as it is filled by a socket reader.
//
// Key Components:
//
//   - Frame: The interface implemented by every RESP value. The variants are
//     SimpleString, SimpleError, Integer, BulkString, Array, Null, Boolean,
//     Double, Map and Set. Each variant is identified by its prefix byte
//     (see the Type* constants).
//
//   - Encode / AppendFrame: Serialize a frame. Encoding is total; every frame
//     has exactly one byte representation. Map keys are written in ascending
//     order.
//
//   - Decode: Decodes one frame from the front of a bytes.Buffer and consumes
//     exactly its bytes. A partially buffered frame yields ErrNotComplete and
//     leaves the buffer untouched, so the caller can read more data and retry.
//     An aggregate is consumed as a whole or not at all, even when one of its
//     elements turns out to be malformed.
//
//   - ExpectLength: Reports the byte length of the frame at the start of a slice
//     without decoding it. Aggregates are probed element by element before any
//     byte is consumed.
//
// Note on Null and Empty Values:
//   - A nil BulkString or Array is the null value ("$-1\r\n", "*-1\r\n").
//   - A non-nil empty BulkString or Array is the empty value ("$0\r\n\r\n",
//     "*0\r\n"). The two are never conflated by the codec.
//   - Map and Set have no null form.
//
// Note on Doubles:
//   - Magnitudes in [1e-8, 1e8] are written in plain decimal notation, all other
//     finite values in exponential notation (e.g. "+1.23456e8"). A sign is always
//     written. Infinities and NaN are written as "inf", "-inf" and "nan".
//
// Limits:
//   - Bulk strings are limited to MaxBulkLength bytes, aggregates to
//     MaxAggregateLength elements. Larger headers are reported as malformed.
//   - Aggregates may nest at most MaxNestingDepth levels deep.
//
// Errors:
//   - ErrNotComplete: more input is needed; not an error condition.
//   - ErrMalformed: the input can never become a valid frame. All decoding
//     errors other than ErrNotComplete wrap it.
package resp
