// Package batch implements a second RESP decoder that works on a contiguous byte
// slice in two phases.
//
// Phase one, ParseFrameLength, walks the frame grammar without allocating and
// returns the total byte length of the frame. It cannot tell truncated input
// from invalid input and reports both as resp.ErrNotComplete.
//
// Phase two, ParseFrame, runs a recursive descent over exactly that many bytes
// and builds the frame. Its failures are fatal and wrap resp.ErrMalformed.
//
// Decode combines both phases and satisfies resp.DecodeFunc, so the server can
// use this package in place of resp.Decode. Both decoders produce identical
// frames for identical input.
//
// Note: Since phase one never reports malformed input, Decode keeps returning
// resp.ErrNotComplete for a stream carrying garbage. Callers detect it with
// resp.ExpectLength, which walks the same grammar and does report
// resp.ErrMalformed. Both phases share resp.MaxNestingDepth.
package batch
