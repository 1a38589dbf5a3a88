// Package command turns decoded RESP frames into typed commands and executes
// them against a backend.
//
// Supported commands (names are case-insensitive):
//
//	GET key                      -> value | Null
//	SET key value                -> OK
//	HGET key field               -> value | Null
//	HMGET key field [field ...]  -> [value | Null, ...]
//	HSET key field value         -> OK
//	HGETALL key [SORT]           -> [field, value, ...] (empty array for a missing key)
//	SISMEMBER key member         -> 1 | 0
//	ADDMEMBER key member         -> 1
//	ECHO message                 -> message
//
// Any other name parses to Unrecognized, which replies OK. Unknown commands are
// not an error.
//
// Values given to SET and HSET are stored as the frame that was sent, so any
// RESP type can be stored. All other arguments must be bulk strings holding
// valid UTF-8.
//
// Errors:
//
// Parsing fails with a *Error whose Kind is InvalidCommand (not an array, no
// bulk string name, wrong number of arguments), InvalidArgument (an argument
// has the wrong type) or Utf8Error. The sentinels ErrInvalidCommand,
// ErrInvalidArgument and ErrUtf8 match by kind with errors.Is. ErrorFrame
// renders any error as the "ERR ..." frame sent to the client.
package command
