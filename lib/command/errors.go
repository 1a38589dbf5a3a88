package command

import (
	"errors"
	"strings"

	"github.com/ValentinKolb/rKV/lib/resp"
)

// Kind classifies command errors
type Kind int

const (
	// InvalidCommand: wrong arity, unexpected name token or a command that is
	// not an array of bulk strings
	InvalidCommand Kind = iota
	// InvalidArgument: an argument has the wrong frame type
	InvalidArgument
	// Utf8Error: a text argument is not valid UTF-8
	Utf8Error
)

func (k Kind) String() string {
	switch k {
	case InvalidCommand:
		return "invalid command"
	case InvalidArgument:
		return "invalid argument"
	case Utf8Error:
		return "utf8 error"
	default:
		return "unknown error"
	}
}

// Error is returned when a frame cannot be turned into a command. It is
// reported to the client and does not affect the connection.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is matches errors of the same kind, so errors.Is(err, ErrInvalidArgument)
// holds for every invalid argument error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidCommand  = &Error{Kind: InvalidCommand}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrUtf8            = &Error{Kind: Utf8Error}
)

func invalidCommand(msg string) error  { return &Error{Kind: InvalidCommand, Msg: msg} }
func invalidArgument(msg string) error { return &Error{Kind: InvalidArgument, Msg: msg} }

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// ErrorFrame converts an error into the error frame sent to the client. Line
// breaks are replaced since error frames are single lines.
func ErrorFrame(err error) resp.SimpleError {
	return resp.NewError("ERR %s", lineBreaks.Replace(err.Error()))
}
