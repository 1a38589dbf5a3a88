package command

import (
	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/resp"
)

// Echo returns its argument: ECHO message
type Echo struct {
	Message string
}

// Unrecognized is any command whose name is not in the command table. It is
// answered with OK so that clients probing for features keep working.
type Unrecognized struct {
	Command string // lower case name as sent
}

func (Echo) Name() string         { return "echo" }
func (Unrecognized) Name() string { return "unrecognized" }

// Execute returns the message as a bulk string
func (c Echo) Execute(backend.IBackend) resp.Frame {
	return resp.NewBulkString(c.Message)
}

// Execute returns OK without touching the backend
func (Unrecognized) Execute(backend.IBackend) resp.Frame {
	return resp.OK
}

func parseEcho(_ Parser, args []resp.Frame) (Command, error) {
	message, err := stringArg(args[0], "message")
	if err != nil {
		return nil, err
	}
	return Echo{Message: message}, nil
}
