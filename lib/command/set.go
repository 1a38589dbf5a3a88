package command

import (
	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/resp"
)

// SisMember tests set membership: SISMEMBER key member
type SisMember struct {
	Key    string
	Member string
}

// AddMember inserts into a set: ADDMEMBER key member
type AddMember struct {
	Key    string
	Member string
}

func (SisMember) Name() string { return "sismember" }
func (AddMember) Name() string { return "addmember" }

// Execute returns 1 if the member is in the set, else 0
func (c SisMember) Execute(b backend.IBackend) resp.Frame {
	if b.IsMember(c.Key, c.Member) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

// Execute inserts the member and returns 1, also when it was present already
func (c AddMember) Execute(b backend.IBackend) resp.Frame {
	b.AddMember(c.Key, c.Member)
	return resp.Integer(1)
}

func parseSisMember(_ Parser, args []resp.Frame) (Command, error) {
	s, err := stringArgs(args, "key", "member")
	if err != nil {
		return nil, err
	}
	return SisMember{Key: s[0], Member: s[1]}, nil
}

func parseAddMember(_ Parser, args []resp.Frame) (Command, error) {
	s, err := stringArgs(args, "key", "member")
	if err != nil {
		return nil, err
	}
	return AddMember{Key: s[0], Member: s[1]}, nil
}
