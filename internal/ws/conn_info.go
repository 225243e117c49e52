package ws

import "time"

// Role is the side of the conversation a relay connection speaks for.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleAgent   Role = "agent"
)

type ConnInfo struct {
	ConnID      string
	Role        Role
	PartyID     string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
