package core

import "github.com/dkeye/Huddle/internal/domain"

// SessionID identifies one live signaling connection. A user with several
// devices has several sessions; each session is also the peer id of the
// media resources it creates.
type SessionID string

func (s SessionID) Peer() domain.PeerID { return domain.PeerID(s) }

// MemberSession binds domain.Member and its transport endpoint.
// This is what the registry stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}
