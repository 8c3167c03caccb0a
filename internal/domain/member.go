package domain

// PeerID is the signaling connection a peer's media resources belong to.
// It is ephemeral: a reconnecting user gets a new one.
type PeerID string

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	Peer PeerID `json:"peerId"`
	User *User  `json:"user"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(peer PeerID, user *User) *Member {
	return &Member{Peer: peer, User: user}
}

func (m *Member) UserID() UserID {
	if m.User == nil {
		return ""
	}
	return m.User.ID
}
