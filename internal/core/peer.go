package core

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Huddle/internal/domain"
)

type TransportState int32

const (
	TransportCreated TransportState = iota
	TransportConnected
	TransportClosed
)

func (s TransportState) String() string {
	switch s {
	case TransportCreated:
		return "created"
	case TransportConnected:
		return "connected"
	case TransportClosed:
		return "closed"
	}
	return "unknown"
}

type Transport struct {
	ID        domain.TransportID
	Direction domain.Direction
	Peer      domain.PeerID
	Params    TransportParams
	State     TransportState
}

type Producer struct {
	ID        domain.ProducerID
	Kind      domain.MediaKind
	Peer      domain.PeerID
	Transport domain.TransportID
	RTP       RTPParameters

	seq uint64
}

type Consumer struct {
	ID        domain.ConsumerID
	Producer  domain.ProducerID
	Kind      domain.MediaKind
	Peer      domain.PeerID
	Transport domain.TransportID
}

// Peer owns the media resources one session created in a room.
// The id sets are guarded by the owning Room's lock; op serializes the
// lifecycle operations issued for this peer.
type Peer struct {
	ID   domain.PeerID
	User domain.UserID

	op     sync.Mutex
	closed atomic.Bool

	transports map[domain.TransportID]struct{}
	producers  map[domain.ProducerID]struct{}
	consumers  map[domain.ConsumerID]struct{}
}

func newPeer(id domain.PeerID, user domain.UserID) *Peer {
	return &Peer{
		ID:         id,
		User:       user,
		transports: make(map[domain.TransportID]struct{}),
		producers:  make(map[domain.ProducerID]struct{}),
		consumers:  make(map[domain.ConsumerID]struct{}),
	}
}

func (p *Peer) Closed() bool { return p.closed.Load() }
