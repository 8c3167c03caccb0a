package core

import (
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// ProducerInfo is the read-only view handed to peers discovering media.
type ProducerInfo struct {
	ID   domain.ProducerID `json:"id"`
	Peer domain.PeerID     `json:"peerId"`
	Kind domain.MediaKind  `json:"kind"`
}

type ConsumerInfo struct {
	ID       domain.ConsumerID `json:"id"`
	Producer domain.ProducerID `json:"producerId"`
	Peer     domain.PeerID     `json:"peerId"`
	Kind     domain.MediaKind  `json:"kind"`
}

type RoomInfo struct {
	ID        domain.RoomID `json:"id"`
	Peers     int           `json:"peers"`
	Producers int           `json:"producers"`
	Consumers int           `json:"consumers"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Teardown lists what a cascade removed from a room, children first.
type Teardown struct {
	Room       domain.RoomID
	Peer       domain.PeerID
	Consumers  []ConsumerInfo
	Producers  []ProducerInfo
	Transports []domain.TransportID
}

func (t Teardown) Empty() bool {
	return len(t.Consumers) == 0 && len(t.Producers) == 0 && len(t.Transports) == 0
}

// ForeignConsumers returns the consumers that other peers held on the
// removed producers. Closing the peer's transports does not reach them.
func (t Teardown) ForeignConsumers() []ConsumerInfo {
	out := make([]ConsumerInfo, 0, len(t.Consumers))
	for _, c := range t.Consumers {
		if c.Peer != t.Peer {
			out = append(out, c)
		}
	}
	return out
}
