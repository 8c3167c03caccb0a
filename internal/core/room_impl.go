package core

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is a threadsafe in-memory resource tree: peers own transports,
// transports carry producers and consumers. It never talks to the provider;
// callers create provider-side resources first and register them here.
type Room struct {
	id      domain.RoomID
	caps    RouterCapabilities
	created time.Time

	mu         sync.RWMutex
	closed     bool
	emptySince time.Time
	seq        uint64
	peers      map[domain.PeerID]*Peer
	transports map[domain.TransportID]*Transport
	producers  map[domain.ProducerID]*Producer
	consumers  map[domain.ConsumerID]*Consumer
}

func NewRoom(id domain.RoomID, caps RouterCapabilities, now time.Time) *Room {
	return &Room{
		id:         id,
		caps:       caps,
		created:    now,
		emptySince: now,
		peers:      make(map[domain.PeerID]*Peer),
		transports: make(map[domain.TransportID]*Transport),
		producers:  make(map[domain.ProducerID]*Producer),
		consumers:  make(map[domain.ConsumerID]*Consumer),
	}
}

func (r *Room) ID() domain.RoomID                { return r.id }
func (r *Room) Capabilities() RouterCapabilities { return r.caps }
func (r *Room) RouterID() domain.RouterID        { return r.caps.RouterID }

// AcquirePeer returns the peer locked for one lifecycle operation. The
// returned release func must be called exactly once. With create set, a
// missing peer is registered; a peer left without transports is dropped
// again on release.
func (r *Room) AcquirePeer(id domain.PeerID, user domain.UserID, create bool) (*Peer, func(), error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, nil, ErrRoomClosed
		}
		p, ok := r.peers[id]
		if !ok {
			if !create {
				r.mu.Unlock()
				return nil, nil, ErrPeerNotFound
			}
			p = newPeer(id, user)
			r.peers[id] = p
			r.emptySince = time.Time{}
		}
		r.mu.Unlock()

		p.op.Lock()
		if !p.closed.Load() {
			return p, func() { r.dropIfBare(p); p.op.Unlock() }, nil
		}
		// Closed while we waited; a create retries against a fresh entry.
		p.op.Unlock()
		if !create {
			return nil, nil, ErrPeerNotFound
		}
	}
}

func (r *Room) dropIfBare(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(p.transports) > 0 || r.peers[p.ID] != p {
		return
	}
	r.removePeerLocked(p)
}

func (r *Room) removePeerLocked(p *Peer) {
	delete(r.peers, p.ID)
	p.closed.Store(true)
	if len(r.peers) == 0 {
		r.emptySince = time.Now()
	}
}

func (r *Room) AddTransport(p *Peer, t Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if r.peers[p.ID] != p {
		return ErrPeerNotFound
	}
	t.Peer = p.ID
	t.State = TransportCreated
	r.transports[t.ID] = &t
	p.transports[t.ID] = struct{}{}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(p.ID)).
		Str("transport", string(t.ID)).Str("direction", string(t.Direction)).Msg("transport added")
	return nil
}

// TransportFor returns a copy of the transport if p owns it.
func (r *Room) TransportFor(p *Peer, id domain.TransportID) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[id]
	if !ok {
		return Transport{}, ErrTransportNotFound
	}
	if t.Peer != p.ID {
		return Transport{}, ErrNotOwner
	}
	return *t, nil
}

func (r *Room) MarkConnected(p *Peer, id domain.TransportID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transports[id]
	if !ok {
		return ErrTransportNotFound
	}
	if t.Peer != p.ID {
		return ErrNotOwner
	}
	t.State = TransportConnected
	return nil
}

func (r *Room) AddProducer(p *Peer, pr Producer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transports[pr.Transport]
	if !ok || r.peers[p.ID] != p {
		return ErrTransportNotFound
	}
	if t.Peer != p.ID {
		return ErrNotOwner
	}
	if t.State != TransportConnected {
		return ErrTransportNotConnected
	}
	r.seq++
	pr.seq = r.seq
	pr.Peer = p.ID
	r.producers[pr.ID] = &pr
	p.producers[pr.ID] = struct{}{}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(p.ID)).
		Str("producer", string(pr.ID)).Str("kind", string(pr.Kind)).Msg("producer added")
	return nil
}

// AddConsumer registers c unless its producer closed in the meantime.
func (r *Room) AddConsumer(p *Peer, c Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.producers[c.Producer]
	if !ok {
		return ErrProducerGone
	}
	t, ok := r.transports[c.Transport]
	if !ok || r.peers[p.ID] != p {
		return ErrTransportNotFound
	}
	if t.Peer != p.ID {
		return ErrNotOwner
	}
	c.Peer = p.ID
	c.Kind = pr.Kind
	r.consumers[c.ID] = &c
	p.consumers[c.ID] = struct{}{}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(p.ID)).
		Str("consumer", string(c.ID)).Str("producer", string(c.Producer)).Msg("consumer added")
	return nil
}

func (r *Room) Producer(id domain.ProducerID) (ProducerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pr, ok := r.producers[id]
	if !ok {
		return ProducerInfo{}, false
	}
	return ProducerInfo{ID: pr.ID, Peer: pr.Peer, Kind: pr.Kind}, true
}

func (r *Room) HasProducer(id domain.ProducerID) bool {
	_, ok := r.Producer(id)
	return ok
}

// Producers returns a point-in-time snapshot in registration order.
func (r *Room) Producers() []ProducerInfo {
	r.mu.RLock()
	list := make([]*Producer, 0, len(r.producers))
	for _, pr := range r.producers {
		list = append(list, pr)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Producer) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]ProducerInfo, 0, len(list))
	for _, pr := range list {
		out = append(out, ProducerInfo{ID: pr.ID, Peer: pr.Peer, Kind: pr.Kind})
	}
	return out
}

// RemoveProducer closes one of p's producers and every consumer of it.
func (r *Room) RemoveProducer(p *Peer, id domain.ProducerID) (Teardown, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td := Teardown{Room: r.id, Peer: p.ID}
	pr, ok := r.producers[id]
	if !ok {
		return td, ErrProducerNotFound
	}
	if pr.Peer != p.ID {
		return td, ErrNotOwner
	}
	r.removeProducerLocked(pr, &td)
	return td, nil
}

// ClosePeer cascades children-first over everything p owns and removes the
// peer. A peer that is no longer registered yields an empty Teardown.
func (r *Room) ClosePeer(p *Peer) Teardown {
	r.mu.Lock()
	defer r.mu.Unlock()
	td := Teardown{Room: r.id, Peer: p.ID}
	if r.peers[p.ID] != p {
		return td
	}
	for id := range p.consumers {
		if c, ok := r.consumers[id]; ok {
			r.removeConsumerLocked(c, &td)
		}
	}
	for id := range p.producers {
		if pr, ok := r.producers[id]; ok {
			r.removeProducerLocked(pr, &td)
		}
	}
	for id := range p.transports {
		if t, ok := r.transports[id]; ok {
			t.State = TransportClosed
			delete(r.transports, id)
			td.Transports = append(td.Transports, id)
		}
		delete(p.transports, id)
	}
	r.removePeerLocked(p)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(p.ID)).
		Int("transports", len(td.Transports)).Int("producers", len(td.Producers)).
		Int("consumers", len(td.Consumers)).Msg("peer closed")
	return td
}

func (r *Room) removeProducerLocked(pr *Producer, td *Teardown) {
	for _, c := range r.consumers {
		if c.Producer == pr.ID {
			r.removeConsumerLocked(c, td)
		}
	}
	delete(r.producers, pr.ID)
	if owner, ok := r.peers[pr.Peer]; ok {
		delete(owner.producers, pr.ID)
	}
	td.Producers = append(td.Producers, ProducerInfo{ID: pr.ID, Peer: pr.Peer, Kind: pr.Kind})
}

func (r *Room) removeConsumerLocked(c *Consumer, td *Teardown) {
	delete(r.consumers, c.ID)
	if owner, ok := r.peers[c.Peer]; ok {
		delete(owner.consumers, c.ID)
	}
	td.Consumers = append(td.Consumers, ConsumerInfo{ID: c.ID, Producer: c.Producer, Peer: c.Peer, Kind: c.Kind})
}

// HasPeer reports whether id currently owns resources here.
func (r *Room) HasPeer(id domain.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.peers[id]
	return ok
}

func (r *Room) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Room) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consumers)
}

func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomInfo{
		ID:        r.id,
		Peers:     len(r.peers),
		Producers: len(r.producers),
		Consumers: len(r.consumers),
		CreatedAt: r.created,
	}
}

// CloseIfIdle marks the room closed when it has had no peers for at least
// ttl. Once closed, every further mutation fails with ErrRoomClosed.
func (r *Room) CloseIfIdle(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if len(r.peers) > 0 || (ttl > 0 && now.Sub(r.emptySince) < ttl) {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
