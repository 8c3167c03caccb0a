package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RoomCapabilities returns the router capabilities, creating the room on
// first use.
func (o *Orchestrator) RoomCapabilities(ctx context.Context, roomID domain.RoomID) (core.RouterCapabilities, error) {
	room, err := o.Rooms.GetOrCreate(ctx, roomID)
	if err != nil {
		return core.RouterCapabilities{}, err
	}
	return room.Capabilities(), nil
}

func (o *Orchestrator) ListProducers(roomID domain.RoomID) ([]core.ProducerInfo, error) {
	room, err := o.room(roomID)
	if err != nil {
		return nil, err
	}
	return room.Producers(), nil
}

func (o *Orchestrator) CreateTransport(ctx context.Context, roomID domain.RoomID, peer domain.PeerID, dir domain.Direction) (core.TransportParams, error) {
	room, err := o.room(roomID)
	if err != nil {
		return core.TransportParams{}, err
	}
	p, release, err := o.acquire(room, peer, true)
	if err != nil {
		return core.TransportParams{}, err
	}
	defer release()

	params, err := app.CallProvider(ctx, o.ProviderTimeout, "create transport",
		func(ctx context.Context) (core.TransportParams, error) {
			return o.Provider.CreateTransport(ctx, room.RouterID(), dir)
		})
	if err != nil {
		return core.TransportParams{}, err
	}
	if err := room.AddTransport(p, core.Transport{ID: params.ID, Direction: dir, Params: params}); err != nil {
		o.closeOrphan(ctx, "transport", string(params.ID), func(ctx context.Context) error {
			return o.Provider.CloseTransport(ctx, params.ID)
		})
		return core.TransportParams{}, err
	}
	return params, nil
}

// ConnectTransport completes negotiation. Connecting an already connected
// transport succeeds without touching the provider, so clients may retry.
func (o *Orchestrator) ConnectTransport(ctx context.Context, roomID domain.RoomID, peer domain.PeerID, id domain.TransportID, remote core.ConnectParams) error {
	room, err := o.room(roomID)
	if err != nil {
		return err
	}
	p, release, err := o.acquire(room, peer, false)
	if err != nil {
		return transportLookupErr(err)
	}
	defer release()

	t, err := room.TransportFor(p, id)
	if err != nil {
		return err
	}
	if t.State == core.TransportConnected {
		return nil
	}
	_, err = app.CallProvider(ctx, o.ProviderTimeout, "connect transport",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.Provider.ConnectTransport(ctx, id, remote)
		})
	if err != nil {
		return err
	}
	return room.MarkConnected(p, id)
}

func (o *Orchestrator) CreateProducer(ctx context.Context, roomID domain.RoomID, peer domain.PeerID, transportID domain.TransportID, kind domain.MediaKind, rtp core.RTPParameters) (domain.ProducerID, error) {
	room, err := o.room(roomID)
	if err != nil {
		return "", err
	}
	p, release, err := o.acquire(room, peer, false)
	if err != nil {
		return "", transportLookupErr(err)
	}
	defer release()

	if _, err := ready(room, p, transportID, domain.DirectionSend); err != nil {
		return "", err
	}
	id, err := app.CallProvider(ctx, o.ProviderTimeout, "produce",
		func(ctx context.Context) (domain.ProducerID, error) {
			return o.Provider.Produce(ctx, transportID, kind, rtp)
		})
	if err != nil {
		return "", err
	}
	if err := room.AddProducer(p, core.Producer{ID: id, Kind: kind, Transport: transportID, RTP: rtp}); err != nil {
		o.closeOrphan(ctx, "producer", string(id), func(ctx context.Context) error {
			return o.Provider.CloseProducer(ctx, id)
		})
		return "", err
	}
	return id, nil
}

// CloseProducer stops one of the peer's producers along with every consumer
// reading from it.
func (o *Orchestrator) CloseProducer(ctx context.Context, roomID domain.RoomID, peer domain.PeerID, id domain.ProducerID) (core.Teardown, error) {
	room, err := o.room(roomID)
	if err != nil {
		return core.Teardown{}, err
	}
	p, release, err := room.AcquirePeer(peer, "", false)
	if err != nil {
		if errors.Is(err, core.ErrPeerNotFound) {
			return core.Teardown{}, core.ErrProducerNotFound
		}
		return core.Teardown{}, err
	}
	defer release()

	td, err := room.RemoveProducer(p, id)
	if err != nil {
		return td, err
	}
	o.releaseProvider(ctx, td)
	return td, nil
}

// CreateConsumer subscribes the peer's receive transport to a producer.
func (o *Orchestrator) CreateConsumer(ctx context.Context, roomID domain.RoomID, peer domain.PeerID, transportID domain.TransportID, producerID domain.ProducerID, caps core.RTPCapabilities) (core.ConsumerParams, error) {
	room, err := o.room(roomID)
	if err != nil {
		return core.ConsumerParams{}, err
	}
	p, release, err := o.acquire(room, peer, false)
	if err != nil {
		return core.ConsumerParams{}, transportLookupErr(err)
	}
	defer release()

	if _, err := ready(room, p, transportID, domain.DirectionRecv); err != nil {
		return core.ConsumerParams{}, err
	}
	if !room.HasProducer(producerID) {
		return core.ConsumerParams{}, core.ErrProducerGone
	}
	if !o.Provider.CanConsume(producerID, caps) {
		return core.ConsumerParams{}, core.ErrCannotConsume
	}

	params, err := app.CallProvider(ctx, o.ProviderTimeout, "consume",
		func(ctx context.Context) (core.ConsumerParams, error) {
			return o.Provider.Consume(ctx, transportID, producerID, caps)
		})
	if err != nil {
		return core.ConsumerParams{}, err
	}
	// The producer may have closed while the provider was busy.
	if err := room.AddConsumer(p, core.Consumer{ID: params.ID, Producer: producerID, Transport: transportID}); err != nil {
		o.closeOrphan(ctx, "consumer", string(params.ID), func(ctx context.Context) error {
			return o.Provider.CloseConsumer(ctx, params.ID)
		})
		return core.ConsumerParams{}, err
	}
	return params, nil
}

// ClosePeer tears down everything the peer owns in the room. Closing a peer
// that has nothing left is a no-op.
func (o *Orchestrator) ClosePeer(ctx context.Context, roomID domain.RoomID, peer domain.PeerID) (core.Teardown, error) {
	room, err := o.room(roomID)
	if err != nil {
		return core.Teardown{}, err
	}
	return o.closePeerIn(ctx, room, peer), nil
}

// ClosePeerEverywhere runs ClosePeer in every room the peer has resources in.
func (o *Orchestrator) ClosePeerEverywhere(ctx context.Context, peer domain.PeerID) []core.Teardown {
	var out []core.Teardown
	for _, room := range o.Rooms.All() {
		if !room.HasPeer(peer) {
			continue
		}
		if td := o.closePeerIn(ctx, room, peer); !td.Empty() {
			out = append(out, td)
		}
	}
	return out
}

func (o *Orchestrator) closePeerIn(ctx context.Context, room *core.Room, peer domain.PeerID) core.Teardown {
	p, release, err := room.AcquirePeer(peer, "", false)
	if err != nil {
		return core.Teardown{Room: room.ID(), Peer: peer}
	}
	defer release()
	td := room.ClosePeer(p)
	o.releaseProvider(ctx, td)
	return td
}

// releaseProvider closes provider resources children first: consumers,
// then producers, then transports. Failures are logged; the room state is
// already gone and provider closes are idempotent.
func (o *Orchestrator) releaseProvider(ctx context.Context, td core.Teardown) {
	ctx = cleanupCtx(ctx)
	logger := log.With().Str("module", "orch").Str("room", string(td.Room)).Str("peer", string(td.Peer)).Logger()

	phase := func(name string, n int, closeAt func(ctx context.Context, i int) error) {
		var g errgroup.Group
		for i := range n {
			g.Go(func() error {
				_, err := app.CallProvider(ctx, o.ProviderTimeout, "close "+name,
					func(ctx context.Context) (struct{}, error) { return struct{}{}, closeAt(ctx, i) })
				return err
			})
		}
		if err := g.Wait(); err != nil {
			logger.Warn().Err(err).Str("phase", name).Msg("provider cleanup")
		}
	}

	phase("consumer", len(td.Consumers), func(ctx context.Context, i int) error {
		return o.Provider.CloseConsumer(ctx, td.Consumers[i].ID)
	})
	phase("producer", len(td.Producers), func(ctx context.Context, i int) error {
		return o.Provider.CloseProducer(ctx, td.Producers[i].ID)
	})
	phase("transport", len(td.Transports), func(ctx context.Context, i int) error {
		return o.Provider.CloseTransport(ctx, td.Transports[i])
	})
	if !td.Empty() {
		logger.Info().Int("consumers", len(td.Consumers)).Int("producers", len(td.Producers)).
			Int("transports", len(td.Transports)).Msg("released provider resources")
	}
}

func (o *Orchestrator) closeOrphan(ctx context.Context, kind, id string, fn func(context.Context) error) {
	_, err := app.CallProvider(cleanupCtx(ctx), o.ProviderTimeout, "close orphan "+kind,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, fn(ctx) })
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str(kind, id).Msg("orphan cleanup")
	}
}

func (o *Orchestrator) room(id domain.RoomID) (*core.Room, error) {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return room, nil
}

// acquire locks the peer for one operation. The session check runs after
// the lock so a create cannot slip past a concurrent disconnect cleanup.
func (o *Orchestrator) acquire(room *core.Room, peer domain.PeerID, create bool) (*core.Peer, func(), error) {
	sid := core.SessionID(peer)
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return nil, nil, core.ErrPeerNotFound
	}
	p, release, err := room.AcquirePeer(peer, user.ID, create)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := o.Registry.GetSession(sid); !ok {
		release()
		return nil, nil, core.ErrPeerNotFound
	}
	return p, release, nil
}

// ready checks that the transport belongs to p, points the right way and
// finished negotiation.
func ready(room *core.Room, p *core.Peer, id domain.TransportID, dir domain.Direction) (core.Transport, error) {
	t, err := room.TransportFor(p, id)
	if err != nil {
		return t, err
	}
	if t.Direction != dir {
		return t, core.ErrWrongDirection
	}
	if t.State != core.TransportConnected {
		return t, core.ErrTransportNotConnected
	}
	return t, nil
}

// A peer with no entry in the room has no transports either.
func transportLookupErr(err error) error {
	if errors.Is(err, core.ErrPeerNotFound) {
		return core.ErrTransportNotFound
	}
	return err
}
