package core

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestRoom() *Room {
	return NewRoom("r1", RouterCapabilities{RouterID: "router-1"}, time.Now())
}

// addConnected registers a peer with one connected transport.
func addConnected(t *testing.T, r *Room, peer domain.PeerID, tid domain.TransportID, dir domain.Direction) *Peer {
	t.Helper()
	p, release, err := r.AcquirePeer(peer, domain.UserID("u-"+string(peer)), true)
	require.NoError(t, err)
	defer release()
	require.NoError(t, r.AddTransport(p, Transport{ID: tid, Direction: dir}))
	require.NoError(t, r.MarkConnected(p, tid))
	return p
}

func TestAcquireWithoutCreate(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	_, _, err := r.AcquirePeer("p1", "u1", false)
	require.ErrorIs(t, err, ErrPeerNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBarePeerDroppedOnRelease(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	_, release, err := r.AcquirePeer("p1", "u1", true)
	require.NoError(t, err)
	require.True(t, r.HasPeer("p1"))
	release()
	require.False(t, r.HasPeer("p1"))
}

func TestProducerRequiresConnectedTransport(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	p, release, err := r.AcquirePeer("p1", "u1", true)
	require.NoError(t, err)
	defer release()
	require.NoError(t, r.AddTransport(p, Transport{ID: "t1", Direction: domain.DirectionSend}))

	err = r.AddProducer(p, Producer{ID: "pr1", Kind: domain.KindAudio, Transport: "t1"})
	require.ErrorIs(t, err, ErrTransportNotConnected)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, r.MarkConnected(p, "t1"))
	require.NoError(t, r.AddProducer(p, Producer{ID: "pr1", Kind: domain.KindAudio, Transport: "t1"}))
	require.True(t, r.HasProducer("pr1"))
}

func TestForeignTransportRejected(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	addConnected(t, r, "p1", "t1", domain.DirectionSend)
	p2, release, err := r.AcquirePeer("p2", "u2", true)
	require.NoError(t, err)
	defer release()

	_, err = r.TransportFor(p2, "t1")
	require.ErrorIs(t, err, ErrNotOwner)
	require.ErrorIs(t, r.MarkConnected(p2, "t1"), ErrNotOwner)
}

func TestProducersListedInRegistrationOrder(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	p := addConnected(t, r, "p1", "t1", domain.DirectionSend)
	for _, id := range []domain.ProducerID{"c", "a", "b"} {
		require.NoError(t, r.AddProducer(p, Producer{ID: id, Kind: domain.KindVideo, Transport: "t1"}))
	}
	list := r.Producers()
	require.Len(t, list, 3)
	require.Equal(t, domain.ProducerID("c"), list[0].ID)
	require.Equal(t, domain.ProducerID("a"), list[1].ID)
	require.Equal(t, domain.ProducerID("b"), list[2].ID)

	// The snapshot is a copy.
	list[0].ID = "mutated"
	require.Equal(t, domain.ProducerID("c"), r.Producers()[0].ID)
}

func TestAddConsumerAfterProducerClosed(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	p1 := addConnected(t, r, "p1", "t1", domain.DirectionSend)
	require.NoError(t, r.AddProducer(p1, Producer{ID: "pr1", Kind: domain.KindAudio, Transport: "t1"}))
	p2 := addConnected(t, r, "p2", "t2", domain.DirectionRecv)

	_, err := r.RemoveProducer(p1, "pr1")
	require.NoError(t, err)

	err = r.AddConsumer(p2, Consumer{ID: "c1", Producer: "pr1", Transport: "t2"})
	require.ErrorIs(t, err, ErrProducerGone)
	require.Zero(t, r.ConsumerCount())
}

func TestClosePeerCascades(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	p1 := addConnected(t, r, "p1", "t1", domain.DirectionSend)
	require.NoError(t, r.AddProducer(p1, Producer{ID: "pr1", Kind: domain.KindAudio, Transport: "t1"}))
	p2 := addConnected(t, r, "p2", "t2", domain.DirectionRecv)
	require.NoError(t, r.AddConsumer(p2, Consumer{ID: "c1", Producer: "pr1", Transport: "t2"}))

	p, release, err := r.AcquirePeer("p1", "", false)
	require.NoError(t, err)
	td := r.ClosePeer(p)
	release()

	require.Equal(t, domain.RoomID("r1"), td.Room)
	require.Equal(t, []domain.TransportID{"t1"}, td.Transports)
	require.Len(t, td.Producers, 1)
	require.Len(t, td.Consumers, 1)
	require.Len(t, td.ForeignConsumers(), 1)
	require.False(t, r.HasPeer("p1"))
	require.True(t, r.HasPeer("p2"))
	require.Empty(t, r.Producers())
	require.Zero(t, r.ConsumerCount())

	// A stale handle yields nothing the second time.
	require.True(t, r.ClosePeer(p).Empty())
}

func TestAcquireAfterCloseRecreates(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	p := addConnected(t, r, "p1", "t1", domain.DirectionSend)

	var wg sync.WaitGroup
	held, release, err := r.AcquirePeer("p1", "", false)
	require.NoError(t, err)
	require.Same(t, p, held)

	wg.Add(1)
	var got *Peer
	go func() {
		defer wg.Done()
		np, rel, err := r.AcquirePeer("p1", "u1", true)
		if err == nil {
			got = np
			rel()
		}
	}()
	r.ClosePeer(held)
	release()
	wg.Wait()

	require.NotNil(t, got)
	require.NotSame(t, p, got)
}

func TestCloseIfIdle(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := NewRoom("r1", RouterCapabilities{}, now)
	require.False(t, r.CloseIfIdle(now.Add(time.Second), time.Minute))
	require.True(t, r.CloseIfIdle(now.Add(2*time.Minute), time.Minute))
	require.True(t, r.Closed())

	_, _, err := r.AcquirePeer("p1", "u1", true)
	require.ErrorIs(t, err, ErrRoomClosed)
}

func TestCloseIfIdleKeepsOccupiedRoom(t *testing.T) {
	t.Parallel()
	r := newTestRoom()
	addConnected(t, r, "p1", "t1", domain.DirectionSend)
	require.False(t, r.CloseIfIdle(time.Now().Add(time.Hour), 0))
	require.Equal(t, 1, r.Info().Peers)
}
