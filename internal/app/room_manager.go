package app

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type RoomManagerOptions struct {
	// Codecs is the media codec profile every router is created with.
	Codecs          []core.RTPCodecCapability
	ProviderTimeout time.Duration
	// IdleTTL is how long a room may stay without peers before the janitor
	// evicts it. Zero disables eviction.
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	// InUse reports rooms that still have listeners without media, such as
	// signaling members. Such rooms are never evicted.
	InUse func(domain.RoomID) bool
}

// RoomManager owns the set of active rooms. Each room's router is created
// lazily on first access, at most once per room id.
type RoomManager struct {
	provider core.Provider
	opts     RoomManagerOptions
	now      func() time.Time

	mu     sync.RWMutex
	rooms  map[domain.RoomID]*core.Room
	flight singleflight.Group
}

func NewRoomManager(provider core.Provider, opts RoomManagerOptions) *RoomManager {
	return &RoomManager{
		provider: provider,
		opts:     opts,
		now:      time.Now,
		rooms:    make(map[domain.RoomID]*core.Room),
	}
}

func (m *RoomManager) Get(id domain.RoomID) (*core.Room, bool) {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

// GetOrCreate returns the room, creating it and its router when absent.
// Concurrent first calls for one id share a single router creation; on
// failure nothing is registered and every waiter sees the error.
func (m *RoomManager) GetOrCreate(ctx context.Context, id domain.RoomID) (*core.Room, error) {
	if room, ok := m.Get(id); ok {
		return room, nil
	}
	// The shared call must not die with whichever caller happened to start it.
	detached := context.WithoutCancel(ctx)
	v, err, shared := m.flight.Do(string(id), func() (any, error) {
		if room, ok := m.Get(id); ok {
			return room, nil
		}
		caps, err := CallProvider(detached, m.opts.ProviderTimeout, "create router",
			func(ctx context.Context) (core.RouterCapabilities, error) {
				return m.provider.CreateRouter(ctx, m.opts.Codecs)
			})
		if err != nil {
			return nil, err
		}
		room := core.NewRoom(id, caps, m.now())
		m.mu.Lock()
		m.rooms[id] = room
		m.mu.Unlock()
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("router", string(caps.RouterID)).Msg("room created")
		return room, nil
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Str("room", string(id)).Bool("shared", shared).Msg("room creation failed")
		return nil, err
	}
	return v.(*core.Room), nil
}

func (m *RoomManager) All() []*core.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

func (m *RoomManager) List() []core.RoomInfo {
	rooms := m.All()
	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// Remove evicts an empty room right away.
func (m *RoomManager) Remove(ctx context.Context, id domain.RoomID) error {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return core.ErrRoomNotFound
	}
	if m.inUse(id) || !room.CloseIfIdle(m.now(), 0) {
		m.mu.Unlock()
		return core.ErrRoomNotEmpty
	}
	delete(m.rooms, id)
	m.mu.Unlock()
	m.closeRouter(ctx, room)
	return nil
}

// EvictIdle closes every room that has been without peers for IdleTTL.
func (m *RoomManager) EvictIdle(ctx context.Context, now time.Time) []domain.RoomID {
	if m.opts.IdleTTL <= 0 {
		return nil
	}
	var evicted []*core.Room
	m.mu.Lock()
	for id, room := range m.rooms {
		if !m.inUse(id) && room.CloseIfIdle(now, m.opts.IdleTTL) {
			delete(m.rooms, id)
			evicted = append(evicted, room)
		}
	}
	m.mu.Unlock()

	ids := make([]domain.RoomID, 0, len(evicted))
	for _, room := range evicted {
		m.closeRouter(ctx, room)
		ids = append(ids, room.ID())
	}
	return ids
}

func (m *RoomManager) inUse(id domain.RoomID) bool {
	return m.opts.InUse != nil && m.opts.InUse(id)
}

// RunJanitor evicts idle rooms every JanitorInterval until ctx is done.
func (m *RoomManager) RunJanitor(ctx context.Context) error {
	interval := m.opts.JanitorInterval
	if m.opts.IdleTTL <= 0 || interval <= 0 {
		log.Info().Str("module", "app.rooms").Msg("room eviction disabled")
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if ids := m.EvictIdle(ctx, now); len(ids) > 0 {
				log.Info().Str("module", "app.rooms").Int("count", len(ids)).Msg("evicted idle rooms")
			}
		}
	}
}

func (m *RoomManager) closeRouter(ctx context.Context, room *core.Room) {
	_, err := CallProvider(ctx, m.opts.ProviderTimeout, "close router", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.provider.CloseRouter(ctx, room.RouterID())
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Str("room", string(room.ID())).Msg("close router")
		return
	}
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).Msg("room evicted")
}
