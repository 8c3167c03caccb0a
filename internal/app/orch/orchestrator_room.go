package orch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/Huddle/internal/app/fanout"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInRoom       = errors.New("not joined to room")
	ErrRecipientGone   = errors.New("recipient offline")
	ErrEmptyMessage    = errors.New("empty message")
	ErrNotInChannel    = errors.New("not joined to channel")
	ErrUnknownProducer = fmt.Errorf("producer not registered for this peer: %w", core.ErrNotFound)
)

// Connect registers a freshly authenticated connection. The first
// connection of a user announces it online to everyone else.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	user := sess.Meta().User
	if online := o.Registry.Bind(sid, sess, cancel); online {
		o.deliver(fanout.Everyone{Except: sid, Event: fanout.Event{
			Type: EvPresenceUpdate,
			Data: PresencePayload{UserID: user.ID, Username: user.Username, Status: PresenceOnline},
		}})
	}
}

// OnDisconnect cleans up after a connection. It runs its effects once per
// connection no matter how many times it is called.
func (o *Orchestrator) OnDisconnect(ctx context.Context, sid core.SessionID) {
	user, offline, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	groups := o.Fanout.LeaveAll(sid)
	teardowns := o.ClosePeerEverywhere(ctx, sid.Peer())

	closed := make(map[domain.RoomID]struct{}, len(teardowns))
	for _, td := range teardowns {
		o.announceTeardown(td, user)
		closed[td.Room] = struct{}{}
	}
	// Rooms joined over signaling without any media still hear the leave.
	for _, g := range groups {
		roomID, ok := g.Room()
		if !ok {
			continue
		}
		if _, done := closed[roomID]; done {
			continue
		}
		o.announcePeerLeft(roomID, sid.Peer(), user)
	}

	if offline {
		o.deliver(fanout.Everyone{Event: fanout.Event{
			Type: EvPresenceUpdate,
			Data: PresencePayload{UserID: user.ID, Username: user.Username, Status: PresenceOffline},
		}})
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(user.ID)).
		Int("rooms", len(teardowns)).Bool("offline", offline).Msg("disconnect handled")
}

// WhoAmI describes the connection back to itself.
func (o *Orchestrator) WhoAmI(sid core.SessionID) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return
	}
	o.Reply(sid, EvWhoAmI, WhoAmIPayload{
		PeerID:   sid.Peer(),
		UserID:   user.ID,
		Username: user.Username,
		Devices:  len(o.Registry.ConnectionsFor(user.ID)),
	})
}

// JoinTeam subscribes the connection to team-wide presence. The joiner gets
// a snapshot of who in the team is online.
func (o *Orchestrator) JoinTeam(sid core.SessionID, team string) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return
	}
	g := fanout.TeamGroup(team)
	o.Fanout.Join(sid, g)

	seen := make(map[domain.UserID]struct{})
	snapshot := PresenceSnapshotPayload{Team: team, Users: []PresencePayload{}}
	for _, member := range o.Fanout.Members(g) {
		u, ok := o.Registry.UserOf(member)
		if !ok {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		snapshot.Users = append(snapshot.Users, PresencePayload{UserID: u.ID, Username: u.Username, Status: PresenceOnline})
	}
	o.Reply(sid, EvPresenceSnapshot, snapshot)
	o.deliver(fanout.Broadcast{Group: g, Except: sid, Event: fanout.Event{
		Type: EvPresenceUpdate,
		Data: PresencePayload{UserID: user.ID, Username: user.Username, Status: PresenceOnline},
	}})
}

// JoinChannel subscribes the connection to a chat channel and replays the
// most recent stored messages to it.
func (o *Orchestrator) JoinChannel(ctx context.Context, sid core.SessionID, channel string) {
	o.Fanout.Join(sid, fanout.ChannelGroup(channel))
	if o.Chat == nil {
		return
	}
	msgs, err := o.Chat.Recent(ctx, channel, o.historyLimit())
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("channel", channel).Msg("load history")
		return
	}
	o.Reply(sid, EvChannelHistory, HistoryPayload{Channel: channel, Messages: msgs})
}

// ChannelHistory returns the stored messages of a channel that one of the
// user's connections has joined.
func (o *Orchestrator) ChannelHistory(ctx context.Context, uid domain.UserID, channel string, limit int) ([]domain.Message, error) {
	g := fanout.ChannelGroup(channel)
	member := slices.ContainsFunc(o.Registry.ConnectionsFor(uid), func(sid core.SessionID) bool {
		return o.Fanout.InGroup(sid, g)
	})
	if !member {
		return nil, ErrNotInChannel
	}
	if o.Chat == nil {
		return []domain.Message{}, nil
	}
	return o.Chat.Recent(ctx, channel, limit)
}

func (o *Orchestrator) LeaveChannel(sid core.SessionID, channel string) {
	o.Fanout.Leave(sid, fanout.ChannelGroup(channel))
}

// SendMessage fans a chat message out to the channel, sender included, then
// stores it without holding up delivery.
func (o *Orchestrator) SendMessage(ctx context.Context, sid core.SessionID, team, channel, content string, attachments []domain.Attachment) (*domain.Message, error) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return nil, core.ErrPeerNotFound
	}
	if content == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	msg := &domain.Message{
		ID:          uuid.NewString(),
		Team:        team,
		Channel:     channel,
		Sender:      user,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	o.deliver(fanout.Broadcast{Group: fanout.ChannelGroup(channel), Event: fanout.Event{Type: EvMessageReceive, Data: msg}})

	if o.Chat != nil {
		go func(ctx context.Context) {
			if err := o.Chat.Save(ctx, msg); err != nil {
				log.Error().Err(err).Str("module", "orch").Str("channel", channel).Msg("save message")
			}
		}(cleanupCtx(ctx))
	}
	return msg, nil
}

// JoinRoom subscribes the connection to room events. The room and its
// router are created on demand; the joiner gets the capabilities and the
// producers already live.
func (o *Orchestrator) JoinRoom(ctx context.Context, sid core.SessionID, roomID domain.RoomID) error {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return core.ErrPeerNotFound
	}
	room, err := o.Rooms.GetOrCreate(ctx, roomID)
	if err != nil {
		return err
	}
	fresh := o.Fanout.Join(sid, fanout.RoomGroup(roomID))
	o.Reply(sid, EvRoomJoined, RoomJoinedPayload{
		RoomID:          roomID,
		RTPCapabilities: room.Capabilities().RTPCapabilities,
		Producers:       room.Producers(),
	})
	if fresh {
		o.deliver(fanout.Broadcast{Group: fanout.RoomGroup(roomID), Except: sid, Event: fanout.Event{
			Type: EvPeerJoined,
			Data: PeerPayload{RoomID: roomID, PeerID: sid.Peer(), UserID: user.ID},
		}})
	}
	return nil
}

// LeaveRoom drops the connection's media in the room and tells the rest.
func (o *Orchestrator) LeaveRoom(ctx context.Context, sid core.SessionID, roomID domain.RoomID) error {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return core.ErrPeerNotFound
	}
	left := o.Fanout.Leave(sid, fanout.RoomGroup(roomID))
	td, err := o.ClosePeer(ctx, roomID, sid.Peer())
	if err != nil && !errors.Is(err, core.ErrRoomNotFound) {
		return err
	}
	if !left && td.Empty() {
		return ErrNotInRoom
	}
	if td.Empty() {
		o.announcePeerLeft(roomID, sid.Peer(), user)
		return nil
	}
	o.announceTeardown(td, user)
	return nil
}

// AnnounceProducer tells the room about a producer only once it is
// registered and owned by the announcing connection.
func (o *Orchestrator) AnnounceProducer(sid core.SessionID, roomID domain.RoomID, producerID domain.ProducerID) error {
	room, err := o.room(roomID)
	if err != nil {
		return err
	}
	info, ok := room.Producer(producerID)
	if !ok || info.Peer != sid.Peer() {
		return ErrUnknownProducer
	}
	o.deliver(fanout.Broadcast{Group: fanout.RoomGroup(roomID), Except: sid, Event: fanout.Event{
		Type: EvNewProducer,
		Data: ProducerPayload{RoomID: roomID, ProducerID: info.ID, PeerID: info.Peer, Kind: info.Kind},
	}})
	return nil
}

// StopProducer closes a producer on behalf of its owner and announces it.
func (o *Orchestrator) StopProducer(ctx context.Context, sid core.SessionID, roomID domain.RoomID, producerID domain.ProducerID) error {
	td, err := o.CloseProducer(ctx, roomID, sid.Peer(), producerID)
	if err != nil {
		return err
	}
	o.announceProducersClosed(td)
	return nil
}

// Relay forwards an opaque payload to every connection of another user.
// The sender gets a delivery receipt.
func (o *Orchestrator) Relay(sid core.SessionID, to domain.UserID, typ string, payload any) error {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return core.ErrPeerNotFound
	}
	res := o.deliver(fanout.Direct{To: to, Event: fanout.Event{
		Type: typ,
		Data: RelayPayload{From: user.ID, FromPeer: sid.Peer(), Payload: payload},
	}})
	if res.SendTo == 0 {
		return ErrRecipientGone
	}
	o.Reply(sid, EvRelayDelivered, RelayDeliveredPayload{To: to, Type: typ, Delivered: res.SendTo})
	return nil
}

// EvictRoom stops an empty room on request.
func (o *Orchestrator) EvictRoom(ctx context.Context, roomID domain.RoomID) error {
	return o.Rooms.Remove(ctx, roomID)
}

// RemovePeer closes a peer's resources through the control surface and
// announces the teardown to the room.
func (o *Orchestrator) RemovePeer(ctx context.Context, roomID domain.RoomID, peer domain.PeerID) (core.Teardown, error) {
	td, err := o.ClosePeer(ctx, roomID, peer)
	if err != nil || td.Empty() {
		return td, err
	}
	user, _ := o.Registry.UserOf(core.SessionID(peer))
	o.announceTeardown(td, user)
	return td, nil
}

func (o *Orchestrator) announceTeardown(td core.Teardown, user *domain.User) {
	o.announceProducersClosed(td)
	o.announcePeerLeft(td.Room, td.Peer, user)
}

func (o *Orchestrator) announceProducersClosed(td core.Teardown) {
	for _, pr := range td.Producers {
		o.deliver(fanout.Broadcast{Group: fanout.RoomGroup(td.Room), Event: fanout.Event{
			Type: EvProducerClosed,
			Data: ProducerPayload{RoomID: td.Room, ProducerID: pr.ID, PeerID: pr.Peer, Kind: pr.Kind},
		}})
	}
}

func (o *Orchestrator) announcePeerLeft(roomID domain.RoomID, peer domain.PeerID, user *domain.User) {
	var uid domain.UserID
	if user != nil {
		uid = user.ID
	}
	o.deliver(fanout.Broadcast{Group: fanout.RoomGroup(roomID), Except: core.SessionID(peer), Event: fanout.Event{
		Type: EvPeerLeft,
		Data: PeerPayload{RoomID: roomID, PeerID: peer, UserID: uid},
	}})
}
