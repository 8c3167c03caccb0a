package orch

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Outbound signaling event types.
const (
	EvPong             = "pong"
	EvWhoAmI           = "whoami"
	EvError            = "error"
	EvPresenceUpdate   = "presence:update"
	EvPresenceSnapshot = "presence:snapshot"
	EvMessageReceive   = "message:receive"
	EvChannelHistory   = "channel:history"
	EvRoomJoined       = "room:joined"
	EvPeerJoined       = "room:peer-joined"
	EvPeerLeft         = "room:peer-left"
	EvNewProducer      = "room:new-producer"
	EvProducerClosed   = "room:producer-closed"
	EvRelayDelivered   = "relay:delivered"
)

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

type PresencePayload struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username,omitempty"`
	Status   string        `json:"status"`
}

type PeerPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	PeerID domain.PeerID `json:"peerId"`
	UserID domain.UserID `json:"userId"`
}

type ProducerPayload struct {
	RoomID     domain.RoomID     `json:"roomId"`
	ProducerID domain.ProducerID `json:"producerId"`
	PeerID     domain.PeerID     `json:"peerId"`
	Kind       domain.MediaKind  `json:"kind,omitempty"`
}

type RoomJoinedPayload struct {
	RoomID          domain.RoomID        `json:"roomId"`
	RTPCapabilities core.RTPCapabilities `json:"rtpCapabilities"`
	Producers       []core.ProducerInfo  `json:"producers"`
}

// RelayPayload wraps an opaque message relayed between two users.
type RelayPayload struct {
	From     domain.UserID `json:"from"`
	FromPeer domain.PeerID `json:"fromPeer"`
	Payload  any           `json:"payload"`
}

type PresenceSnapshotPayload struct {
	Team  string            `json:"team"`
	Users []PresencePayload `json:"users"`
}

type RelayDeliveredPayload struct {
	To        domain.UserID `json:"to"`
	Type      string        `json:"type"`
	Delivered int           `json:"delivered"`
}

type HistoryPayload struct {
	Channel  string           `json:"channel"`
	Messages []domain.Message `json:"messages"`
}

type ErrorPayload struct {
	Op    string `json:"op,omitempty"`
	Error string `json:"error"`
}

type WhoAmIPayload struct {
	PeerID   domain.PeerID `json:"peerId"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
	Devices  int           `json:"devices"`
}
