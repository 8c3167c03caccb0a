package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

//go:generate mockgen -destination=coremock/provider.go -package=coremock . Provider

// Provider is the media engine the rooms are built on. Every method except
// CanConsume may block on network negotiation, so callers bound them with a
// context deadline. Close* methods are idempotent: unknown ids are ignored.
type Provider interface {
	CreateRouter(ctx context.Context, codecs []RTPCodecCapability) (RouterCapabilities, error)
	CloseRouter(ctx context.Context, id domain.RouterID) error

	CreateTransport(ctx context.Context, router domain.RouterID, dir domain.Direction) (TransportParams, error)
	ConnectTransport(ctx context.Context, id domain.TransportID, remote ConnectParams) error
	// CloseTransport also closes every producer and consumer on the transport.
	CloseTransport(ctx context.Context, id domain.TransportID) error

	Produce(ctx context.Context, transport domain.TransportID, kind domain.MediaKind, rtp RTPParameters) (domain.ProducerID, error)
	CloseProducer(ctx context.Context, id domain.ProducerID) error

	// Consume fails with ErrCannotConsume when caps cannot decode the producer.
	Consume(ctx context.Context, transport domain.TransportID, producer domain.ProducerID, caps RTPCapabilities) (ConsumerParams, error)
	CanConsume(producer domain.ProducerID, caps RTPCapabilities) bool
	CloseConsumer(ctx context.Context, id domain.ConsumerID) error
}

// RTPCodecCapability describes one codec a router or client can handle.
type RTPCodecCapability struct {
	Kind                 domain.MediaKind `json:"kind" mapstructure:"kind"`
	MimeType             string           `json:"mimeType" mapstructure:"mime_type"`
	ClockRate            uint32           `json:"clockRate" mapstructure:"clock_rate"`
	Channels             uint16           `json:"channels,omitempty" mapstructure:"channels"`
	SDPFmtpLine          string           `json:"sdpFmtpLine,omitempty" mapstructure:"sdp_fmtp_line"`
	PreferredPayloadType uint8            `json:"preferredPayloadType,omitempty" mapstructure:"payload_type"`
}

type RTPCapabilities struct {
	Codecs []RTPCodecCapability `json:"codecs"`
}

type RouterCapabilities struct {
	RouterID        domain.RouterID `json:"routerId"`
	RTPCapabilities RTPCapabilities `json:"rtpCapabilities"`
}

type ICEParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	ICELite          bool   `json:"iceLite,omitempty"`
}

type ICECandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	Address    string `json:"address"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
	TCPType    string `json:"tcpType,omitempty"`
}

type DTLSFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type DTLSParameters struct {
	Role         string            `json:"role,omitempty"`
	Fingerprints []DTLSFingerprint `json:"fingerprints"`
}

// TransportParams is what the client needs to reach a server-side transport.
type TransportParams struct {
	ID             domain.TransportID `json:"id"`
	ICEParameters  ICEParameters      `json:"iceParameters"`
	ICECandidates  []ICECandidate     `json:"iceCandidates"`
	DTLSParameters DTLSParameters     `json:"dtlsParameters"`
}

// ConnectParams is the client's half of the transport negotiation.
type ConnectParams struct {
	ICEParameters  ICEParameters  `json:"iceParameters"`
	ICECandidates  []ICECandidate `json:"iceCandidates"`
	DTLSParameters DTLSParameters `json:"dtlsParameters"`
}

type RTPCodecParameters struct {
	MimeType    string `json:"mimeType"`
	PayloadType uint8  `json:"payloadType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
	SDPFmtpLine string `json:"sdpFmtpLine,omitempty"`
}

type RTPEncoding struct {
	SSRC uint32 `json:"ssrc"`
}

type RTPParameters struct {
	MID       string               `json:"mid,omitempty"`
	Codecs    []RTPCodecParameters `json:"codecs"`
	Encodings []RTPEncoding        `json:"encodings"`
}

// ConsumerParams describes a freshly created consumer.
type ConsumerParams struct {
	ID            domain.ConsumerID `json:"id"`
	ProducerID    domain.ProducerID `json:"producerId"`
	Kind          domain.MediaKind  `json:"kind"`
	RTPParameters RTPParameters     `json:"rtpParameters"`
}
