// Package coretest provides an in-memory core.Provider for tests.
package coretest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type transport struct {
	router    domain.RouterID
	dir       domain.Direction
	connected bool
}

type producer struct {
	transport domain.TransportID
	kind      domain.MediaKind
	mime      string
}

type consumer struct {
	transport domain.TransportID
	producer  domain.ProducerID
}

// Provider keeps provider-side objects in maps and counts calls. It follows
// the same contract as the real provider: closes are idempotent and closing
// a parent closes its children.
type Provider struct {
	// RouterDelay is slept inside CreateRouter, ignoring the context.
	RouterDelay time.Duration
	// FailRouter, when set, is returned by CreateRouter.
	FailRouter error
	// FailTransport, FailProduce and FailConsume are returned by the
	// matching create call when set.
	FailTransport error
	FailProduce   error
	FailConsume   error
	// OpDelay is slept at the start of CreateTransport, Produce and
	// Consume, ignoring the context.
	OpDelay time.Duration
	// BeforeConsume runs inside Consume before it succeeds.
	BeforeConsume func()

	RouterCalls atomic.Int32

	mu         sync.Mutex
	seq        int
	routers    map[domain.RouterID][]core.RTPCodecCapability
	transports map[domain.TransportID]*transport
	producers  map[domain.ProducerID]*producer
	consumers  map[domain.ConsumerID]*consumer
	closed     []string
}

func NewProvider() *Provider {
	return &Provider{
		routers:    make(map[domain.RouterID][]core.RTPCodecCapability),
		transports: make(map[domain.TransportID]*transport),
		producers:  make(map[domain.ProducerID]*producer),
		consumers:  make(map[domain.ConsumerID]*consumer),
	}
}

var _ core.Provider = (*Provider)(nil)

// Codecs is a small opus + VP8 profile.
func Codecs() []core.RTPCodecCapability {
	return []core.RTPCodecCapability{
		{Kind: domain.KindAudio, MimeType: "audio/opus", ClockRate: 48000, Channels: 2, PreferredPayloadType: 111},
		{Kind: domain.KindVideo, MimeType: "video/VP8", ClockRate: 90000, PreferredPayloadType: 96},
	}
}

// AudioRTP is a producer parameter set for opus.
func AudioRTP() core.RTPParameters {
	return core.RTPParameters{
		Codecs:    []core.RTPCodecParameters{{MimeType: "audio/opus", PayloadType: 111, ClockRate: 48000, Channels: 2}},
		Encodings: []core.RTPEncoding{{SSRC: 1111}},
	}
}

func (p *Provider) nextID(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s-%d", prefix, p.seq)
}

func (p *Provider) delay() {
	if p.OpDelay > 0 {
		time.Sleep(p.OpDelay)
	}
}

func (p *Provider) CreateRouter(_ context.Context, codecs []core.RTPCodecCapability) (core.RouterCapabilities, error) {
	p.RouterCalls.Add(1)
	if p.RouterDelay > 0 {
		time.Sleep(p.RouterDelay)
	}
	if p.FailRouter != nil {
		return core.RouterCapabilities{}, p.FailRouter
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := domain.RouterID(p.nextID("router"))
	p.routers[id] = codecs
	return core.RouterCapabilities{RouterID: id, RTPCapabilities: core.RTPCapabilities{Codecs: codecs}}, nil
}

func (p *Provider) CloseRouter(_ context.Context, id domain.RouterID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.routers[id]; ok {
		delete(p.routers, id)
		p.closed = append(p.closed, string(id))
	}
	return nil
}

func (p *Provider) CreateTransport(_ context.Context, router domain.RouterID, dir domain.Direction) (core.TransportParams, error) {
	p.delay()
	if p.FailTransport != nil {
		return core.TransportParams{}, p.FailTransport
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.routers[router]; !ok {
		return core.TransportParams{}, fmt.Errorf("router %s: %w", router, core.ErrNotFound)
	}
	id := domain.TransportID(p.nextID("transport"))
	p.transports[id] = &transport{router: router, dir: dir}
	return core.TransportParams{
		ID:             id,
		ICEParameters:  core.ICEParameters{UsernameFragment: "ufrag", Password: "pwd"},
		DTLSParameters: core.DTLSParameters{Role: "auto", Fingerprints: []core.DTLSFingerprint{{Algorithm: "sha-256", Value: "00"}}},
	}, nil
}

func (p *Provider) ConnectTransport(_ context.Context, id domain.TransportID, _ core.ConnectParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.transports[id]
	if !ok {
		return core.ErrTransportNotFound
	}
	t.connected = true
	return nil
}

func (p *Provider) CloseTransport(_ context.Context, id domain.TransportID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.transports[id]; !ok {
		return nil
	}
	for pid, pr := range p.producers {
		if pr.transport == id {
			p.closeProducerLocked(pid)
		}
	}
	for cid, c := range p.consumers {
		if c.transport == id {
			delete(p.consumers, cid)
		}
	}
	delete(p.transports, id)
	p.closed = append(p.closed, string(id))
	return nil
}

func (p *Provider) Produce(_ context.Context, tid domain.TransportID, kind domain.MediaKind, rtp core.RTPParameters) (domain.ProducerID, error) {
	p.delay()
	if p.FailProduce != nil {
		return "", p.FailProduce
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.transports[tid]
	if !ok {
		return "", core.ErrTransportNotFound
	}
	if t.dir != domain.DirectionSend {
		return "", core.ErrWrongDirection
	}
	if len(rtp.Codecs) == 0 {
		return "", fmt.Errorf("no codecs: %w", core.ErrInvalid)
	}
	id := domain.ProducerID(p.nextID("producer"))
	p.producers[id] = &producer{transport: tid, kind: kind, mime: rtp.Codecs[0].MimeType}
	return id, nil
}

func (p *Provider) CloseProducer(_ context.Context, id domain.ProducerID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeProducerLocked(id)
	return nil
}

func (p *Provider) closeProducerLocked(id domain.ProducerID) {
	if _, ok := p.producers[id]; !ok {
		return
	}
	for cid, c := range p.consumers {
		if c.producer == id {
			delete(p.consumers, cid)
		}
	}
	delete(p.producers, id)
	p.closed = append(p.closed, string(id))
}

func (p *Provider) CanConsume(id domain.ProducerID, caps core.RTPCapabilities) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canConsumeLocked(id, caps)
}

func (p *Provider) canConsumeLocked(id domain.ProducerID, caps core.RTPCapabilities) bool {
	pr, ok := p.producers[id]
	if !ok {
		return false
	}
	for _, c := range caps.Codecs {
		if strings.EqualFold(c.MimeType, pr.mime) {
			return true
		}
	}
	return false
}

func (p *Provider) Consume(_ context.Context, tid domain.TransportID, id domain.ProducerID, caps core.RTPCapabilities) (core.ConsumerParams, error) {
	if p.BeforeConsume != nil {
		p.BeforeConsume()
	}
	p.delay()
	if p.FailConsume != nil {
		return core.ConsumerParams{}, p.FailConsume
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.transports[tid]
	if !ok {
		return core.ConsumerParams{}, core.ErrTransportNotFound
	}
	if t.dir != domain.DirectionRecv {
		return core.ConsumerParams{}, core.ErrWrongDirection
	}
	pr, ok := p.producers[id]
	if !ok {
		return core.ConsumerParams{}, core.ErrProducerGone
	}
	if !p.canConsumeLocked(id, caps) {
		return core.ConsumerParams{}, core.ErrCannotConsume
	}
	cid := domain.ConsumerID(p.nextID("consumer"))
	p.consumers[cid] = &consumer{transport: tid, producer: id}
	return core.ConsumerParams{
		ID:         cid,
		ProducerID: id,
		Kind:       pr.kind,
		RTPParameters: core.RTPParameters{
			MID:    string(cid),
			Codecs: []core.RTPCodecParameters{{MimeType: pr.mime}},
		},
	}, nil
}

func (p *Provider) CloseConsumer(_ context.Context, id domain.ConsumerID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.consumers[id]; ok {
		delete(p.consumers, id)
		p.closed = append(p.closed, string(id))
	}
	return nil
}

// Live returns how many transports, producers and consumers are open.
func (p *Provider) Live() (transports, producers, consumers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transports), len(p.producers), len(p.consumers)
}

func (p *Provider) Routers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.routers)
}

// Closed lists the ids closed so far, in order.
func (p *Provider) Closed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.closed...)
}
