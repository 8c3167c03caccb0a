// Package rtc implements core.Provider on top of pion's ORTC objects. Each
// router owns a MediaEngine restricted to the room's codecs; each producer
// runs a relay that copies its RTP to every consumer track.
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ICEServers []webrtc.ICEServer
	// MinPort and MaxPort bound the UDP ports used for ICE. Zero leaves the
	// range to the OS.
	MinPort uint16
	MaxPort uint16
	// AnnouncedIP replaces host candidate addresses, for servers behind a
	// 1:1 NAT.
	AnnouncedIP string
	LogLevel    zerolog.Level
}

type producer struct {
	id        domain.ProducerID
	kind      domain.MediaKind
	transport *transport
	receiver  *webrtc.RTPReceiver
	codec     core.RTPCodecCapability
	ssrc      uint32
	relay     *Relay
}

type consumer struct {
	id        domain.ConsumerID
	producer  *producer
	transport *transport
	sender    *webrtc.RTPSender
}

type Provider struct {
	settings   webrtc.SettingEngine
	iceServers []webrtc.ICEServer

	mu         sync.RWMutex
	routers    map[domain.RouterID]*router
	transports map[domain.TransportID]*transport
	producers  map[domain.ProducerID]*producer
	consumers  map[domain.ConsumerID]*consumer
}

func NewProvider(opts Options) (*Provider, error) {
	se := webrtc.SettingEngine{LoggerFactory: NewLoggerFactory(opts.LogLevel)}
	if opts.MinPort != 0 || opts.MaxPort != 0 {
		if err := se.SetEphemeralUDPPortRange(opts.MinPort, opts.MaxPort); err != nil {
			return nil, fmt.Errorf("rtc port range: %w", err)
		}
	}
	if opts.AnnouncedIP != "" {
		se.SetNAT1To1IPs([]string{opts.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}
	return &Provider{
		settings:   se,
		iceServers: opts.ICEServers,
		routers:    make(map[domain.RouterID]*router),
		transports: make(map[domain.TransportID]*transport),
		producers:  make(map[domain.ProducerID]*producer),
		consumers:  make(map[domain.ConsumerID]*consumer),
	}, nil
}

var _ core.Provider = (*Provider)(nil)

func (p *Provider) CreateRouter(_ context.Context, codecs []core.RTPCodecCapability) (core.RouterCapabilities, error) {
	codecs, err := normalizeCodecs(codecs)
	if err != nil {
		return core.RouterCapabilities{}, err
	}
	me := &webrtc.MediaEngine{}
	for _, c := range codecs {
		if err := me.RegisterCodec(toWebRTCCodec(c), codecType(c.Kind)); err != nil {
			return core.RouterCapabilities{}, fmt.Errorf("register %s: %w", c.MimeType, err)
		}
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(me, ir); err != nil {
		return core.RouterCapabilities{}, fmt.Errorf("interceptors: %w", err)
	}
	r := &router{
		id:     domain.RouterID(uuid.NewString()),
		codecs: codecs,
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(me),
			webrtc.WithSettingEngine(p.settings),
			webrtc.WithInterceptorRegistry(ir),
		),
	}

	p.mu.Lock()
	p.routers[r.id] = r
	p.mu.Unlock()
	log.Info().Str("module", "rtc").Str("router", string(r.id)).Int("codecs", len(codecs)).Msg("router created")

	return core.RouterCapabilities{
		RouterID:        r.id,
		RTPCapabilities: core.RTPCapabilities{Codecs: codecs},
	}, nil
}

func (p *Provider) CloseRouter(ctx context.Context, id domain.RouterID) error {
	p.mu.Lock()
	_, ok := p.routers[id]
	delete(p.routers, id)
	var owned []domain.TransportID
	for tid, t := range p.transports {
		if t.router.id == id {
			owned = append(owned, tid)
		}
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}
	for _, tid := range owned {
		_ = p.CloseTransport(ctx, tid)
	}
	log.Info().Str("module", "rtc").Str("router", string(id)).Int("transports", len(owned)).Msg("router closed")
	return nil
}

func (p *Provider) CreateTransport(ctx context.Context, routerID domain.RouterID, dir domain.Direction) (core.TransportParams, error) {
	p.mu.RLock()
	r, ok := p.routers[routerID]
	p.mu.RUnlock()
	if !ok {
		return core.TransportParams{}, fmt.Errorf("router %s: %w", routerID, core.ErrNotFound)
	}

	t, err := newTransport(domain.TransportID(uuid.NewString()), r, dir, p.iceServers)
	if err != nil {
		return core.TransportParams{}, err
	}
	params, err := t.gather(ctx)
	if err != nil {
		t.close()
		return core.TransportParams{}, err
	}

	p.mu.Lock()
	if _, alive := p.routers[routerID]; !alive {
		p.mu.Unlock()
		t.close()
		return core.TransportParams{}, fmt.Errorf("router %s: %w", routerID, core.ErrNotFound)
	}
	p.transports[t.id] = t
	p.mu.Unlock()

	log.Info().Str("module", "rtc").Str("transport", string(t.id)).Str("direction", string(dir)).
		Int("candidates", len(params.ICECandidates)).Msg("transport created")
	return params, nil
}

func (p *Provider) ConnectTransport(ctx context.Context, id domain.TransportID, remote core.ConnectParams) error {
	t, err := p.transport(id)
	if err != nil {
		return err
	}
	if err := t.connect(ctx, remote); err != nil {
		return err
	}
	log.Info().Str("module", "rtc").Str("transport", string(id)).Msg("transport connected")
	return nil
}

func (p *Provider) CloseTransport(_ context.Context, id domain.TransportID) error {
	p.mu.Lock()
	t, ok := p.transports[id]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.transports, id)
	var prods []*producer
	for pid, pr := range p.producers {
		if pr.transport == t {
			prods = append(prods, pr)
			delete(p.producers, pid)
		}
	}
	var cons []*consumer
	for cid, c := range p.consumers {
		if c.transport == t || c.producer.transport == t {
			cons = append(cons, c)
			delete(p.consumers, cid)
		}
	}
	p.mu.Unlock()

	for _, c := range cons {
		c.stop()
	}
	for _, pr := range prods {
		pr.stop()
	}
	t.close()
	log.Info().Str("module", "rtc").Str("transport", string(id)).Msg("transport closed")
	return nil
}

func (p *Provider) Produce(_ context.Context, transportID domain.TransportID, kind domain.MediaKind, params core.RTPParameters) (domain.ProducerID, error) {
	t, err := p.transport(transportID)
	if err != nil {
		return "", err
	}
	if t.dir != domain.DirectionSend {
		return "", core.ErrWrongDirection
	}
	if !t.isConnected() {
		return "", core.ErrTransportNotConnected
	}
	if len(params.Codecs) == 0 || len(params.Encodings) == 0 || params.Encodings[0].SSRC == 0 {
		return "", fmt.Errorf("%w: rtp parameters need a codec and an ssrc", core.ErrInvalid)
	}
	codec, ok := findCodec(t.router.codecs, kind, params.Codecs[0])
	if !ok {
		return "", fmt.Errorf("%w: codec %q not enabled in this room", core.ErrInvalid, params.Codecs[0].MimeType)
	}

	receiver, err := t.router.api.NewRTPReceiver(codecType(kind), t.dtls)
	if err != nil {
		return "", err
	}
	ssrc := params.Encodings[0].SSRC
	err = receiver.Receive(webrtc.RTPReceiveParameters{Encodings: []webrtc.RTPDecodingParameters{{
		RTPCodingParameters: webrtc.RTPCodingParameters{
			SSRC:        webrtc.SSRC(ssrc),
			PayloadType: webrtc.PayloadType(codec.PreferredPayloadType),
		},
	}}})
	if err != nil {
		_ = receiver.Stop()
		return "", err
	}

	id := domain.ProducerID(uuid.NewString())
	relayCtx, cancel := context.WithCancel(context.Background())
	pr := &producer{
		id:        id,
		kind:      kind,
		transport: t,
		receiver:  receiver,
		codec:     codec,
		ssrc:      ssrc,
		relay:     NewRelay(receiver.Track(), cancel),
	}

	p.mu.Lock()
	if _, alive := p.transports[transportID]; !alive {
		p.mu.Unlock()
		pr.stop()
		return "", core.ErrTransportNotFound
	}
	p.producers[id] = pr
	p.mu.Unlock()

	logger := log.With().Str("module", "relay").Str("producer", string(id)).Logger()
	go pr.relay.loop(relayCtx, &logger)
	logger.Info().Str("kind", string(kind)).Str("codec", codec.MimeType).Uint32("ssrc", ssrc).Msg("producer started")
	return id, nil
}

func (p *Provider) CloseProducer(_ context.Context, id domain.ProducerID) error {
	p.mu.Lock()
	pr, ok := p.producers[id]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.producers, id)
	var cons []*consumer
	for cid, c := range p.consumers {
		if c.producer == pr {
			cons = append(cons, c)
			delete(p.consumers, cid)
		}
	}
	p.mu.Unlock()

	for _, c := range cons {
		c.stop()
	}
	pr.stop()
	log.Info().Str("module", "rtc").Str("producer", string(id)).Int("consumers", len(cons)).Msg("producer closed")
	return nil
}

func (p *Provider) CanConsume(producerID domain.ProducerID, caps core.RTPCapabilities) bool {
	p.mu.RLock()
	pr, ok := p.producers[producerID]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	_, ok = matchCodec(pr.codec, caps)
	return ok
}

func (p *Provider) Consume(_ context.Context, transportID domain.TransportID, producerID domain.ProducerID, caps core.RTPCapabilities) (core.ConsumerParams, error) {
	t, err := p.transport(transportID)
	if err != nil {
		return core.ConsumerParams{}, err
	}
	if t.dir != domain.DirectionRecv {
		return core.ConsumerParams{}, core.ErrWrongDirection
	}
	if !t.isConnected() {
		return core.ConsumerParams{}, core.ErrTransportNotConnected
	}
	p.mu.RLock()
	pr, ok := p.producers[producerID]
	p.mu.RUnlock()
	if !ok {
		return core.ConsumerParams{}, core.ErrProducerGone
	}
	if _, ok := matchCodec(pr.codec, caps); !ok {
		return core.ConsumerParams{}, core.ErrCannotConsume
	}

	id := domain.ConsumerID(uuid.NewString())
	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:    pr.codec.MimeType,
		ClockRate:   pr.codec.ClockRate,
		Channels:    pr.codec.Channels,
		SDPFmtpLine: pr.codec.SDPFmtpLine,
	}, string(id), string(pr.id))
	if err != nil {
		return core.ConsumerParams{}, err
	}
	sender, err := t.router.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return core.ConsumerParams{}, err
	}
	if err := sender.Send(sender.GetParameters()); err != nil {
		_ = sender.Stop()
		return core.ConsumerParams{}, err
	}
	sent := sender.GetParameters()
	c := &consumer{id: id, producer: pr, transport: t, sender: sender}

	p.mu.Lock()
	if _, alive := p.producers[producerID]; !alive {
		p.mu.Unlock()
		c.stop()
		return core.ConsumerParams{}, core.ErrProducerGone
	}
	p.consumers[id] = c
	p.mu.Unlock()

	pr.relay.AddOutTrack(id, NewOutTrack(track))
	go c.readRTCP()
	pr.requestKeyframe()

	var ssrc uint32
	if len(sent.Encodings) > 0 {
		ssrc = uint32(sent.Encodings[0].SSRC)
	}
	log.Info().Str("module", "rtc").Str("consumer", string(id)).Str("producer", string(producerID)).Msg("consumer started")
	return core.ConsumerParams{
		ID:         id,
		ProducerID: producerID,
		Kind:       pr.kind,
		RTPParameters: core.RTPParameters{
			MID:       string(id),
			Codecs:    []core.RTPCodecParameters{toCodecParameters(pr.codec)},
			Encodings: []core.RTPEncoding{{SSRC: ssrc}},
		},
	}, nil
}

func (p *Provider) CloseConsumer(_ context.Context, id domain.ConsumerID) error {
	p.mu.Lock()
	c, ok := p.consumers[id]
	delete(p.consumers, id)
	p.mu.Unlock()
	if ok {
		c.stop()
	}
	return nil
}

func (p *Provider) transport(id domain.TransportID) (*transport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.transports[id]
	if !ok {
		return nil, core.ErrTransportNotFound
	}
	return t, nil
}

func (pr *producer) stop() {
	pr.relay.Stop()
	if err := pr.receiver.Stop(); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("producer", string(pr.id)).Msg("receiver stop")
	}
}

// requestKeyframe asks the producing client for a fresh keyframe.
func (pr *producer) requestKeyframe() {
	if pr.kind != domain.KindVideo {
		return
	}
	pkt := &rtcp.PictureLossIndication{MediaSSRC: pr.ssrc}
	if _, err := pr.transport.dtls.WriteRTCP([]rtcp.Packet{pkt}); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("producer", string(pr.id)).Msg("write PLI")
	}
}

func (c *consumer) stop() {
	c.producer.relay.RemoveOutTrack(c.id)
	if err := c.sender.Stop(); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("consumer", string(c.id)).Msg("sender stop")
	}
}

// readRTCP drains the consumer's RTCP so interceptors keep running and
// forwards keyframe requests upstream.
func (c *consumer) readRTCP() {
	for {
		pkts, _, err := c.sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				c.producer.requestKeyframe()
			}
		}
	}
}
