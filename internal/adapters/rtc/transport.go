package rtc

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type router struct {
	id     domain.RouterID
	codecs []core.RTPCodecCapability
	api    *webrtc.API
}

// transport is one ORTC ICE+DTLS stack. The server side is always ICE
// controlled; the client drives nomination.
type transport struct {
	id     domain.TransportID
	router *router
	dir    domain.Direction

	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport

	mu        sync.Mutex
	connected bool
	closed    bool
}

func newTransport(id domain.TransportID, r *router, dir domain.Direction, servers []webrtc.ICEServer) (*transport, error) {
	gatherer, err := r.api.NewICEGatherer(webrtc.ICEGatherOptions{ICEServers: servers})
	if err != nil {
		return nil, err
	}
	ice := r.api.NewICETransport(gatherer)
	dtls, err := r.api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, err
	}
	t := &transport{id: id, router: r, dir: dir, gatherer: gatherer, ice: ice, dtls: dtls}
	ice.OnConnectionStateChange(func(s webrtc.ICETransportState) {
		ev := log.Info()
		if s == webrtc.ICETransportStateFailed {
			ev = log.Warn()
		}
		ev.Str("module", "rtc").Str("transport", string(id)).Str("ice_state", s.String()).Msg("ICE state")
	})
	dtls.OnStateChange(func(s webrtc.DTLSTransportState) {
		log.Info().Str("module", "rtc").Str("transport", string(id)).Str("dtls_state", s.String()).Msg("DTLS state")
	})
	return t, nil
}

// gather collects local candidates and returns the parameters the client
// needs to reach this transport.
func (t *transport) gather(ctx context.Context) (core.TransportParams, error) {
	done := make(chan struct{})
	var once sync.Once
	t.gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			once.Do(func() { close(done) })
		}
	})
	if err := t.gatherer.Gather(); err != nil {
		return core.TransportParams{}, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return core.TransportParams{}, ctx.Err()
	}

	cands, err := t.gatherer.GetLocalCandidates()
	if err != nil {
		return core.TransportParams{}, err
	}
	iceParams, err := t.gatherer.GetLocalParameters()
	if err != nil {
		return core.TransportParams{}, err
	}
	dtlsParams, err := t.dtls.GetLocalParameters()
	if err != nil {
		return core.TransportParams{}, err
	}
	return core.TransportParams{
		ID:             t.id,
		ICEParameters:  iceParamsFrom(iceParams),
		ICECandidates:  candidatesFrom(cands),
		DTLSParameters: dtlsFrom(dtlsParams),
	}, nil
}

// connect runs ICE and the DTLS handshake against the client's parameters.
// Both steps block until they finish; ctx ending tears the transport down.
func (t *transport) connect(ctx context.Context, remote core.ConnectParams) error {
	cands, err := candidatesTo(remote.ICECandidates)
	if err != nil {
		return err
	}
	dtlsParams, err := dtlsTo(remote.DTLSParameters)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.ErrTransportNotFound
	}
	if t.connected {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		if err := t.ice.SetRemoteCandidates(cands); err != nil {
			done <- err
			return
		}
		role := webrtc.ICERoleControlled
		if err := t.ice.Start(t.gatherer, iceParamsTo(remote.ICEParameters), &role); err != nil {
			done <- err
			return
		}
		done <- t.dtls.Start(dtlsParams)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		t.connected = true
		return nil
	case <-ctx.Done():
		t.stopLocked()
		return ctx.Err()
	}
}

func (t *transport) isConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected && !t.closed
}

func (t *transport) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *transport) stopLocked() {
	if t.closed {
		return
	}
	t.closed = true
	if err := t.dtls.Stop(); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("transport", string(t.id)).Msg("dtls stop")
	}
	if err := t.ice.Stop(); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("transport", string(t.id)).Msg("ice stop")
	}
	if err := t.gatherer.Close(); err != nil {
		log.Debug().Err(err).Str("module", "rtc").Str("transport", string(t.id)).Msg("gatherer close")
	}
}
