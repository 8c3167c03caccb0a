package rtc

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	packets chan *rtp.Packet
}

func (s *chanSource) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	pkt, ok := <-s.packets
	if !ok {
		return nil, nil, io.EOF
	}
	return pkt, nil, nil
}

type recordingWriter struct {
	mu   sync.Mutex
	seqs []uint16
	err  error
}

func (w *recordingWriter) WriteRTP(p *rtp.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.seqs = append(w.seqs, p.SequenceNumber)
	return nil
}

func (w *recordingWriter) got() []uint16 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uint16(nil), w.seqs...)
}

func runRelay(t *testing.T, src rtpSource) (*Relay, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRelay(src, cancel)
	logger := zerolog.Nop()
	go r.loop(ctx, &logger)
	return r, cancel
}

func TestRelayForwardsToEveryOutTrack(t *testing.T) {
	t.Parallel()
	src := &chanSource{packets: make(chan *rtp.Packet)}
	a, b := &recordingWriter{}, &recordingWriter{}
	r, cancel := runRelay(t, src)
	defer cancel()
	r.AddOutTrack("c1", NewOutTrack(a))
	r.AddOutTrack("c2", NewOutTrack(b))

	for seq := uint16(1); seq <= 3; seq++ {
		src.packets <- &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}}
	}
	close(src.packets)
	<-r.done

	require.Equal(t, []uint16{1, 2, 3}, a.got())
	require.Equal(t, []uint16{1, 2, 3}, b.got())
}

func TestRelayDropsFailingOutTrack(t *testing.T) {
	t.Parallel()
	src := &chanSource{packets: make(chan *rtp.Packet)}
	good, bad := &recordingWriter{}, &recordingWriter{err: errors.New("closed pipe")}
	r, cancel := runRelay(t, src)
	defer cancel()
	r.AddOutTrack("good", NewOutTrack(good))
	badTrack := NewOutTrack(bad)
	r.AddOutTrack("bad", badTrack)

	src.packets <- &rtp.Packet{Header: rtp.Header{SequenceNumber: 7}}
	src.packets <- &rtp.Packet{Header: rtp.Header{SequenceNumber: 8}}

	require.Eventually(t, func() bool { return r.OutTrackCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, TrackStateDelete, badTrack.GetState())

	r.RemoveOutTrack("good")
	require.Zero(t, r.OutTrackCount())
	close(src.packets)
	<-r.done
	require.Equal(t, []uint16{7, 8}, good.got())
}

func TestRelayStopMarksTracks(t *testing.T) {
	t.Parallel()
	src := &chanSource{packets: make(chan *rtp.Packet)}
	r, cancel := runRelay(t, src)
	defer cancel()
	ot := NewOutTrack(&recordingWriter{})
	r.AddOutTrack("c1", ot)

	r.Stop()
	require.Equal(t, TrackStateDelete, ot.GetState())
	close(src.packets)
	<-r.done
}
