package rtc

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateDelete
)

// rtpWriter is the consumer side of a relay.
type rtpWriter interface {
	WriteRTP(p *rtp.Packet) error
}

// OutTrack is one consumer's outgoing copy of a producer's stream.
type OutTrack struct {
	Track rtpWriter
	state atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(track rtpWriter) *OutTrack {
	return &OutTrack{Track: track}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}
