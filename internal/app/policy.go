package app

import "github.com/dkeye/Huddle/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a session whose send queue is full.
type Policy interface {
	OnBackPressure(sid core.SessionID) BackpressureAction
}

// SimplePolicy kicks slow sessions. The client rejoins from scratch.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the frame and keeps the session.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(core.SessionID) BackpressureAction {
	return NoAction
}
