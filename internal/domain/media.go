package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownKind      = errors.New("unknown media kind")
	ErrUnknownDirection = errors.New("unknown transport direction")
)

type (
	TransportID string
	ProducerID  string
	ConsumerID  string
)

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

func ParseMediaKind(raw string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(raw)) {
	case KindAudio:
		return KindAudio, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", ErrUnknownKind
}

type Direction string

const (
	DirectionSend Direction = "send"
	DirectionRecv Direction = "recv"
)

func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(raw) {
	case "send", "producer":
		return DirectionSend, nil
	case "recv", "receive", "consumer":
		return DirectionRecv, nil
	}
	return "", ErrUnknownDirection
}
