package fanout

import (
	"strings"

	"github.com/dkeye/Huddle/internal/domain"
)

// GroupID names a set of connections. Names are namespaced so a room and a
// channel with the same id never share members.
type GroupID string

const (
	roomPrefix    = "room:"
	channelPrefix = "channel:"
	teamPrefix    = "team:"
)

func RoomGroup(id domain.RoomID) GroupID { return GroupID(roomPrefix + string(id)) }
func ChannelGroup(id string) GroupID     { return GroupID(channelPrefix + id) }
func TeamGroup(id string) GroupID        { return GroupID(teamPrefix + id) }

// Room returns the room id behind a room group.
func (g GroupID) Room() (domain.RoomID, bool) {
	id, ok := strings.CutPrefix(string(g), roomPrefix)
	return domain.RoomID(id), ok
}

func (g GroupID) Channel() (string, bool) {
	return strings.CutPrefix(string(g), channelPrefix)
}
