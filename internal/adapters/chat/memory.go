// Package chat holds chat message storage.
package chat

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

const DefaultPerChannel = 200

// MemoryStore keeps the newest messages of each channel in memory.
type MemoryStore struct {
	perChannel int

	mu       sync.RWMutex
	channels map[string][]domain.Message
}

func NewMemoryStore(perChannel int) *MemoryStore {
	if perChannel <= 0 {
		perChannel = DefaultPerChannel
	}
	return &MemoryStore{perChannel: perChannel, channels: make(map[string][]domain.Message)}
}

var _ core.MessageStore = (*MemoryStore)(nil)

func (s *MemoryStore) Save(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.channels[msg.Channel], *msg)
	if over := len(list) - s.perChannel; over > 0 {
		list = append([]domain.Message(nil), list[over:]...)
	}
	s.channels[msg.Channel] = list
	return nil
}

// Recent returns up to limit messages of channel, oldest first.
func (s *MemoryStore) Recent(ctx context.Context, channel string, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.channels[channel]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]domain.Message, len(list))
	copy(out, list)
	return out, nil
}
