package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// Verifier resolves a bearer token to a user. Failures wrap ErrAuth.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// MessageStore persists chat messages. Callers do not wait on it before
// delivering a message in real time.
type MessageStore interface {
	Save(ctx context.Context, msg *domain.Message) error
	Recent(ctx context.Context, channel string, limit int) ([]domain.Message, error)
}
