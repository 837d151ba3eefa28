package ports

import (
	"context"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
