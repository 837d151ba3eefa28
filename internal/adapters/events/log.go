// Package events holds the in-process event publishers.
package events

import (
	"context"
	"errors"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

// LogPublisher writes events to the log. It is the publisher used when no
// broker is configured.
type LogPublisher struct {
	log logging.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(log logging.Logger) *LogPublisher {
	if log == nil {
		log = logging.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := []any{
		"kind", event.Kind,
		"account", event.AccountIndex,
		"at", event.At,
	}
	if event.Email != "" {
		args = append(args, "email", event.Email)
	}
	if event.Detail != "" {
		args = append(args, "detail", event.Detail)
	}
	if event.CycleID != "" {
		args = append(args, "cycle_id", event.CycleID)
	}

	if event.Kind == domain.EventSessionDead {
		p.log.Warn(ctx, "keeper event", args...)
		return nil
	}
	p.log.Info(ctx, "keeper event", args...)
	return nil
}

// Fanout delivers every event to all publishers and joins their errors.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, publisher := range f {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
