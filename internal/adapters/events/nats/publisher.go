// Package nats publishes keeper events on NATS subjects of the form
// <prefix>.<event kind>, for example keeper.session.dead.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

const DefaultSubjectPrefix = "keeper"

type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ReconnectWait time.Duration
	MaxReconnects int
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "boxtoplay-keeper",
		SubjectPrefix: DefaultSubjectPrefix,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type Publisher struct {
	conn   conn
	prefix string
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Connect dials the server. Connection state changes are logged.
func Connect(ctx context.Context, cfg Config, log logging.Logger) (*Publisher, error) {
	if log == nil {
		log = logging.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaults.ReconnectWait
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaults.MaxReconnects
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn(ctx, "nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(ctx, "nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info(ctx, "nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info(ctx, "nats connected", "url", nc.ConnectedUrl())

	return newPublisher(nc, cfg.SubjectPrefix), nil
}

func newPublisher(c conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: c, prefix: prefix}
}

func (p *Publisher) Subject(kind domain.EventKind) string {
	return p.prefix + "." + string(kind)
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Kind, err)
	}

	subject := p.Subject(event.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
