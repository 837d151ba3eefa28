package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
)

const (
	DefaultServerPath      = "/fr/minecraft/serveur/%s"
	DefaultMaintenancePath = "/fr/profil"
)

type ProberConfig struct {
	// ServerPath is a format string taking the server id.
	ServerPath      string
	MaintenancePath string
}

// Prober issues one request per account: the server page when a server id
// is known, the profile page otherwise.
type Prober struct {
	factory *Factory
	cfg     ProberConfig
	log     logging.Logger
}

func NewProber(factory *Factory, cfg ProberConfig, log logging.Logger) *Prober {
	if cfg.ServerPath == "" {
		cfg.ServerPath = DefaultServerPath
	}
	if cfg.MaintenancePath == "" {
		cfg.MaintenancePath = DefaultMaintenancePath
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Prober{factory: factory, cfg: cfg, log: log}
}

func (p *Prober) Probe(ctx context.Context, target domain.ProbeTarget) domain.ProbeOutcome {
	path := p.PathFor(target)
	p.log.Debug(ctx, "probing session", "account", target.Index, "path", path)

	return p.factory.ClientFor(target.Account).Get(ctx, path)
}

func (p *Prober) PathFor(target domain.ProbeTarget) string {
	if id := strings.TrimSpace(target.ServerID); id != "" {
		return fmt.Sprintf(p.cfg.ServerPath, id)
	}
	return p.cfg.MaintenancePath
}
