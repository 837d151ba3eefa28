package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

var ErrStatusLookupUnavailable = errors.New("server status lookup is not configured")

// Commands is the operator surface over a running keeper. Each command is a
// single read or a single persistence call.
type Commands struct {
	keeper        *Keeper
	status        ports.ServerStatusLookup
	dns           string
	sessionCookie string
}

func NewCommands(keeper *Keeper, status ports.ServerStatusLookup, dns, sessionCookie string) *Commands {
	if sessionCookie == "" {
		sessionCookie = domain.DefaultSessionCookie
	}

	return &Commands{
		keeper:        keeper,
		status:        status,
		dns:           dns,
		sessionCookie: sessionCookie,
	}
}

func (c *Commands) SessionInfo() Info {
	info := Info{
		KeeperState: c.keeper.State(),
		DNS:         c.dns,
	}
	if err := c.keeper.LoadError(); err != nil {
		info.LoadError = err.Error()
	}
	if cycle, ok := c.keeper.LastCycle(); ok {
		info.LastCycle = &cycle
	}

	doc, loaded := c.keeper.Cache().Snapshot()
	if !loaded {
		info.State = InfoNotLoaded
		return info
	}

	info.DocumentName = c.keeper.Cache().Name()
	info.ServerID = doc.CurrentServerID
	info.LastSyncTime = doc.LastSyncTime
	if len(doc.Accounts) == 0 {
		info.State = InfoEmpty
		return info
	}
	info.State = InfoReady

	if active, index, ok := doc.ActiveAccount(); ok {
		info.ActiveEmail = active.Email
		info.ActiveIndex = &index
	}

	health := map[int]domain.AccountHealth{}
	for _, h := range c.keeper.Health() {
		health[h.Index] = h
	}

	info.Accounts = make([]AccountInfo, 0, len(doc.Accounts))
	for i, account := range doc.Accounts {
		session := account.Cookie(c.sessionCookie)
		item := AccountInfo{
			Index:      i,
			Email:      account.Email,
			ServerID:   doc.TargetServerID(i),
			Active:     doc.IsActive(i),
			HasSession: session != "",
		}
		if session != "" {
			item.Fingerprint = logging.Fingerprint(session)
		}
		if h, ok := health[i]; ok {
			item.Health = &h
		}
		info.Accounts = append(info.Accounts, item)
	}

	return info
}

func (c *Commands) ForceSync(ctx context.Context) (time.Time, error) {
	syncAt, err := c.keeper.ForceSync(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("force sync: %w", err)
	}
	return syncAt, nil
}

func (c *Commands) TargetStatus(ctx context.Context) (TargetStatus, error) {
	if c.status == nil {
		return TargetStatus{}, ErrStatusLookupUnavailable
	}

	status, err := c.status.Lookup(ctx, c.dns)
	if err != nil {
		return TargetStatus{}, fmt.Errorf("lookup server status: %w", err)
	}
	return TargetStatus{DNS: c.dns, Status: status}, nil
}

func (c *Commands) Reload(ctx context.Context) error {
	if err := c.keeper.Reload(ctx); err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	return nil
}

// Refresh runs one probe cycle outside the schedule. progress may be nil.
func (c *Commands) Refresh(ctx context.Context, progress func(CycleProgress)) CycleReport {
	return c.keeper.RefreshCycleWithProgress(ctx, progress)
}
