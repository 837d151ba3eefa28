package ports

import (
	"context"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

type ServerStatusLookup interface {
	Lookup(ctx context.Context, host string) (domain.ServerStatus, error)
}
