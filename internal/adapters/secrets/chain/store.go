package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/boxtoplay-keeper/internal/adapters/secrets/file"
	passstore "github.com/bnema/boxtoplay-keeper/internal/adapters/secrets/pass"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

// Store resolves a reference from the first backend that knows it.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret chain has no backends")

func NewStore(backends ...ports.SecretStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("secret backend %d is nil", i)
		}
	}

	return &Store{backends: backends}, nil
}

// NewPassFirstWithFileFallback asks pass first and falls back to files under fileRoot.
func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldSkipFallback(err) {
			return "", err
		}
		errs = append(errs, err)
	}

	return "", fmt.Errorf("resolve secret %q: %w", key, errors.Join(errs...))
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
