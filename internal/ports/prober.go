package ports

import (
	"context"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

// Prober issues exactly one request for a target and classifies it. It must
// not block past its own timeout and never mutates keeper state.
type Prober interface {
	Probe(ctx context.Context, target domain.ProbeTarget) domain.ProbeOutcome
}
