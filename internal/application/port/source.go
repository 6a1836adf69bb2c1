package port

import (
	"context"

	"hydra/internal/domain"
)

// Source wraps one upstream price provider. Fetch returns a partial result:
// symbols the provider has no data for are simply absent. Transport errors,
// malformed payloads and timeouts never cross this boundary as errors, only
// as missing symbols. Implementations bound every call with their own
// timeout so one stuck provider cannot stall a cycle.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbols []domain.TrackedSymbol) map[string]domain.RawQuote
}
