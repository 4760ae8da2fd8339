package directory

import (
	"context"
	"fmt"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

// RegistryLoader loads directory markets through the provider registry,
// falling back across every provider that serves the Directory model.
type RegistryLoader struct {
	Registry *provider.Registry
}

// NewRegistryLoader creates a loader over reg.
func NewRegistryLoader(reg *provider.Registry) *RegistryLoader {
	return &RegistryLoader{Registry: reg}
}

// Load fetches one market. Entries outside the requested market are dropped.
func (l *RegistryLoader) Load(ctx context.Context, market models.Market) ([]models.DirectoryEntry, error) {
	res, err := l.Registry.FetchWithFallback(ctx, provider.ModelDirectory, provider.QueryParams{
		provider.ParamMarket: string(market),
	})
	if err != nil {
		return nil, err
	}
	entries, ok := res.Data.([]models.DirectoryEntry)
	if !ok {
		return nil, fmt.Errorf("provider %s returned %T for %s", res.Provider, res.Data, provider.ModelDirectory)
	}

	out := make([]models.DirectoryEntry, 0, len(entries))
	for _, e := range entries {
		if market.Includes(e.Market) {
			out = append(out, e)
		}
	}
	return out, nil
}
