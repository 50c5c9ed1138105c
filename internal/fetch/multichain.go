package fetch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/dex-stats-api/internal/model"
)

// FetchAll fetches stats for every configured chain concurrently. The result has one entry per
// chain, in registry order, whatever order the chains complete in. A failing chain only
// affects its own entry.
func (f *Fetcher) FetchAll(ctx context.Context) []model.ExchangeStats {
	chains := f.chains.Configured()
	results := make([]model.ExchangeStats, len(chains))

	var wg sync.WaitGroup
	for i, chain := range chains {
		wg.Add(1)
		go func(i int, chain string) {
			defer wg.Done()
			results[i] = f.FetchStats(ctx, chain)
		}(i, chain)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logrus.Infof("Fetched stats from %d/%d chains", len(chains)-failed, len(chains))

	return results
}
