package live

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
)

// probeRate keeps concurrent probes polite toward the watch pages.
// One request per second with a small burst is plenty for a 15-entry window.
var probeRate = rate.Limit(1)

// Resolver resolves live status for a cycle's candidate items.
//
// Probes run concurrently (bounded by workers) because they are independent
// I/O; the caller's decision step stays strictly sequential. A probe that
// cannot acquire the limiter before ctx expires degrades to unknown.
type Resolver struct {
	prober  Prober
	workers int
	limiter *rate.Limiter
}

func NewResolver(prober Prober, workers int) *Resolver {
	if workers <= 0 {
		workers = 3
	}
	return &Resolver{
		prober:  prober,
		workers: workers,
		limiter: rate.NewLimiter(probeRate, 2),
	}
}

// Resolve returns the per-item live status keyed by item id.
// Every candidate gets an entry; failures are already folded into
// Classify's conservative false.
func (r *Resolver) Resolve(ctx context.Context, items []feed.Item) map[string]Status {
	out := make(map[string]Status, len(items))
	if len(items) == 0 {
		return out
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)

	for _, it := range items {
		it := it
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			sig := Signal{Broadcast: BroadcastUnknown, Viewers: -1}
			if err := r.limiter.Wait(ctx); err == nil {
				sig = r.prober.Probe(ctx, it.Link)
			}
			st := Classify(sig)
			if st.Viewers < 0 {
				st.Viewers = it.Views
			}

			mu.Lock()
			out[it.ID] = st
			mu.Unlock()
		}()
	}
	wg.Wait()

	return out
}
