package coach

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultFlightTimeout bounds a shared fetch once it no longer follows any caller's context.
const DefaultFlightTimeout = 2 * time.Minute

// RecommendationCache memoises model-generated drill lists per context.
// Fallback lists are never cached so a recovered upstream is picked up on the next request.
type RecommendationCache struct {
	fetcher       *Fetcher
	cache         *gocache.Cache
	group         singleflight.Group
	flightTimeout time.Duration
}

// NewRecommendationCache keeps entries for ttl.
func NewRecommendationCache(f *Fetcher, ttl time.Duration) *RecommendationCache {
	return &RecommendationCache{
		fetcher:       f,
		cache:         gocache.New(ttl, 2*ttl),
		flightTimeout: DefaultFlightTimeout,
	}
}

// Recommendations serves c from cache or fetches it. Concurrent misses for the
// same context share one fetch that outlives any single caller; a caller whose
// ctx ends first gets the fallback list and leaves the fetch running for the rest.
func (rc *RecommendationCache) Recommendations(ctx context.Context, c Context) []Recommendation {
	key := c.key()
	if v, ok := rc.cache.Get(key); ok {
		return cloneRecommendations(v.([]Recommendation))
	}

	ch := rc.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.flightTimeout)
		defer cancel()
		recs, fromModel := rc.fetcher.recommendations(fctx, c)
		if fromModel {
			rc.cache.SetDefault(key, recs)
		}
		return recs, nil
	})

	select {
	case res := <-ch:
		return cloneRecommendations(res.Val.([]Recommendation))
	case <-ctx.Done():
		return FallbackRecommendations()
	}
}

func cloneRecommendations(in []Recommendation) []Recommendation {
	out := make([]Recommendation, len(in))
	for i, r := range in {
		r.KeyPoints = slices.Clone(r.KeyPoints)
		out[i] = r
	}
	return out
}
