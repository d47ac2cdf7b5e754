package coach

import (
	"context"
	"fmt"
	"log/slog"

	"coach-annotator/internal/platform/metrics"
)

// Generator is the external text-generation capability: prompt in, raw text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fetcher produces coaching commentary and practice recommendations. Upstream
// failures never escape: once the retry budget is spent the deterministic
// fallback is returned instead.
type Fetcher struct {
	gen     Generator
	retrier *Retrier
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewFetcher returns a Fetcher. Metrics may be nil.
func NewFetcher(gen Generator, policy Policy, log *slog.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{gen: gen, retrier: NewRetrier(policy), log: log, metrics: m}
}

// Coaching returns commentary for segment (1-based) out of total.
func (f *Fetcher) Coaching(ctx context.Context, c Context, segment, total int) Commentary {
	var out Commentary
	ok := f.fetch(ctx, KindCoaching, CoachingPrompt(c, segment, total), func(raw string) error {
		cm, err := ParseCommentary(raw)
		if err != nil {
			return err
		}
		out = cm
		return nil
	}, slog.Int("segment", segment), slog.Int("total", total))
	if !ok {
		return FallbackCommentary(segment)
	}
	return out
}

// Recommendations returns the drill list for c.
func (f *Fetcher) Recommendations(ctx context.Context, c Context) []Recommendation {
	recs, _ := f.recommendations(ctx, c)
	return recs
}

// recommendations also reports whether the result came from the model.
func (f *Fetcher) recommendations(ctx context.Context, c Context) ([]Recommendation, bool) {
	var out []Recommendation
	ok := f.fetch(ctx, KindRecommendations, RecommendationsPrompt(c), func(raw string) error {
		recs, err := ParseRecommendations(raw)
		if err != nil {
			return err
		}
		out = recs
		return nil
	}, slog.String("terrain", c.Terrain))
	if !ok {
		return FallbackRecommendations(), false
	}
	return out, true
}

func (f *Fetcher) fetch(ctx context.Context, kind, prompt string, parse func(raw string) error, attrs ...any) bool {
	err := f.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		raw, err := f.gen.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() == nil {
				f.observe(kind, metrics.OutcomeCallError)
			}
			return err
		}
		if err := parse(raw); err != nil {
			f.observe(kind, metrics.OutcomeParseError)
			return fmt.Errorf("parse response: %w", err)
		}
		f.observe(kind, metrics.OutcomeSuccess)
		return nil
	}, func(attempt int, err error) {
		if ctx.Err() != nil {
			return
		}
		args := append([]any{
			slog.String("kind", kind),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.retrier.policy.MaxAttempts),
			slog.String("error", err.Error()),
		}, attrs...)
		f.log.Warn("text generation attempt failed", args...)
	})
	if err == nil {
		return true
	}
	// The caller went away; nothing upstream failed.
	if ctx.Err() != nil {
		f.log.Debug("text generation abandoned", append([]any{slog.String("kind", kind)}, attrs...)...)
		return false
	}

	f.log.Warn("serving fallback content", append([]any{slog.String("kind", kind)}, attrs...)...)
	if f.metrics != nil {
		f.metrics.IncFallbacks(kind)
	}
	return false
}

func (f *Fetcher) observe(kind, outcome string) {
	if f.metrics != nil {
		f.metrics.ObserveGenerationAttempt(kind, outcome)
	}
}
