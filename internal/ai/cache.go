package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/classgrade/grading-engine/internal/cache"
	"github.com/classgrade/grading-engine/internal/utils"
)

const cacheTTL = 24 * time.Hour

// CachedGrader memoizes Grade responses in a shared cache keyed by the full
// request. Identical answers to the same question across a class are common,
// so this saves repeat round-trips to the grading service. Unavailable
// sentinels are never cached.
type CachedGrader struct {
	inner  SemanticGrader
	cache  cache.CacheService
	logger utils.Logger
}

func NewCachedGrader(inner SemanticGrader, cacheService cache.CacheService, logger utils.Logger) *CachedGrader {
	return &CachedGrader{
		inner:  inner,
		cache:  cacheService,
		logger: logger,
	}
}

func (g *CachedGrader) Grade(ctx context.Context, req GradeRequest) (*GradeResult, error) {
	key := gradeCacheKey(req)

	var cached GradeResult
	err := g.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		g.logger.Warn("Semantic grade cache read failed", "error", err)
	}

	result, err := g.inner.Grade(ctx, req)
	if err != nil {
		return nil, err
	}

	if !result.Unavailable {
		if err := g.cache.Set(ctx, key, result, cacheTTL); err != nil {
			g.logger.Warn("Semantic grade cache write failed", "error", err)
		}
	}
	return result, nil
}

// Summarize is not cached; summaries depend on whole-submission context that
// rarely repeats.
func (g *CachedGrader) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	return g.inner.Summarize(ctx, req)
}

func gradeCacheKey(req GradeRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%g|%.3f",
		req.QuestionText, req.QuestionType, req.Reference, req.Response, req.Points, req.Strictness)
	return "semgrade:" + hex.EncodeToString(h.Sum(nil))
}
