// Package summary orchestrates the summarization pipeline: fingerprint,
// cache-first lookup, content acquisition, truncation, prompt resolution,
// backend call and cache write.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/compresso/core/internal/models"
	"github.com/compresso/core/internal/modules/backend"
	"github.com/compresso/core/internal/modules/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxContentChars is the hard ceiling on text sent to a backend. Longer
// inputs are truncated silently for the caller but logged for operators,
// since truncation changes summary fidelity without changing the cache key.
const maxContentChars = 100000

// ContentSource acquires raw text by mode.
type ContentSource interface {
	Acquire(ctx context.Context, input string, mode models.SummaryMode) (*source.Content, error)
}

// BackendSelector resolves a summarizer backend from options.
type BackendSelector interface {
	Select(opts models.SummaryOptions) (backend.Backend, error)
}

// TemplateResolver resolves a prompt template; it never fails.
type TemplateResolver interface {
	Resolve(mode models.SummaryMode, detail models.DetailLevel, locale string) string
}

// ResultCache is the summary store with its bounded recency index. All
// methods degrade on cache I/O failure instead of returning errors.
type ResultCache interface {
	Get(ctx context.Context, key string) *models.SummaryResult
	Put(ctx context.Context, key string, result *models.SummaryResult, addToRecency bool)
	ListRecent(ctx context.Context, limit int) []*models.SummaryResult
	Delete(ctx context.Context, key string)
	Capacity() int
}

// Service runs the pipeline.
type Service struct {
	sources  ContentSource
	backends BackendSelector
	prompts  TemplateResolver
	cache    ResultCache
	logger   *zap.Logger
	// flight collapses concurrent cache-miss computations for the same
	// fingerprint into a single acquisition + backend round trip.
	flight singleflight.Group
}

func NewService(sources ContentSource, backends BackendSelector, prompts TemplateResolver, cache ResultCache, logger *zap.Logger) *Service {
	return &Service{
		sources:  sources,
		backends: backends,
		prompts:  prompts,
		cache:    cache,
		logger:   logger,
	}
}

// Fingerprint derives the cache key from the input tuple. sha256 truncated
// to 16 hex characters: collision risk is negligible at this cache scale,
// a deliberate tradeoff rather than a correctness requirement.
func Fingerprint(input string, opts models.SummaryOptions) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%s", input, opts.Mode, opts.Detail, opts.Model)))
	return hex.EncodeToString(sum[:])[:16]
}

// Execute produces a SummaryResult for the input, returning the cached
// result unchanged when the fingerprint is already known. Failures in
// acquisition or the backend abort with no partial cache write.
func (s *Service) Execute(ctx context.Context, input string, opts models.SummaryOptions) (*models.SummaryResult, error) {
	fingerprint := Fingerprint(input, opts)

	if cached := s.cache.Get(ctx, fingerprint); cached != nil {
		s.logger.Info("cache hit", zap.String("fingerprint", fingerprint))
		return cached, nil
	}

	v, err, _ := s.flight.Do(fingerprint, func() (interface{}, error) {
		// A flight that queued behind a finished computation can serve
		// the fresh cache entry without recomputing.
		if cached := s.cache.Get(ctx, fingerprint); cached != nil {
			return cached, nil
		}
		// The computation is shared with every caller that joins the
		// flight, so it must outlive cancellation of the caller that
		// opened it.
		return s.compute(context.WithoutCancel(ctx), input, opts, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.SummaryResult), nil
}

func (s *Service) compute(ctx context.Context, input string, opts models.SummaryOptions, fingerprint string) (*models.SummaryResult, error) {
	s.logger.Info("processing summarization",
		zap.String("mode", string(opts.Mode)),
		zap.String("fingerprint", fingerprint),
	)

	// Unknown providers fail here, before any acquisition work.
	llm, err := s.backends.Select(opts)
	if err != nil {
		return nil, err
	}

	content, err := s.sources.Acquire(ctx, input, opts.Mode)
	if err != nil {
		return nil, err
	}

	if opts.Mode == models.ModeYouTube && opts.Detail == models.DetailLong {
		if has, ok := content.Meta[models.MetaHasTimestamps].(bool); ok && has {
			opts.WithTimestamps = true
		}
	}

	text := content.Text
	if runes := []rune(text); len(runes) > maxContentChars {
		s.logger.Warn("content too long, truncating",
			zap.Int("chars", len(runes)),
			zap.Int("limit", maxContentChars),
		)
		text = string(runes[:maxContentChars])
	}

	promptTemplate := s.prompts.Resolve(opts.Mode, opts.Detail, opts.Locale)

	summaryText, err := llm.Summarize(ctx, text, opts, promptTemplate)
	if err != nil {
		return nil, err
	}

	result := &models.SummaryResult{
		ID:               uuid.New().String(),
		CreatedAt:        time.Now().UTC(),
		Mode:             opts.Mode,
		Options:          opts,
		InputFingerprint: fingerprint,
		ContentMD:        summaryText,
		Source:           sourceReference(input, opts.Mode, content.Meta),
		Meta:             content.Meta,
	}

	// Fingerprint writes stay out of the recency index; only id-keyed
	// permalink writes opt in.
	s.cache.Put(ctx, fingerprint, result, false)

	s.logger.Info("summarization completed", zap.String("id", result.ID))
	return result, nil
}

// sourceReference reconstructs the original link for URL and YouTube inputs.
func sourceReference(input string, mode models.SummaryMode, meta map[string]interface{}) string {
	switch mode {
	case models.ModeURL:
		return input
	case models.ModeYouTube:
		if id, ok := meta[models.MetaVideoID].(string); ok && id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}
	return ""
}
