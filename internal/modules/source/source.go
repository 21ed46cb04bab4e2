// Package source acquires raw text for summarization. Each mode has its own
// provider; the dispatch table is fixed at construction time.
package source

import (
	"context"

	"github.com/compresso/core/internal/config"
	"github.com/compresso/core/internal/models"
	"go.uber.org/zap"
)

// Content is acquired text plus provider metadata.
type Content struct {
	Text string
	Meta map[string]interface{}
}

// Provider turns an input descriptor into raw text.
type Provider interface {
	Acquire(ctx context.Context, input string) (*Content, error)
}

// Source dispatches acquisition by summary mode.
type Source struct {
	text    Provider
	url     Provider
	youtube Provider
}

func New(cfg *config.AppConfig, logger *zap.Logger) *Source {
	return &Source{
		text:    textProvider{},
		url:     NewURLReader(logger),
		youtube: NewYouTubeProvider(cfg, logger),
	}
}

// Acquire fetches content for the given mode. Unknown modes are rejected as
// configuration errors.
func (s *Source) Acquire(ctx context.Context, input string, mode models.SummaryMode) (*Content, error) {
	switch mode {
	case models.ModeText:
		return s.text.Acquire(ctx, input)
	case models.ModeURL:
		return s.url.Acquire(ctx, input)
	case models.ModeYouTube:
		return s.youtube.Acquire(ctx, input)
	}
	return nil, &models.ConfigurationError{Reason: "unsupported mode: " + string(mode)}
}

// textProvider passes input through verbatim.
type textProvider struct{}

func (textProvider) Acquire(_ context.Context, input string) (*Content, error) {
	return &Content{Text: input, Meta: map[string]interface{}{}}, nil
}
