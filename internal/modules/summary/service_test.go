package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/compresso/core/internal/models"
	"github.com/compresso/core/internal/modules/backend"
	"github.com/compresso/core/internal/modules/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	content *source.Content
	err     error
	calls   int
}

func (s *stubSource) Acquire(ctx context.Context, input string, mode models.SummaryMode) (*source.Content, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.content != nil {
		return s.content, nil
	}
	return &source.Content{Text: input, Meta: map[string]interface{}{}}, nil
}

type stubBackend struct {
	summary string
	err     error
	// block, when set, holds the call open until closed; started is
	// closed once the first call is underway.
	block       chan struct{}
	started     chan struct{}
	startedOnce sync.Once
	calls       int
	lastText    string
	lastOpts    models.SummaryOptions
}

func (b *stubBackend) Summarize(ctx context.Context, text string, opts models.SummaryOptions, promptTemplate string) (string, error) {
	b.calls++
	b.lastText = text
	b.lastOpts = opts
	if b.started != nil {
		b.startedOnce.Do(func() { close(b.started) })
	}
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.err != nil {
		return "", b.err
	}
	return b.summary, nil
}

type stubSelector struct {
	backend backend.Backend
	err     error
}

func (s *stubSelector) Select(opts models.SummaryOptions) (backend.Backend, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.backend, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(mode models.SummaryMode, detail models.DetailLevel, locale string) string {
	return "Summarize:\n\n{content}"
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.SummaryResult
	recency []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*models.SummaryResult{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) *models.SummaryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

func (c *memoryCache) Put(ctx context.Context, key string, result *models.SummaryResult, addToRecency bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	if addToRecency {
		c.recency = append(c.recency, key)
	}
}

func (c *memoryCache) ListRecent(ctx context.Context, limit int) []*models.SummaryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.SummaryResult
	for i := len(c.recency) - 1; i >= 0 && len(out) < limit; i-- {
		if r := c.entries[c.recency[i]]; r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c *memoryCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Capacity() int { return 50 }

func newTestService(src *stubSource, be *stubBackend, cache *memoryCache) *Service {
	return NewService(src, &stubSelector{backend: be}, stubResolver{}, cache, zap.NewNop())
}

func textOpts(detail models.DetailLevel) models.SummaryOptions {
	return models.SummaryOptions{
		Mode:   models.ModeText,
		Detail: detail,
		Model:  "openai:gpt-4o-mini",
		Locale: "en",
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	opts := textOpts(models.DetailMedium)

	a := Fingerprint("hello world", opts)
	b := Fingerprint("hello world", opts)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFingerprintVariesWithComponents(t *testing.T) {
	base := textOpts(models.DetailMedium)
	fp := Fingerprint("hello", base)

	assert.NotEqual(t, fp, Fingerprint("other", base))

	changed := base
	changed.Detail = models.DetailLong
	assert.NotEqual(t, fp, Fingerprint("hello", changed))

	changed = base
	changed.Model = "anthropic:claude-haiku-4-5-20251001"
	assert.NotEqual(t, fp, Fingerprint("hello", changed))

	changed = base
	changed.Mode = models.ModeURL
	assert.NotEqual(t, fp, Fingerprint("hello", changed))
}

func TestFingerprintIgnoresNonIdentityOptions(t *testing.T) {
	base := textOpts(models.DetailMedium)
	fp := Fingerprint("hello", base)

	changed := base
	changed.Locale = "ru"
	changed.WithTimestamps = true
	assert.Equal(t, fp, Fingerprint("hello", changed))
}

func TestExecuteComputesAndCaches(t *testing.T) {
	src := &stubSource{}
	be := &stubBackend{summary: "a short summary"}
	cache := newMemoryCache()
	svc := newTestService(src, be, cache)

	opts := textOpts(models.DetailMedium)
	result, err := svc.Execute(context.Background(), "some input text", opts)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "a short summary", result.ContentMD)
	assert.Equal(t, models.ModeText, result.Mode)
	assert.False(t, result.CreatedAt.IsZero())
	assert.Equal(t, "UTC", result.CreatedAt.Location().String())

	fp := Fingerprint("some input text", opts)
	assert.Equal(t, fp, result.InputFingerprint)
	assert.Same(t, result, cache.Get(context.Background(), fp))
	// Pipeline writes never join the recency index.
	assert.Empty(t, cache.recency)
}

func TestExecuteCacheHitSkipsPipeline(t *testing.T) {
	src := &stubSource{}
	be := &stubBackend{summary: "first"}
	cache := newMemoryCache()
	svc := newTestService(src, be, cache)

	opts := textOpts(models.DetailShort)
	first, err := svc.Execute(context.Background(), "same input", opts)
	require.NoError(t, err)

	second, err := svc.Execute(context.Background(), "same input", opts)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, be.calls)
}

func TestExecuteCollapsesConcurrentComputations(t *testing.T) {
	src := &stubSource{}
	be := &stubBackend{
		summary: "computed once",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	svc := newTestService(src, be, newMemoryCache())
	opts := textOpts(models.DetailMedium)

	const callers = 8
	results := make([]*models.SummaryResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Execute(context.Background(), "same input", opts)
		}(i)
	}

	// Release the single in-flight computation once it is underway, then
	// let every caller finish.
	<-be.started
	close(be.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, be.calls)
}

func TestExecuteSharedFlightSurvivesCallerCancel(t *testing.T) {
	src := &stubSource{}
	be := &stubBackend{
		summary: "shared result",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	svc := newTestService(src, be, newMemoryCache())
	opts := textOpts(models.DetailMedium)

	ctx1, cancel := context.WithCancel(context.Background())
	var first, second *models.SummaryResult
	var firstErr, secondErr error

	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		first, firstErr = svc.Execute(ctx1, "same input", opts)
	}()
	<-be.started

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		second, secondErr = svc.Execute(context.Background(), "same input", opts)
	}()

	// Cancelling the caller that opened the flight must not poison the
	// computation the second caller is waiting on.
	cancel()
	close(be.block)
	<-done1
	<-done2

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, "shared result", first.ContentMD)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, be.calls)
}

func TestExecuteTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("я", maxContentChars+50000)
	src := &stubSource{content: &source.Content{Text: long, Meta: map[string]interface{}{}}}
	be := &stubBackend{summary: "ok"}
	svc := newTestService(src, be, newMemoryCache())

	_, err := svc.Execute(context.Background(), "ignored", textOpts(models.DetailMedium))
	require.NoError(t, err)

	assert.Equal(t, maxContentChars, len([]rune(be.lastText)))
}

func TestExecuteBackendFailureLeavesNoCacheEntry(t *testing.T) {
	src := &stubSource{}
	be := &stubBackend{err: &models.BackendError{Provider: "openai", Cause: errors.New("boom")}}
	cache := newMemoryCache()
	svc := newTestService(src, be, cache)

	opts := textOpts(models.DetailMedium)
	_, err := svc.Execute(context.Background(), "will fail", opts)
	require.Error(t, err)

	var backendErr *models.BackendError
	assert.ErrorAs(t, err, &backendErr)
	assert.Nil(t, cache.Get(context.Background(), Fingerprint("will fail", opts)))
	assert.Empty(t, cache.entries)
}

func TestExecuteAcquisitionFailureLeavesNoCacheEntry(t *testing.T) {
	src := &stubSource{err: &models.AcquisitionError{Reason: "unreachable"}}
	be := &stubBackend{summary: "never used"}
	cache := newMemoryCache()
	svc := newTestService(src, be, cache)

	_, err := svc.Execute(context.Background(), "http://example.com", textOpts(models.DetailMedium))
	require.Error(t, err)

	var acqErr *models.AcquisitionError
	assert.ErrorAs(t, err, &acqErr)
	assert.Equal(t, 0, be.calls)
	assert.Empty(t, cache.entries)
}

func TestExecuteSelectorFailureSkipsAcquisition(t *testing.T) {
	src := &stubSource{}
	cache := newMemoryCache()
	svc := NewService(src, &stubSelector{err: &models.ConfigurationError{Reason: "unsupported LLM provider: mistral"}}, stubResolver{}, cache, zap.NewNop())

	_, err := svc.Execute(context.Background(), "text", models.SummaryOptions{
		Mode:   models.ModeText,
		Detail: models.DetailMedium,
		Model:  "mistral:large",
	})
	require.Error(t, err)

	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, src.calls)
}

func TestExecuteUpgradesTimestampedLongVideo(t *testing.T) {
	src := &stubSource{content: &source.Content{
		Text: "[00:00] intro\n[01:30] main point",
		Meta: map[string]interface{}{
			models.MetaHasTimestamps: true,
			models.MetaSource:        "youtube_api",
			models.MetaVideoID:       "dQw4w9WgXcQ",
		},
	}}
	be := &stubBackend{summary: "timestamped summary"}
	svc := newTestService(src, be, newMemoryCache())

	opts := models.SummaryOptions{
		Mode:   models.ModeYouTube,
		Detail: models.DetailLong,
		Model:  "openai:gpt-4o-mini",
	}
	result, err := svc.Execute(context.Background(), "https://youtu.be/dQw4w9WgXcQ", opts)
	require.NoError(t, err)

	assert.True(t, be.lastOpts.WithTimestamps)
	assert.True(t, result.Options.WithTimestamps)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", result.Source)
}

func TestExecuteNoTimestampUpgradeForMediumDetail(t *testing.T) {
	src := &stubSource{content: &source.Content{
		Text: "[00:00] intro",
		Meta: map[string]interface{}{models.MetaHasTimestamps: true},
	}}
	be := &stubBackend{summary: "plain summary"}
	svc := newTestService(src, be, newMemoryCache())

	_, err := svc.Execute(context.Background(), "vid", models.SummaryOptions{
		Mode:   models.ModeYouTube,
		Detail: models.DetailMedium,
		Model:  "openai:gpt-4o-mini",
	})
	require.NoError(t, err)

	assert.False(t, be.lastOpts.WithTimestamps)
}

func TestSourceReference(t *testing.T) {
	assert.Equal(t, "", sourceReference("raw text", models.ModeText, nil))
	assert.Equal(t, "https://example.com/post", sourceReference("https://example.com/post", models.ModeURL, nil))
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123",
		sourceReference("abc123", models.ModeYouTube, map[string]interface{}{models.MetaVideoID: "abc123"}))
	assert.Equal(t, "", sourceReference("abc123", models.ModeYouTube, map[string]interface{}{}))
}
