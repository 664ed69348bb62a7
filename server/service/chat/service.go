// Package chat implements the chat, index, code conversion, autocomplete and
// export operations on top of the store and the model registry.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	"github.com/t3clone/t3chat/plugin/ai/tools"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/store"
	"github.com/t3clone/t3chat/store/cache"
)

const (
	// DefaultMaxToolSteps bounds the model/tool round trips of one chat turn.
	DefaultMaxToolSteps = 5
	// DefaultIndexConcurrency bounds background index jobs.
	DefaultIndexConcurrency = 4
	// DefaultIndexTimeout bounds one background index job.
	DefaultIndexTimeout = 60 * time.Second

	autocompleteCacheSize = 2000
	autocompleteCacheTTL  = 15 * time.Minute
)

// Service runs the AI operations of the chat API.
type Service struct {
	store       *store.Store
	registry    *ai.Registry
	tools       *tools.Registry
	executor    *tools.ResilientToolExecutor
	attachments *attachment.Service
	metrics     metrics.MetricsService

	maxToolSteps      int
	indexTimeout      time.Duration
	indexSem          *semaphore.Weighted
	indexWG           sync.WaitGroup
	autocompleteCache *cache.LRUCache

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxToolSteps sets the maximum number of model steps per chat turn.
func WithMaxToolSteps(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxToolSteps = n
		}
	}
}

// WithIndexConcurrency sets how many background index jobs run at once.
func WithIndexConcurrency(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.indexSem = semaphore.NewWeighted(n)
		}
	}
}

// WithIndexTimeout sets the timeout of one background index job.
func WithIndexTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.indexTimeout = d
		}
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the chat service. metricsService may be nil.
func NewService(
	s *store.Store,
	registry *ai.Registry,
	toolRegistry *tools.Registry,
	attachments *attachment.Service,
	metricsService metrics.MetricsService,
	opts ...Option,
) *Service {
	svc := &Service{
		store:             s,
		registry:          registry,
		tools:             toolRegistry,
		executor:          tools.NewResilientToolExecutor(metricsService),
		attachments:       attachments,
		metrics:           metricsService,
		maxToolSteps:      DefaultMaxToolSteps,
		indexTimeout:      DefaultIndexTimeout,
		indexSem:          semaphore.NewWeighted(DefaultIndexConcurrency),
		autocompleteCache: cache.NewLRUCache(autocompleteCacheSize, autocompleteCacheTTL),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Wait blocks until background index jobs finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.indexWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Models lists the models users can pick.
func (s *Service) Models() []ai.ModelInfo {
	return s.registry.Models()
}

func (s *Service) recordRequest(ctx context.Context, route string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, route, time.Since(start), err == nil)
	}
}

// userSetting returns the saved settings or the defaults.
func (s *Service) userSetting(ctx context.Context, userID string) *store.UserSetting {
	setting, err := s.store.GetUserSetting(ctx, &store.FindUserSetting{UserID: userID})
	if err != nil {
		slog.Warn("failed to load user setting, using defaults",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	if setting == nil {
		return store.DefaultUserSetting(userID)
	}
	return setting
}

func (s *Service) llmFor(model ai.ModelInfo) (ai.LLMService, error) {
	llm, err := s.registry.ForModel(model)
	if err != nil {
		return nil, errLLMUnavailable(err)
	}
	return llm, nil
}

// AutocompleteCacheStats reports the size and hit counts of the suggestion cache.
func (s *Service) AutocompleteCacheStats() cache.Stats {
	return s.autocompleteCache.Stats()
}
