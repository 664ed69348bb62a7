package metrics

import (
	"context"
	"log/slog"
	"time"
)

// retention is how long hourly buckets are kept in memory.
const retention = 30 * 24 * time.Hour

// Service implements MetricsService in memory.
type Service struct {
	aggregator *Aggregator
}

// NewService creates a new metrics service.
func NewService() *Service {
	return &Service{aggregator: NewAggregator()}
}

// RecordRequest records a route request metric.
func (s *Service) RecordRequest(_ context.Context, route string, latency time.Duration, success bool) {
	s.aggregator.RecordRequest(route, latency, success)
}

// RecordToolCall records a tool call metric.
func (s *Service) RecordToolCall(_ context.Context, toolName string, latency time.Duration, success bool) {
	s.aggregator.RecordToolCall(toolName, latency, success)
}

// GetStats retrieves aggregated statistics for the given time range.
func (s *Service) GetStats(_ context.Context, timeRange TimeRange) (*Stats, error) {
	if timeRange.End.IsZero() {
		timeRange.End = time.Now()
	}
	return s.aggregator.Stats(timeRange.Start, timeRange.End), nil
}

// PruneLoop drops expired buckets every hour until ctx is done.
func (s *Service) PruneLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.aggregator.Prune(now.Add(-retention)); n > 0 {
				slog.Debug("pruned metric buckets", slog.Int("count", n))
			}
		}
	}
}
