// Package metrics aggregates request and tool call statistics of the AI routes.
package metrics

import (
	"context"
	"time"
)

// MetricsService records AI route and tool call outcomes.
type MetricsService interface {
	// RecordRequest records one request of an AI route.
	RecordRequest(ctx context.Context, route string, latency time.Duration, success bool)

	// RecordToolCall records one tool execution.
	RecordToolCall(ctx context.Context, toolName string, latency time.Duration, success bool)

	// GetStats returns the statistics of the buckets overlapping the range.
	GetStats(ctx context.Context, timeRange TimeRange) (*Stats, error)
}

// TimeRange represents a time range for querying metrics.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Stats represents aggregated metrics.
type Stats struct {
	RequestCount int64                 `json:"requestCount"`
	SuccessCount int64                 `json:"successCount"`
	LatencyP50Ms int64                 `json:"latencyP50Ms"`
	LatencyP95Ms int64                 `json:"latencyP95Ms"`
	Routes       map[string]*RouteStat `json:"routes"`
	Tools        map[string]*ToolStat  `json:"tools"`
}

// RouteStat represents statistics for a single route.
type RouteStat struct {
	Count        int64   `json:"count"`
	SuccessRate  float32 `json:"successRate"`
	AvgLatencyMs int64   `json:"avgLatencyMs"`
}

// ToolStat represents statistics for a single tool.
type ToolStat struct {
	Calls        int64   `json:"calls"`
	SuccessRate  float32 `json:"successRate"`
	AvgLatencyMs int64   `json:"avgLatencyMs"`
}
