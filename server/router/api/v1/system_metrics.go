package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
)

// MetricsOverviewResponse represents the overview of the model backed routes.
type MetricsOverviewResponse struct {
	TotalRequests int64                         `json:"totalRequests"`
	SuccessRate   float64                       `json:"successRate"`
	AvgLatencyMs  int64                         `json:"avgLatencyMs"`
	P50LatencyMs  int64                         `json:"p50LatencyMs"`
	P95LatencyMs  int64                         `json:"p95LatencyMs"`
	ErrorCount    int64                         `json:"errorCount"`
	TimeRange     string                        `json:"timeRange"`
	Routes        map[string]*metrics.RouteStat `json:"routes"`
	Tools         map[string]*metrics.ToolStat  `json:"tools"`
	// AutocompleteCache reports how often suggestions were served without a model call.
	AutocompleteCache CacheStats `json:"autocompleteCache"`
}

type CacheStats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// GetMetricsOverview returns request and tool statistics of this process.
// GET /api/metrics?range=1h|24h|7d|30d
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	timeRange := c.QueryParam("range")
	if timeRange == "" {
		timeRange = "24h"
	}
	now := time.Now()
	start, err := parseTimeRange(timeRange, now)
	if err != nil {
		return writeError(c, apperrors.InvalidArgument(err.Error()))
	}

	stats, err := s.MetricsService.GetStats(c.Request().Context(), metrics.TimeRange{Start: start, End: now})
	if err != nil {
		return writeError(c, apperrors.Internal("failed to get metrics", err))
	}

	resp := MetricsOverviewResponse{
		TotalRequests: stats.RequestCount,
		P50LatencyMs:  stats.LatencyP50Ms,
		P95LatencyMs:  stats.LatencyP95Ms,
		ErrorCount:    stats.RequestCount - stats.SuccessCount,
		TimeRange:     timeRange,
		Routes:        stats.Routes,
		Tools:         stats.Tools,
	}
	if s.ChatService != nil {
		cacheStats := s.ChatService.AutocompleteCacheStats()
		resp.AutocompleteCache = CacheStats{Size: cacheStats.Size, Hits: cacheStats.Hits, Misses: cacheStats.Misses}
	}
	if stats.RequestCount > 0 {
		resp.SuccessRate = float64(stats.SuccessCount) / float64(stats.RequestCount)
		var total int64
		for _, route := range stats.Routes {
			total += route.AvgLatencyMs * route.Count
		}
		resp.AvgLatencyMs = total / stats.RequestCount
	}
	return c.JSON(http.StatusOK, resp)
}

// parseTimeRange returns the start of the range ending at now.
func parseTimeRange(timeRange string, now time.Time) (time.Time, error) {
	switch timeRange {
	case "1h":
		return now.Add(-1 * time.Hour), nil
	case "24h":
		return now.Add(-24 * time.Hour), nil
	case "7d":
		return now.Add(-7 * 24 * time.Hour), nil
	case "30d":
		return now.Add(-30 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time range: %s (valid: 1h, 24h, 7d, 30d)", timeRange)
	}
}

type listModelsResponse struct {
	Models       []ai.ModelInfo `json:"models"`
	DefaultModel string         `json:"defaultModel"`
}

// ListModels returns the models of the configured providers.
// GET /api/models
func (s *APIV1Service) ListModels(c echo.Context) error {
	models := s.ChatService.Models()
	if models == nil {
		models = []ai.ModelInfo{}
	}
	return c.JSON(http.StatusOK, listModelsResponse{Models: models, DefaultModel: s.Profile.AIDefaultModel})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: s.Profile.Version})
}
