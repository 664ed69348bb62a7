package tools

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/t3clone/t3chat/plugin/ai/metrics"
)

// ResilientToolExecutor provides retry and fallback capabilities for tool execution.
type ResilientToolExecutor struct {
	maxRetries     int
	retryDelay     time.Duration
	timeout        time.Duration
	metricsService metrics.MetricsService
	fallbackRules  map[string]FallbackFunc
}

// ExecutorOption configures a ResilientToolExecutor.
type ExecutorOption func(*ResilientToolExecutor)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *ResilientToolExecutor) {
		e.maxRetries = n
	}
}

// WithRetryDelay sets the delay between retry attempts.
func WithRetryDelay(d time.Duration) ExecutorOption {
	return func(e *ResilientToolExecutor) {
		e.retryDelay = d
	}
}

// WithTimeout sets the timeout for each execution attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *ResilientToolExecutor) {
		e.timeout = d
	}
}

// WithFallbackRules replaces the fallback rules. The map is copied.
func WithFallbackRules(rules map[string]FallbackFunc) ExecutorOption {
	return func(e *ResilientToolExecutor) {
		e.fallbackRules = maps.Clone(rules)
	}
}

// NewResilientToolExecutor creates a new ResilientToolExecutor with the given options.
// metricsService may be nil.
func NewResilientToolExecutor(metricsService metrics.MetricsService, opts ...ExecutorOption) *ResilientToolExecutor {
	e := &ResilientToolExecutor{
		maxRetries:     1,
		retryDelay:     300 * time.Millisecond,
		timeout:        10 * time.Second,
		metricsService: metricsService,
		fallbackRules:  maps.Clone(DefaultFallbackRules),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs the tool, retrying on transient errors.
// If all attempts fail, it executes the fallback strategy if available.
func (e *ResilientToolExecutor) Execute(ctx context.Context, tool Tool, input string) (*Result, error) {
	res := e.ExecuteDetailed(ctx, tool, input)
	if res.Result != nil {
		return res.Result, nil
	}
	if res.FallbackError != nil {
		return nil, res.FallbackError
	}
	return nil, res.Error
}

// ExecutionResult contains detailed information about a tool execution.
type ExecutionResult struct {
	Result        *Result
	Error         error
	FallbackError error
	Attempts      int
	TotalLatency  time.Duration
	UsedFallback  bool
}

// ExecuteDetailed runs the tool and returns detailed execution information.
func (e *ResilientToolExecutor) ExecuteDetailed(ctx context.Context, tool Tool, input string) ExecutionResult {
	start := time.Now()
	var lastErr error
	toolName := tool.Name()
	attempts := 0

attemptsLoop:
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break attemptsLoop
		}
		attempts++

		execCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, err := tool.Run(execCtx, input)
		cancel()

		if err == nil {
			e.recordMetrics(ctx, toolName, time.Since(start), result.Success)
			slog.Debug("tool execution succeeded",
				slog.String("tool", toolName),
				slog.Int("attempt", attempts),
				slog.Duration("duration", time.Since(start)))
			return ExecutionResult{
				Result:       result,
				Attempts:     attempts,
				TotalLatency: time.Since(start),
			}
		}

		lastErr = err
		slog.Warn("tool execution failed",
			slog.String("tool", toolName),
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()))

		if !isRetryable(err) {
			break attemptsLoop
		}

		if attempt < e.maxRetries {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attemptsLoop
			case <-time.After(e.retryDelay):
			}
		}
	}

	e.recordMetrics(ctx, toolName, time.Since(start), false)

	if fallback, ok := e.fallbackRules[toolName]; ok {
		slog.Info("executing fallback strategy", slog.String("tool", toolName))
		result, fbErr := fallback(ctx, tool, input, lastErr)
		return ExecutionResult{
			Result:        result,
			Error:         lastErr,
			FallbackError: fbErr,
			Attempts:      attempts,
			TotalLatency:  time.Since(start),
			UsedFallback:  true,
		}
	}

	return ExecutionResult{
		Error:        lastErr,
		Attempts:     attempts,
		TotalLatency: time.Since(start),
	}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"network",
		"timeout",
		"connection",
		"unavailable",
		"temporary",
		"status 429",
		"status 5",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

func (e *ResilientToolExecutor) recordMetrics(ctx context.Context, toolName string, duration time.Duration, success bool) {
	if e.metricsService != nil {
		e.metricsService.RecordToolCall(ctx, toolName, duration, success)
	}
}

// PermanentError marks a tool failure that retrying cannot fix, such as bad input.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func permanent(err error) error {
	return &PermanentError{Err: err}
}
