package tools

import (
	"context"
	"log/slog"
)

// FallbackFunc returns a degraded result after every attempt of a tool failed.
type FallbackFunc func(ctx context.Context, tool Tool, input string, err error) (*Result, error)

// DefaultFallbackRules keeps the conversation going when a tool is unavailable.
var DefaultFallbackRules = map[string]FallbackFunc{
	CalculatorToolName: ErrorAwareFallback("The expression could not be evaluated."),
	WikipediaToolName:  ErrorAwareFallback("Wikipedia is unavailable right now. Answer from your own knowledge and say so."),
}

// GenericFallback creates a fallback handler with a fixed message.
func GenericFallback(message string) FallbackFunc {
	return func(_ context.Context, _ Tool, _ string, _ error) (*Result, error) {
		return &Result{
			Output:  message,
			Success: false,
		}, nil
	}
}

// ErrorAwareFallback logs the failure and appends the cause to the message for the model.
func ErrorAwareFallback(baseMessage string) FallbackFunc {
	return func(_ context.Context, tool Tool, _ string, err error) (*Result, error) {
		output := baseMessage
		if err != nil {
			toolName := "unknown"
			if tool != nil {
				toolName = tool.Name()
			}
			slog.Warn("tool fallback triggered",
				slog.String("tool", toolName),
				slog.String("error", err.Error()),
			)
			output += " Error: " + err.Error()
		}
		return &Result{
			Output:  output,
			Success: false,
		}, nil
	}
}
