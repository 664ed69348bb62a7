// Package aitest provides a scripted LLM service for tests.
package aitest

import (
	"context"
	"sync"

	"github.com/t3clone/t3chat/plugin/ai"
)

// Step is one scripted model turn. Chunks are streamed, then a final chunk
// carrying ToolCalls and FinishReason. Err fails the turn instead.
type Step struct {
	Chunks       []string
	ToolCalls    []ai.ToolCall
	FinishReason string
	// Content is returned by Chat.
	Content string
	Err     error
}

// ScriptedLLM replays steps in order, for both Chat and ChatStream.
type ScriptedLLM struct {
	mu       sync.Mutex
	steps    []Step
	requests []*ai.ChatRequest
}

func NewScriptedLLM(steps ...Step) *ScriptedLLM {
	return &ScriptedLLM{steps: steps}
}

// Requests returns the requests received so far.
func (s *ScriptedLLM) Requests() []*ai.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ai.ChatRequest(nil), s.requests...)
}

func (s *ScriptedLLM) next(req *ai.ChatRequest) Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return Step{FinishReason: "stop"}
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step
}

func (s *ScriptedLLM) Chat(_ context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	step := s.next(req)
	if step.Err != nil {
		return nil, step.Err
	}
	return &ai.ChatResponse{Content: step.Content, ToolCalls: step.ToolCalls, FinishReason: step.FinishReason}, nil
}

func (s *ScriptedLLM) ChatStream(ctx context.Context, req *ai.ChatRequest) (<-chan ai.StreamChunk, <-chan error) {
	step := s.next(req)
	chunks := make(chan ai.StreamChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if step.Err != nil {
			errs <- step.Err
			return
		}
		send := func(c ai.StreamChunk) bool {
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				errs <- ctx.Err()
				return false
			}
		}
		for _, c := range step.Chunks {
			if !send(ai.StreamChunk{Content: c}) {
				return
			}
		}
		finish := step.FinishReason
		if finish == "" {
			finish = "stop"
			if len(step.ToolCalls) > 0 {
				finish = "tool_calls"
			}
		}
		send(ai.StreamChunk{ToolCalls: step.ToolCalls, FinishReason: finish})
	}()
	return chunks, errs
}
