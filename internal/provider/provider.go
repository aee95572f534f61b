// Package provider abstracts the on-device text-generation engine.
//
// The gateway never talks to the engine directly; everything goes through the
// TextGenerator interface so the engine can be swapped (HTTP-backed local
// runtime, mock, serialized wrapper) without touching the pipeline.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// GenerateParams is the input for one generation call.
type GenerateParams struct {
	Prompt string
	// Temperature < 0 means "use the provider's default".
	Temperature float64
	// MaxTokens 0 means "use the provider's default".
	MaxTokens int
}

// TextGenerator produces text for a prompt. Implementations may block for
// arbitrary wall-clock time; callers pass a context for cancellation.
type TextGenerator interface {
	Generate(ctx context.Context, params GenerateParams) (string, error)
}

// ErrUnavailable reports that the engine is not reachable at all, as opposed
// to a request that reached it and failed.
var ErrUnavailable = errors.New("text generation provider unavailable")

// ProviderError is a failure reported by a reachable engine.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

// GenerateFunc adapts a plain function to TextGenerator.
type GenerateFunc func(ctx context.Context, params GenerateParams) (string, error)

// Generate implements TextGenerator.
func (f GenerateFunc) Generate(ctx context.Context, params GenerateParams) (string, error) {
	return f(ctx, params)
}

// Serialized wraps a TextGenerator so that only one Generate call is in
// flight at a time. Use it for engines that cannot serve concurrent calls.
type Serialized struct {
	inner TextGenerator
	mu    sync.Mutex
}

// Serialize returns g wrapped in a single-flight mutex.
func Serialize(g TextGenerator) *Serialized {
	return &Serialized{inner: g}
}

// Generate implements TextGenerator.
func (s *Serialized) Generate(ctx context.Context, params GenerateParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Generate(ctx, params)
}
