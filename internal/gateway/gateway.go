// Request pipeline for the local gateway.
//
// DESIGN: Main flow per chat request:
//   - ChatCompletion(): bounded prompt via contextmgr, then one provider
//     round or the multi-round segment streamer (stream: true)
//   - TextCompletion(): direct prompt, one provider round
//   - OllamaChat():     map to the internal chat shape, run the same
//     pipeline, translate back to Ollama's response shape
//
// One Gateway instance is created at startup and handed down by reference;
// there are no package-level singletons.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/api"
	"github.com/applelocal/localgate/internal/config"
	"github.com/applelocal/localgate/internal/contextmgr"
	"github.com/applelocal/localgate/internal/provider"
	"github.com/applelocal/localgate/internal/segment"
)

// Gateway translates wire-format requests into generation calls.
type Gateway struct {
	cfg      *config.Config
	gen      provider.TextGenerator
	ctxm     *contextmgr.Manager
	streamer *segment.Streamer
	started  time.Time
}

// New wires the pipeline for one provider.
func New(cfg *config.Config, gen provider.TextGenerator) *Gateway {
	est := contextmgr.EstimatorFor(cfg.Context.Estimator)
	ctxm := contextmgr.New(gen, est, cfg.Context)
	return &Gateway{
		cfg:      cfg,
		gen:      gen,
		ctxm:     ctxm,
		streamer: segment.New(gen, ctxm, cfg.Stream),
		started:  time.Now(),
	}
}

// ContextManager exposes the prompt manager (used by tests).
func (g *Gateway) ContextManager() *contextmgr.Manager { return g.ctxm }

// ChatCompletion runs the chat pipeline and returns an OpenAI-shaped
// response.
func (g *Gateway) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	content, err := g.generateChat(ctx, req)
	if err != nil {
		return nil, err
	}

	return &api.ChatCompletionResponse{
		ID:      "chatcmpl_" + newToken(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   g.modelID(req.Model),
		Choices: []api.ChatChoice{{
			Index:        0,
			Message:      api.Message{Role: "assistant", Content: api.MessageContent(content)},
			FinishReason: "stop",
		}},
	}, nil
}

// generateChat produces the assistant content for a chat request, either in
// one bounded round or by draining the segment streamer.
func (g *Gateway) generateChat(ctx context.Context, req *api.ChatCompletionRequest) (string, error) {
	temp := g.cfg.Provider.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	if req.Stream {
		segments, errc := g.streamer.Stream(ctx, req.Messages, temp)
		var b strings.Builder
		for seg := range segments {
			b.WriteString(seg)
		}
		if err := <-errc; err != nil {
			return "", err
		}
		return b.String(), nil
	}

	prep := g.ctxm.PrepareChatPrompt(ctx, req.Messages)
	log.Debug().
		Str("fit", string(prep.Fit)).
		Int("prompt_chars", len(prep.Prompt)).
		Msg("Prepared chat prompt")

	maxTokens := g.cfg.Context.ReserveForOutput
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	return g.gen.Generate(ctx, provider.GenerateParams{
		Prompt:      prep.Prompt,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
}

// TextCompletion runs the prompt through one generation round.
func (g *Gateway) TextCompletion(ctx context.Context, req *api.TextCompletionRequest) (*api.TextCompletionResponse, error) {
	temp := g.cfg.Provider.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTokens := g.cfg.Context.ReserveForOutput
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	text, err := g.gen.Generate(ctx, provider.GenerateParams{
		Prompt:      req.Prompt.String(),
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &api.TextCompletionResponse{
		ID:      "cmpl_" + newToken(),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   g.modelID(req.Model),
		Choices: []api.TextChoice{{
			Text:         text,
			Index:        0,
			Logprobs:     nil,
			FinishReason: "stop",
		}},
	}, nil
}

// OllamaChat maps an Ollama-style request onto the chat pipeline and
// translates the result back.
func (g *Gateway) OllamaChat(ctx context.Context, req *api.OllamaChatRequest) (*api.OllamaChatResponse, error) {
	start := time.Now()

	chatReq := &api.ChatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
	}
	if req.Stream != nil {
		chatReq.Stream = *req.Stream
	}
	if req.Options != nil {
		chatReq.Temperature = req.Options.Temperature
		chatReq.MaxTokens = req.Options.NumPredict
	}

	chatResp, err := g.ChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	return &api.OllamaChatResponse{
		Model:         g.modelID(req.Model),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Message:       chatResp.Choices[0].Message,
		Done:          true,
		TotalDuration: time.Since(start).Nanoseconds(),
	}, nil
}

// Models lists the single on-device model in OpenAI format.
func (g *Gateway) Models() *api.ModelList {
	return &api.ModelList{
		Object: "list",
		Data: []api.Model{{
			ID:      g.cfg.Provider.Model,
			Object:  "model",
			Created: g.started.Unix(),
			OwnedBy: config.DefaultModelOwner,
		}},
	}
}

// Model returns the model with the given id, or false if unknown.
func (g *Gateway) Model(id string) (api.Model, bool) {
	for _, m := range g.Models().Data {
		if m.ID == id {
			return m, true
		}
	}
	return api.Model{}, false
}

// Tags returns the synthetic Ollama tag list describing the on-device model.
func (g *Gateway) Tags() *api.OllamaTagList {
	return &api.OllamaTagList{
		Models: []api.OllamaTag{{
			Name:       g.cfg.Provider.Model + ":latest",
			ModifiedAt: g.started.UTC().Format(time.RFC3339),
			Size:       0,
			Digest:     tagDigest,
			Details: api.OllamaModelDetails{
				Format:            "coreml",
				Family:            "apple",
				Families:          []string{"apple"},
				ParameterSize:     "3B",
				QuantizationLevel: "unknown",
			},
		}},
	}
}

// tagDigest is a fixed synthetic digest; the on-device model has no real
// blob to hash.
const tagDigest = "sha256:0f2430e7b9f71d5d5b2b1a3d2a0f3c1e4d5b6a7980c1d2e3f4a5b6c7d8e9f0a1"

// modelID echoes the client's model name when given, otherwise the
// configured one.
func (g *Gateway) modelID(requested string) string {
	if requested != "" {
		return requested
	}
	return g.cfg.Provider.Model
}

// newToken returns a random hex-like token with no embedded separators.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
