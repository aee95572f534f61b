// Package router maps framed HTTP requests to handlers.
//
// Rules, in priority order: CORS preflight, the OpenAI endpoints, the Ollama
// endpoints, health, then a plain-text 404. Every JSON response for a matched
// route carries Access-Control-Allow-Origin: *.
package router

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/applelocal/localgate/internal/api"
	"github.com/applelocal/localgate/internal/gateway"
	"github.com/applelocal/localgate/internal/httpwire"
)

// Router dispatches requests to the gateway pipeline.
type Router struct {
	gw *gateway.Gateway
}

// New builds a Router over the given gateway.
func New(gw *gateway.Gateway) *Router {
	return &Router{gw: gw}
}

// Handle produces exactly one response for a framed request.
func (rt *Router) Handle(ctx context.Context, req *httpwire.Request) *httpwire.Response {
	if req.Method == "OPTIONS" {
		return preflightResponse()
	}

	switch {
	case req.Method == "POST" && req.Path == "/v1/chat/completions":
		return rt.handleChatCompletions(ctx, req)
	case req.Method == "POST" && req.Path == "/v1/completions":
		return rt.handleCompletions(ctx, req)
	case req.Method == "GET" && req.Path == "/v1/models":
		return jsonResponse(200, rt.gw.Models())
	case req.Method == "GET" && strings.HasPrefix(req.Path, "/v1/models/"):
		return rt.handleModel(strings.TrimPrefix(req.Path, "/v1/models/"))
	case req.Method == "POST" && req.Path == "/api/chat":
		return rt.handleOllamaChat(ctx, req)
	case req.Method == "GET" && req.Path == "/api/tags":
		return jsonResponse(200, rt.gw.Tags())
	case req.Method == "GET" && req.Path == "/health":
		return jsonResponse(200, map[string]string{"status": "ok"})
	}

	return textResponse(404, "Not Found")
}

func (rt *Router) handleChatCompletions(ctx context.Context, req *httpwire.Request) *httpwire.Response {
	body := gateway.SanitizeModelName(req.Body)

	var chatReq api.ChatCompletionRequest
	if err := json.Unmarshal(body, &chatReq); err != nil {
		return errorResponse(400, "invalid chat completion request: "+err.Error())
	}

	resp, err := rt.gw.ChatCompletion(ctx, &chatReq)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("Chat completion failed")
		return errorResponse(400, err.Error())
	}
	return jsonResponse(200, resp)
}

func (rt *Router) handleCompletions(ctx context.Context, req *httpwire.Request) *httpwire.Response {
	body := gateway.SanitizeModelName(req.Body)

	var textReq api.TextCompletionRequest
	if err := json.Unmarshal(body, &textReq); err != nil {
		return errorResponse(400, "invalid completion request: "+err.Error())
	}

	resp, err := rt.gw.TextCompletion(ctx, &textReq)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("Text completion failed")
		return errorResponse(400, err.Error())
	}
	return jsonResponse(200, resp)
}

func (rt *Router) handleModel(id string) *httpwire.Response {
	model, ok := rt.gw.Model(id)
	if !ok {
		return textResponse(404, "Not Found")
	}
	return jsonResponse(200, model)
}

func (rt *Router) handleOllamaChat(ctx context.Context, req *httpwire.Request) *httpwire.Response {
	body := gateway.SanitizeModelName(req.Body)

	var ollamaReq api.OllamaChatRequest
	if err := json.Unmarshal(body, &ollamaReq); err != nil {
		return errorResponse(400, "invalid chat request: "+err.Error())
	}

	resp, err := rt.gw.OllamaChat(ctx, &ollamaReq)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("Ollama chat failed")
		return errorResponse(400, err.Error())
	}
	return jsonResponse(200, resp)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func preflightResponse() *httpwire.Response {
	resp := httpwire.NewResponse(204)
	resp.Header["Access-Control-Allow-Origin"] = "*"
	resp.Header["Access-Control-Allow-Methods"] = "POST, OPTIONS"
	resp.Header["Access-Control-Allow-Headers"] = "Content-Type, Authorization"
	resp.Header["Access-Control-Max-Age"] = "600"
	return resp
}

func jsonResponse(status int, v any) *httpwire.Response {
	body, err := api.MarshalNoEscape(v)
	if err != nil {
		return errorResponse(500, "failed to encode response")
	}
	resp := httpwire.NewResponse(status)
	resp.Header["Content-Type"] = "application/json"
	resp.Header["Access-Control-Allow-Origin"] = "*"
	resp.Body = body
	return resp
}

// errorResponse builds the {"error": {"message": ...}} envelope.
func errorResponse(status int, msg string) *httpwire.Response {
	body, err := sjson.SetBytes([]byte(`{}`), "error.message", msg)
	if err != nil {
		body = []byte(`{"error":{"message":"internal error"}}`)
	}
	resp := httpwire.NewResponse(status)
	resp.Header["Content-Type"] = "application/json"
	resp.Header["Access-Control-Allow-Origin"] = "*"
	resp.Body = body
	return resp
}

func textResponse(status int, msg string) *httpwire.Response {
	resp := httpwire.NewResponse(status)
	resp.Header["Content-Type"] = "text/plain"
	resp.Body = []byte(msg)
	return resp
}
