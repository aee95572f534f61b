package api

// =============================================================================
// Ollama chat
// =============================================================================

// OllamaOptions carries the generation options Ollama clients nest under
// "options".
type OllamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// OllamaChatRequest is the body of POST /api/chat.
type OllamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   *bool          `json:"stream,omitempty"`
	Options  *OllamaOptions `json:"options,omitempty"`
}

// OllamaChatResponse is the body of a successful /api/chat call.
type OllamaChatResponse struct {
	Model         string  `json:"model"`
	CreatedAt     string  `json:"created_at"`
	Message       Message `json:"message"`
	Done          bool    `json:"done"`
	TotalDuration int64   `json:"total_duration,omitempty"`
}

// =============================================================================
// Ollama tags
// =============================================================================

// OllamaModelDetails mirrors the details block of /api/tags entries.
type OllamaModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// OllamaTag is one entry in the tag list.
type OllamaTag struct {
	Name       string             `json:"name"`
	ModifiedAt string             `json:"modified_at"`
	Size       int64              `json:"size"`
	Digest     string             `json:"digest"`
	Details    OllamaModelDetails `json:"details"`
}

// OllamaTagList is the body of GET /api/tags.
type OllamaTagList struct {
	Models []OllamaTag `json:"models"`
}
