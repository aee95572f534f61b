// Package api defines the OpenAI- and Ollama-compatible wire DTOs.
//
// The only behavior these types carry is (de)serialization, including the
// permissive decoding of message content that clients send in several shapes.
package api

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// MessageContent is message text decoded from any of the client shapes:
//
//  1. a plain JSON string
//  2. an array of strings
//  3. an array of structured parts ({"type": "text", "text": "..."})
//
// The shapes are tried in exactly that order; client compatibility depends on
// the chain, so do not reorder or collapse it. It always marshals back to a
// plain string.
type MessageContent string

// UnmarshalJSON implements the prioritized fallback chain.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	value := gjson.ParseBytes(data)

	// Shape 1: plain string.
	if value.Type == gjson.String {
		*c = MessageContent(value.String())
		return nil
	}

	if !value.IsArray() {
		return fmt.Errorf("unsupported content shape: %s", value.Type)
	}
	elements := value.Array()

	// Shape 2: array of strings. Every element must be a string.
	allStrings := true
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		if el.Type != gjson.String {
			allStrings = false
			break
		}
		parts = append(parts, el.String())
	}
	if allStrings {
		*c = MessageContent(strings.Join(parts, "\n"))
		return nil
	}

	// Shape 3: array of structured parts carrying a "text" field.
	parts = parts[:0]
	for _, el := range elements {
		if el.Type == gjson.String {
			parts = append(parts, el.String())
			continue
		}
		text := el.Get("text")
		if !text.Exists() {
			return fmt.Errorf("content part missing text field")
		}
		parts = append(parts, text.String())
	}
	*c = MessageContent(strings.Join(parts, "\n"))
	return nil
}

// String returns the decoded text.
func (c MessageContent) String() string { return string(c) }

// Message is one conversation turn. Order within a conversation is
// chronological and semantically significant.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}
