// Package contextmgr keeps assembled prompts within the model's context
// window, compressing older conversation turns through the provider when the
// full rendering does not fit.
//
// The most recent turns are always kept verbatim; recency is assumed more
// relevant than older turns.
package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/api"
	"github.com/applelocal/localgate/internal/config"
	"github.com/applelocal/localgate/internal/provider"
)

// SummaryMarker prefixes the compressed-history system line in a composed
// prompt. Tests and downstream tooling look for this literal.
const SummaryMarker = "Conversation summary (compressed):"

// Fit reports how a prompt was made to fit the budget.
type Fit string

const (
	// FitFull means the rendering fit unchanged.
	FitFull Fit = "full"
	// FitSummarized means older turns were compressed once.
	FitSummarized Fit = "summarized"
	// FitSummaryTight means a second, tighter compression pass was needed.
	FitSummaryTight Fit = "summary-tight"
)

// PreparedPrompt is a prompt bounded to the context budget.
type PreparedPrompt struct {
	Prompt string
	Fit    Fit
}

// Manager produces bounded prompts for a conversation.
type Manager struct {
	gen provider.TextGenerator
	est TokenEstimator
	cfg config.ContextConfig
}

// New builds a Manager. gen is used for summarization only.
func New(gen provider.TextGenerator, est TokenEstimator, cfg config.ContextConfig) *Manager {
	return &Manager{gen: gen, est: est, cfg: cfg}
}

// Estimator exposes the token estimator for callers doing their own budget
// checks (the segment streamer).
func (m *Manager) Estimator() TokenEstimator { return m.est }

// Budget is the prompt token budget left after reserving output room,
// clamped to floor.
func (m *Manager) Budget(reserve, floor int) int {
	budget := m.cfg.MaxContextTokens - reserve
	if budget < floor {
		budget = floor
	}
	return budget
}

// RenderConversation renders messages as "role: content" lines with a
// trailing "assistant:" cue.
func RenderConversation(msgs []api.Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content.String())
		b.WriteString("\n")
	}
	b.WriteString("assistant:")
	return b.String()
}

// renderTurns renders messages as "role: content" lines without the cue,
// for summarizer input.
func renderTurns(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, msg.Role+": "+msg.Content.String())
	}
	return strings.Join(lines, "\n")
}

// PrepareChatPrompt bounds the conversation using the default single-round
// reserve.
func (m *Manager) PrepareChatPrompt(ctx context.Context, msgs []api.Message) PreparedPrompt {
	return m.PreparePrompt(ctx, msgs, m.cfg.ReserveForOutput, config.DefaultBudgetFloor)
}

// PreparePrompt bounds the conversation within the budget derived from the
// given reserve and floor.
//
// The full rendering passes through untouched when it fits. Otherwise the
// last RecentMessages turns are kept verbatim and everything older is
// compressed via the provider, with a naive extractive fallback when the
// provider cannot summarize. A second, tighter pass runs if the first
// composition still exceeds the budget; the result of that pass is final.
func (m *Manager) PreparePrompt(ctx context.Context, msgs []api.Message, reserve, floor int) PreparedPrompt {
	full := RenderConversation(msgs)
	budget := m.Budget(reserve, floor)
	if m.est.Estimate(full) <= budget {
		return PreparedPrompt{Prompt: full, Fit: FitFull}
	}

	keep := m.cfg.RecentMessages
	if keep <= 0 {
		keep = config.DefaultRecentMessages
	}
	if keep > len(msgs) {
		keep = len(msgs)
	}
	recent := msgs[len(msgs)-keep:]
	older := msgs[:len(msgs)-keep]

	if len(older) == 0 {
		// Nothing to compress; return the recent rendering as-is.
		return PreparedPrompt{Prompt: RenderConversation(recent), Fit: FitSummarized}
	}

	olderText := clampMiddle(renderTurns(older), config.MaxOlderChars)
	summary := m.Summarize(ctx, olderText, config.SummaryTargetChars)
	composed := composePrompt(summary, recent)
	if m.est.Estimate(composed) <= budget {
		return PreparedPrompt{Prompt: composed, Fit: FitSummarized}
	}

	summary = m.Summarize(ctx, olderText, config.TightSummaryTargetChars)
	composed = composePrompt(summary, recent)
	return PreparedPrompt{Prompt: composed, Fit: FitSummaryTight}
}

// Summarize compresses text to at most targetChars. Provider failures are
// recovered locally with an extractive fallback and never surface to the
// caller; the result is hard-clamped to the target.
func (m *Manager) Summarize(ctx context.Context, text string, targetChars int) string {
	instruction := fmt.Sprintf(
		"Summarize the following conversation in under %d characters. "+
			"Preserve technical details, names, numbers, and decisions. "+
			"Output only the summary.\n\n%s",
		targetChars, text)

	summary, err := m.gen.Generate(ctx, provider.GenerateParams{
		Prompt:      instruction,
		Temperature: 0.2,
		MaxTokens:   targetChars / config.TokenEstimateRatio,
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		log.Debug().Err(err).Msg("Summarization failed, using extractive fallback")
		summary = extractiveSummary(text)
	}

	if len(summary) > targetChars {
		summary = summary[:targetChars]
	}
	return summary
}

// composePrompt places the compressed-history system line before the verbatim
// recent turns.
func composePrompt(summary string, recent []api.Message) string {
	var b strings.Builder
	b.WriteString("system: ")
	b.WriteString(SummaryMarker)
	b.WriteString(" \n")
	b.WriteString(summary)
	b.WriteString("\n")
	b.WriteString(RenderConversation(recent))
	return b.String()
}

// clampMiddle keeps the head and tail halves of text joined with an ellipsis
// marker so at most maxChars (plus the marker) survive.
func clampMiddle(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	head := maxChars / 2
	tail := maxChars - head
	return text[:head] + "\n...\n" + text[len(text)-tail:]
}

// extractiveSummary builds a naive summary from the first
// FallbackHeadSentences and last FallbackTailSentences sentence-delimited
// fragments of text.
func extractiveSummary(text string) string {
	fragments := splitSentences(text)
	head := config.FallbackHeadSentences
	tail := config.FallbackTailSentences
	if len(fragments) <= head+tail {
		return strings.Join(fragments, " ")
	}
	parts := append([]string{}, fragments[:head]...)
	parts = append(parts, "...")
	parts = append(parts, fragments[len(fragments)-tail:]...)
	return strings.Join(parts, " ")
}

// splitSentences splits text on sentence punctuation and newlines, dropping
// empty fragments.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	fragments := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			fragments = append(fragments, f)
		}
	}
	return fragments
}
