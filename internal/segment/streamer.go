// Package segment drives multi-round generation for long-form answers,
// delivering one bounded segment per completed round.
//
// Later rounds cannot resend the full prompt (that would itself overflow the
// context window), so round one computes a compact summary of the bounded
// prompt that subsequent rounds use instead, together with a do-not-repeat
// tail of the text generated so far.
package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/api"
	"github.com/applelocal/localgate/internal/config"
	"github.com/applelocal/localgate/internal/contextmgr"
	"github.com/applelocal/localgate/internal/provider"
)

// Streamer chains bounded generation rounds into one long-form answer.
type Streamer struct {
	gen  provider.TextGenerator
	ctxm *contextmgr.Manager
	cfg  config.StreamConfig
}

// New builds a Streamer sharing the gateway's context manager.
func New(gen provider.TextGenerator, ctxm *contextmgr.Manager, cfg config.StreamConfig) *Streamer {
	return &Streamer{gen: gen, ctxm: ctxm, cfg: cfg}
}

// Stream runs up to MaxSegments generation rounds for the conversation and
// sends each non-empty segment, in order, on the returned channel. The
// channel is buffered to MaxSegments so production never blocks on the
// consumer; it is closed when the stream ends.
//
// Any provider failure aborts the whole stream: the error channel receives
// exactly one error and no further segments are sent. Segments already
// delivered stay delivered; the caller decides how to present partial output.
func (s *Streamer) Stream(ctx context.Context, msgs []api.Message, temperature float64) (<-chan string, <-chan error) {
	out := make(chan string, s.cfg.MaxSegments)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		if err := s.run(ctx, msgs, temperature, out); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

func (s *Streamer) run(ctx context.Context, msgs []api.Message, temperature float64, out chan<- string) error {
	prep := s.ctxm.PreparePrompt(ctx, msgs, s.cfg.Reserve, config.SegmentBudgetFloor)

	// Compact restatement of the bounded prompt for rounds >= 2.
	compact := s.ctxm.Summarize(ctx, prep.Prompt, config.TightSummaryTargetChars)
	budget := s.roundBudget()

	soFar := ""
	for round := 1; round <= s.cfg.MaxSegments; round++ {
		prompt := prep.Prompt
		if round > 1 {
			prompt = compact + "\nassistant:"
		}

		instructions := s.fitInstructions(round, soFar, prompt, budget)

		segment, err := s.gen.Generate(ctx, provider.GenerateParams{
			Prompt:      joinPrompt(instructions, prompt),
			Temperature: temperature,
			MaxTokens:   s.cfg.Reserve,
		})
		if err != nil {
			return fmt.Errorf("segment round %d: %w", round, err)
		}

		if segment != "" {
			soFar += segment
			out <- segment
		}

		log.Debug().
			Int("round", round).
			Int("segment_chars", len(segment)).
			Int("total_chars", len(soFar)).
			Msg("Segment round completed")

		if !s.shouldContinue(round, len(soFar)) {
			break
		}
	}
	return nil
}

// roundBudget is the per-round prompt budget with the multi-round reserve.
func (s *Streamer) roundBudget() int {
	return s.ctxm.Budget(s.cfg.Reserve, config.SegmentBudgetFloor)
}

// fitInstructions builds the round instructions, halving the included
// tail of soFar until instructions+prompt fit the budget or the tail floor
// is reached. Round one carries no tail.
func (s *Streamer) fitInstructions(round int, soFar, prompt string, budget int) string {
	if round == 1 {
		return ""
	}

	est := s.ctxm.Estimator()
	tailLen := s.cfg.TailChars
	if tailLen <= 0 {
		tailLen = config.DefaultTailChars
	}
	for {
		instructions := buildContinueInstructions(tailOf(soFar, tailLen))
		if est.Estimate(instructions+prompt) <= budget || tailLen <= config.MinTailChars {
			return instructions
		}
		tailLen /= 2
		if tailLen < config.MinTailChars {
			tailLen = config.MinTailChars
		}
	}
}

// shouldContinue applies the keep-pace heuristic after round rounds: the
// accumulated text must have kept up with ContinueRatio of a segment's target
// length per round, otherwise the provider is assumed to have wrapped up.
func (s *Streamer) shouldContinue(round, totalChars int) bool {
	required := s.cfg.SegmentChars*(round-1) + int(s.cfg.ContinueRatio*float64(s.cfg.SegmentChars))
	return totalChars >= required
}

func buildContinueInstructions(tail string) string {
	var b strings.Builder
	b.WriteString("Continue the answer you were writing. ")
	b.WriteString("This is the end of what you have written so far; do not repeat any of it:\n\n")
	b.WriteString(tail)
	b.WriteString("\n\nPick up exactly where that text ends and keep going.")
	return b.String()
}

func joinPrompt(instructions, prompt string) string {
	if instructions == "" {
		return prompt
	}
	return instructions + "\n\n" + prompt
}

func tailOf(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}
