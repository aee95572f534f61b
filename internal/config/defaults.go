// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when exact counts aren't available.
const TokenEstimateRatio = 4

// =============================================================================
// CONTEXT BUDGET
// =============================================================================

// DefaultMaxContextTokens is the fixed context window assumed for the
// on-device model.
const DefaultMaxContextTokens = 4000

// DefaultReserveForOutput is how many tokens of the context window are held
// back for the model's reply on single-round requests.
const DefaultReserveForOutput = 512

// MultiRoundReserve is the larger output reserve used while a segment stream
// is driving multiple generation rounds.
const MultiRoundReserve = 800

// DefaultBudgetFloor is the minimum prompt budget for single-round requests.
const DefaultBudgetFloor = 512

// SegmentBudgetFloor is the minimum prompt budget per segment round.
const SegmentBudgetFloor = 1200

// =============================================================================
// SUMMARIZATION
// =============================================================================

// DefaultRecentMessages is how many trailing messages are kept verbatim when
// a conversation is compressed.
const DefaultRecentMessages = 6

// MaxOlderChars caps the amount of older-conversation text handed to the
// summarizer in one call.
const MaxOlderChars = 6000

// SummaryTargetChars is the character target for the first summarization pass.
const SummaryTargetChars = 1500

// TightSummaryTargetChars is the character target for the second, tighter
// pass and for the segment streamer's compact prompt summary.
const TightSummaryTargetChars = 800

// FallbackHeadSentences and FallbackTailSentences size the naive extractive
// summary used when the provider cannot summarize.
const (
	FallbackHeadSentences = 8
	FallbackTailSentences = 4
)

// =============================================================================
// SEGMENT STREAMING
// =============================================================================

// DefaultMaxSegments bounds how many generation rounds one long-form answer
// may take.
const DefaultMaxSegments = 4

// DefaultSegmentChars is the target length of one generated segment.
const DefaultSegmentChars = 2000

// DefaultContinueRatio is the fraction of a segment's target length that each
// round must keep producing for the stream to continue.
const DefaultContinueRatio = 0.6

// DefaultTailChars is how much of the already-generated text is echoed back
// to the provider as do-not-repeat context.
const DefaultTailChars = 1500

// MinTailChars is the floor the tail shrinks to when the round budget is
// tight.
const MinTailChars = 200

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the Ollama-compatible listen port.
const DefaultPort = 11434

// DefaultHost restricts the listener to loopback.
const DefaultHost = "127.0.0.1"

// DefaultBufferSize is the per-connection read chunk size.
const DefaultBufferSize = 4096

// =============================================================================
// PROVIDER
// =============================================================================

// DefaultProviderTimeout bounds one upstream generation call.
const DefaultProviderTimeout = 120 * time.Second

// DefaultModelID is the identifier the gateway advertises for the on-device
// model.
const DefaultModelID = "apple.local"

// DefaultModelOwner is reported as owned_by in the OpenAI model list.
const DefaultModelOwner = "apple"
