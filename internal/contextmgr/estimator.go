// Token estimation for context budgeting.
package contextmgr

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/config"
)

// TokenEstimator approximates the token cost of a piece of text.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates ceil(len/ratio). It is the default and the basis of
// all budget arithmetic; keep it exact.
type CharEstimator struct {
	// Ratio is characters per token; 0 means config.TokenEstimateRatio.
	Ratio int
}

// Estimate implements TokenEstimator.
func (e CharEstimator) Estimate(text string) int {
	ratio := e.Ratio
	if ratio <= 0 {
		ratio = config.TokenEstimateRatio
	}
	return (len(text) + ratio - 1) / ratio
}

// TiktokenEstimator counts tokens with the cl100k_base encoding. More exact
// than CharEstimator but needs the encoding tables at startup.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the cl100k_base encoding.
func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{enc: enc}, nil
}

// Estimate implements TokenEstimator.
func (e *TiktokenEstimator) Estimate(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// EstimatorFor returns the estimator selected by name, falling back to the
// character heuristic when tiktoken's tables cannot be loaded.
func EstimatorFor(name string) TokenEstimator {
	if name == "tiktoken" {
		est, err := NewTiktokenEstimator()
		if err == nil {
			return est
		}
		log.Warn().Err(err).Msg("tiktoken estimator unavailable, using chars/4")
	}
	return CharEstimator{}
}
