package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts LLM tokens for prompt budgeting.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts with the tiktoken encoding of the configured model.
// Encoding data is loaded lazily on first use; if it cannot be loaded the
// counter falls back to a character-based estimate so budgeting keeps working
// offline.
type TiktokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return
			}
		}
		c.enc = enc
	})

	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates the token count as ceil(len/4), the usual
// characters-per-token rule of thumb for English text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateCounter is a deterministic, dependency-free Counter for tests and
// environments without tiktoken data.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return Estimate(text)
}
