// Package utils provides tiktoken-based token counting and small helpers.
package utils

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides token counting with a tiktoken codec.
type TokenCounter struct {
	codec tokenizer.Codec
}

//nolint:gochecknoglobals // Codec construction is expensive; share one per process
var (
	defaultCounter     *TokenCounter
	defaultCounterOnce sync.Once
)

// NewTokenCounter creates a token counter. Every supported backend is
// approximated with the GPT-4 encoding.
func NewTokenCounter(model string) (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		// 4 chars ≈ 1 token
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountTokensSimple counts tokens with a shared GPT-4 counter.
func CountTokensSimple(text string) int {
	defaultCounterOnce.Do(func() {
		// A nil counter falls back to the character estimate.
		defaultCounter, _ = NewTokenCounter("gpt-4")
	})
	return defaultCounter.CountTokens(text)
}

// KeepNewestWithinBudget returns the index of the oldest item to keep so that
// items[idx:] fits within budget tokens. The newest item is always kept, even
// when it alone exceeds the budget. A non-positive budget keeps everything.
func KeepNewestWithinBudget(items []string, budget int) int {
	if budget <= 0 || len(items) == 0 {
		return 0
	}
	used := 0
	for i := len(items) - 1; i >= 0; i-- {
		used += CountTokensSimple(items[i])
		if used > budget {
			if i == len(items)-1 {
				return i
			}
			return i + 1
		}
	}
	return 0
}
