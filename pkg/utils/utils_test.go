package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter("gemini-2.5-flash")
	require.NoError(t, err)

	assert.Zero(t, counter.CountTokens(""))
	assert.Positive(t, counter.CountTokens("My payment was charged twice"))
	assert.Equal(t, counter.CountTokens("hello world"), CountTokensSimple("hello world"))

	var nilCounter *TokenCounter
	assert.Equal(t, 2, nilCounter.CountTokens("12345678"))
}

func TestKeepNewestWithinBudget(t *testing.T) {
	word := "hello "
	items := []string{
		strings.Repeat(word, 50),
		strings.Repeat(word, 50),
		strings.Repeat(word, 5),
	}

	assert.Equal(t, 0, KeepNewestWithinBudget(items, 0))
	assert.Equal(t, 0, KeepNewestWithinBudget(items, 10_000))
	assert.Equal(t, 1, KeepNewestWithinBudget(items, 70))
	assert.Equal(t, 2, KeepNewestWithinBudget(items, 20))
	assert.Equal(t, 2, KeepNewestWithinBudget(items, 1), "newest is always kept")
	assert.Equal(t, 0, KeepNewestWithinBudget(nil, 10))
}

func TestSafeExtension(t *testing.T) {
	tests := map[string]string{
		"call.WAV":          ".wav",
		"../../etc/x.pdf":   ".pdf",
		"noext":             "",
		"weird.p$f":         "",
		"archive.tar.gz":    ".gz",
		"long.abcdefghijkl": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeExtension(in), in)
	}
}

func TestGetMapField(t *testing.T) {
	m := map[string]any{"answer": "42", "confidence": 0.5, "empty": nil}

	v, err := GetMapField[string](m, "answer")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = GetMapField[string](m, "confidence")
	assert.ErrorIs(t, err, ErrFieldType)
	assert.Contains(t, err.Error(), "float64")

	_, err = GetMapField[string](m, "missing")
	assert.ErrorIs(t, err, ErrFieldMissing)
	_, err = GetMapField[string](m, "empty")
	assert.ErrorIs(t, err, ErrFieldMissing)
	_, err = GetMapField[string](nil, "answer")
	assert.ErrorIs(t, err, ErrFieldMissing)
}
