package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.AddDocuments(ctx,
		[]string{
			"Customer was charged twice for the monthly subscription",
			"Transcription of the onboarding call about password resets",
			"Invoice total is 42 USD",
		},
		[]map[string]any{{"tool": "classify_ticket", "category": "Billing"}, {"tool": "transcribe_audio"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := s.SimilaritySearch(ctx, "charged twice?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Content, "charged twice")
	assert.Equal(t, "Billing", hits[0].Metadata["category"])
	assert.Positive(t, hits[0].Score)
	assert.NotEmpty(t, hits[0].ID)
	assert.False(t, hits[0].CreatedAt.IsZero())

	hits, err = s.SimilaritySearch(ctx, "invoice", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Empty(t, hits[0].Metadata, "missing metadata is stored as an empty object")
}

func TestSearchIsSafeForFTSSyntax(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, []string{"payment failed with error AND crash"}, nil)
	require.NoError(t, err)

	for _, q := range []string{`"unbalanced`, "NEAR(", "a* OR -b", "???"} {
		_, err := s.SimilaritySearch(ctx, q, 3)
		assert.NoError(t, err, q)
	}
}

func TestValidationErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddDocuments(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNoTexts)

	_, err = s.SimilaritySearch(ctx, "  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestDeleteCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, []string{"refund requested", "refund approved"}, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCollection(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	hits, err := s.SimilaritySearch(ctx, "refund", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.AddDocuments(ctx, []string{"account locked after login attempts"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	hits, err := s.SimilaritySearch(ctx, "login", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"charged" OR "twice"`, ftsQuery("charged, twice?"))
	assert.Empty(t, ftsQuery("?!"))
}
