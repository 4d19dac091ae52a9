package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

// linkFixture creates a sentence with tokens and a concept ready to link.
func linkFixture(t *testing.T, s *Store) (*ttl.Sentence, []*ttl.Token, *ttl.Concept) {
	t.Helper()
	ctx := context.Background()

	sent := makeSentence(t, s, "I am a sentence .")
	require.NoError(t, s.ImportTokens(ctx, sent.ID, wordTokens("I", "am", "a", "sentence", ".")))
	tokens, err := s.GetTokens(ctx, sent.ID)
	require.NoError(t, err)

	concept := &ttl.Concept{SentenceID: sent.ID, Cidx: 0, Lemma: "be", Tag: "v"}
	require.NoError(t, s.CreateConcept(ctx, concept))
	return sent, tokens, concept
}

func TestCreateConcept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, concept := linkFixture(t, s)
	assert.NotZero(t, concept.ID)

	got, err := s.GetConcept(ctx, concept.ID)
	require.NoError(t, err)
	assert.Equal(t, "be", got.Lemma)
	assert.Equal(t, "v", got.Tag)

	t.Run("nonexistent sentence fails with DanglingReference", func(t *testing.T) {
		err := s.CreateConcept(ctx, &ttl.Concept{SentenceID: 9999, Lemma: "x"})
		assert.True(t, errors.IsDanglingReference(err))
	})

	_, err = s.GetConcept(ctx, 9999)
	assert.True(t, errors.IsNotFound(err))
}

func TestLinkConceptToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent, tokens, concept := linkFixture(t, s)

	// Link "am" first, then "I": the query must still return surface order.
	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[1].ID))
	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID))

	linked, err := s.GetConceptTokens(ctx, concept.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "I", linked[0].Text)
	assert.Equal(t, "am", linked[1].Text)

	t.Run("duplicate triple fails with DuplicateKey", func(t *testing.T) {
		err := s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID)
		assert.True(t, errors.IsDuplicateKey(err))

		// The original link is unaffected.
		linked, lerr := s.GetConceptTokens(ctx, concept.ID)
		require.NoError(t, lerr)
		assert.Len(t, linked, 2)
	})

	t.Run("token from another sentence fails with DanglingReference", func(t *testing.T) {
		other := makeSentenceNamed(t, s, "d-other", "elsewhere")
		require.NoError(t, s.ImportTokens(ctx, other.ID, wordTokens("elsewhere")))
		otherTokens, err := s.GetTokens(ctx, other.ID)
		require.NoError(t, err)

		err = s.LinkConceptToken(ctx, sent.ID, concept.ID, otherTokens[0].ID)
		assert.True(t, errors.IsDanglingReference(err))
	})

	t.Run("nonexistent concept fails with DanglingReference", func(t *testing.T) {
		err := s.LinkConceptToken(ctx, sent.ID, 9999, tokens[0].ID)
		assert.True(t, errors.IsDanglingReference(err))
	})

	t.Run("nonexistent token fails with DanglingReference", func(t *testing.T) {
		err := s.LinkConceptToken(ctx, sent.ID, concept.ID, 9999)
		assert.True(t, errors.IsDanglingReference(err))
	})
}

func TestGetTokenConcepts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent, tokens, concept := linkFixture(t, s)

	second := &ttl.Concept{SentenceID: sent.ID, Cidx: 1, Lemma: "first-person"}
	require.NoError(t, s.CreateConcept(ctx, second))

	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID))
	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, second.ID, tokens[0].ID))

	covering, err := s.GetTokenConcepts(ctx, tokens[0].ID)
	require.NoError(t, err)
	require.Len(t, covering, 2)
	assert.Equal(t, "be", covering[0].Lemma)
	assert.Equal(t, "first-person", covering[1].Lemma)

	// A token nothing covers.
	covering, err = s.GetTokenConcepts(ctx, tokens[4].ID)
	require.NoError(t, err)
	assert.Empty(t, covering)

	_, err = s.GetTokenConcepts(ctx, 9999)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnlinkConceptToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent, tokens, concept := linkFixture(t, s)
	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID))

	require.NoError(t, s.UnlinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID))

	linked, err := s.GetConceptTokens(ctx, concept.ID)
	require.NoError(t, err)
	assert.Empty(t, linked)

	err = s.UnlinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteConcept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent, tokens, concept := linkFixture(t, s)
	require.NoError(t, s.LinkConceptToken(ctx, sent.ID, concept.ID, tokens[0].ID))

	require.NoError(t, s.DeleteConcept(ctx, concept.ID))

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM cwl").Scan(&count))
	assert.Zero(t, count, "links must be removed with their concept")

	// Tokens survive their concept.
	remaining, err := s.GetTokens(ctx, sent.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 5)

	assert.True(t, errors.IsNotFound(s.DeleteConcept(ctx, concept.ID)))
}

func TestGetConceptsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent := makeSentence(t, s, "ordered concepts")
	// Insert out of cidx order.
	for _, cidx := range []int{2, 0, 1} {
		require.NoError(t, s.CreateConcept(ctx, &ttl.Concept{SentenceID: sent.ID, Cidx: cidx}))
	}

	concepts, err := s.GetConcepts(ctx, sent.ID)
	require.NoError(t, err)
	require.Len(t, concepts, 3)
	for i, c := range concepts {
		assert.Equal(t, i, c.Cidx)
	}
}
