package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

func TestCreateDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)

	doc, err := s.CreateDocument(ctx, corpus.ID, "d1", "Title", "eng")
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, corpus.ID, doc.CorpusID)

	t.Run("nonexistent corpus fails with DanglingReference", func(t *testing.T) {
		_, err := s.CreateDocument(ctx, 9999, "d2", "", "")
		assert.True(t, errors.IsDanglingReference(err))
	})

	t.Run("duplicate name fails with DuplicateKey", func(t *testing.T) {
		_, err := s.CreateDocument(ctx, corpus.ID, "d1", "", "")
		assert.True(t, errors.IsDuplicateKey(err))
	})

	t.Run("name is unique across corpora", func(t *testing.T) {
		other, err := s.CreateCorpus(ctx, "c2", "")
		require.NoError(t, err)
		_, err = s.CreateDocument(ctx, other.ID, "d1", "", "")
		assert.True(t, errors.IsDuplicateKey(err))
	})
}

func TestGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	created, err := s.CreateDocument(ctx, corpus.ID, "d1", "", "jpn")
	require.NoError(t, err)

	byName, err := s.GetDocumentByName(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "jpn", byName.Lang)

	_, err = s.GetDocument(ctx, 9999)
	assert.True(t, errors.IsNotFound(err))
}

func TestEnsureDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)

	first, err := s.EnsureDocument(ctx, "d1", corpus.ID)
	require.NoError(t, err)
	second, err := s.EnsureDocument(ctx, "d1", corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.CreateDocument(ctx, corpus.ID, name, "", "")
		require.NoError(t, err)
	}

	docs, err := s.ListDocuments(ctx, corpus.ID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].Name)
	assert.Equal(t, "c", docs[2].Name)
}

func TestUpdateDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, corpus.ID, "d1", "", "")
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, corpus.ID, "d2", "", "")
	require.NoError(t, err)

	doc.Title = "Retitled"
	doc.Lang = "vie"
	require.NoError(t, s.UpdateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Retitled", got.Title)
	assert.Equal(t, "vie", got.Lang)

	doc.Name = "d2"
	assert.True(t, errors.IsDuplicateKey(s.UpdateDocument(ctx, doc)))

	assert.True(t, errors.IsNotFound(s.UpdateDocument(ctx, &ttl.Document{ID: 9999, Name: "ghost"})))
}

func TestDeleteDocumentCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, corpus.ID, "d1", "", "")
	require.NoError(t, err)

	sent := &ttl.Sentence{DocID: doc.ID, Text: "going away"}
	require.NoError(t, s.CreateSentence(ctx, sent))
	require.NoError(t, s.ImportTokens(ctx, sent.ID, wordTokens("going", "away")))
	require.NoError(t, s.SetDocMeta(ctx, "d1", "k", "v"))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	for _, table := range []string{"sentence", "token", "meta_doc"} {
		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, "no rows should remain in %s", table)
	}

	// The corpus itself is untouched.
	_, err = s.GetCorpus(ctx, corpus.ID)
	assert.NoError(t, err)

	assert.True(t, errors.IsNotFound(s.DeleteDocument(ctx, doc.ID)))
}
