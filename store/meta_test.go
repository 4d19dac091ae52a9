package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neocl/ttlstore/errors"
)

func TestGlobalMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMeta(ctx, "generator", "ttlstore"))
	require.NoError(t, s.SetMeta(ctx, "version", "1"))

	value, err := s.GetMeta(ctx, "generator")
	require.NoError(t, err)
	assert.Equal(t, "ttlstore", value)

	t.Run("set is an upsert", func(t *testing.T) {
		require.NoError(t, s.SetMeta(ctx, "version", "2"))
		value, err := s.GetMeta(ctx, "version")
		require.NoError(t, err)
		assert.Equal(t, "2", value)

		all, err := s.AllMeta(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("missing key is NotFound", func(t *testing.T) {
		_, err := s.GetMeta(ctx, "nope")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteMeta(ctx, "generator"))
		_, err := s.GetMeta(ctx, "generator")
		assert.True(t, errors.IsNotFound(err))

		assert.True(t, errors.IsNotFound(s.DeleteMeta(ctx, "generator")))
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, s.SetMeta(ctx, "", "v"))
	})
}

func TestDocMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, corpus.ID, "d1", "", "")
	require.NoError(t, err)

	t.Run("upsert leaves exactly one row", func(t *testing.T) {
		require.NoError(t, s.SetDocMeta(ctx, "d1", "author", "X"))
		require.NoError(t, s.SetDocMeta(ctx, "d1", "author", "Y"))

		value, err := s.GetDocMeta(ctx, "d1", "author")
		require.NoError(t, err)
		assert.Equal(t, "Y", value)

		var count int
		require.NoError(t, s.DB().QueryRow(
			"SELECT COUNT(*) FROM meta_doc WHERE document_name = 'd1' AND key = 'author'").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("nonexistent document fails with DanglingReference", func(t *testing.T) {
		err := s.SetDocMeta(ctx, "ghost", "k", "v")
		assert.True(t, errors.IsDanglingReference(err))
	})

	t.Run("list is ordered by key", func(t *testing.T) {
		require.NoError(t, s.SetDocMeta(ctx, "d1", "year", "2020"))
		metas, err := s.ListDocMeta(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, metas, 2)
		assert.Equal(t, "author", metas[0].Key)
		assert.Equal(t, "year", metas[1].Key)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteDocMeta(ctx, "d1", "year"))
		_, err := s.GetDocMeta(ctx, "d1", "year")
		assert.True(t, errors.IsNotFound(err))
		assert.True(t, errors.IsNotFound(s.DeleteDocMeta(ctx, "d1", "year")))
	})
}

func TestCorpusMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)

	require.NoError(t, s.SetCorpusMeta(ctx, "c1", "license", "CC-BY"))
	require.NoError(t, s.SetCorpusMeta(ctx, "c1", "license", "CC-BY-SA"))

	value, err := s.GetCorpusMeta(ctx, "c1", "license")
	require.NoError(t, err)
	assert.Equal(t, "CC-BY-SA", value)

	metas, err := s.ListCorpusMeta(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, metas, 1)

	assert.True(t, errors.IsDanglingReference(s.SetCorpusMeta(ctx, "ghost", "k", "v")))

	require.NoError(t, s.DeleteCorpusMeta(ctx, "c1", "license"))
	_, err = s.GetCorpusMeta(ctx, "c1", "license")
	assert.True(t, errors.IsNotFound(err))
}

// Metadata rows belong to their owner: deleting the owner removes them.
func TestMetaCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	corpus, err := s.CreateCorpus(ctx, "c1", "")
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, corpus.ID, "d1", "", "")
	require.NoError(t, err)

	require.NoError(t, s.SetCorpusMeta(ctx, "c1", "k", "v"))
	require.NoError(t, s.SetDocMeta(ctx, "d1", "k", "v"))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	_, err = s.GetDocMeta(ctx, "d1", "k")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, s.DeleteCorpus(ctx, corpus.ID))
	_, err = s.GetCorpusMeta(ctx, "c1", "k")
	assert.True(t, errors.IsNotFound(err))
}
