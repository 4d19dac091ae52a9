package store

import (
	"context"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

// Metadata is a uniform key-value extension mechanism at three scopes:
// process-wide (meta), per-document (meta_doc), and per-corpus (meta_cor).
// Set is an upsert; Get reports ErrNotFound for absent keys; document and
// corpus scoped rows are removed when their owner is deleted.

const (
	metaUpsertQuery = `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`
	metaSelectQuery = `SELECT value FROM meta WHERE key = ?`
	metaListQuery   = `SELECT key, value FROM meta ORDER BY key`

	docMetaUpsertQuery = `INSERT OR REPLACE INTO meta_doc (document_name, key, value) VALUES (?, ?, ?)`
	docMetaSelectQuery = `SELECT value FROM meta_doc WHERE document_name = ? AND key = ?`
	docMetaListQuery   = `SELECT document_name, key, value FROM meta_doc WHERE document_name = ? ORDER BY key`

	corpusMetaUpsertQuery = `INSERT OR REPLACE INTO meta_cor (corpus_name, key, value) VALUES (?, ?, ?)`
	corpusMetaSelectQuery = `SELECT value FROM meta_cor WHERE corpus_name = ? AND key = ?`
	corpusMetaListQuery   = `SELECT corpus_name, key, value FROM meta_cor WHERE corpus_name = ? ORDER BY key`
)

// SetMeta upserts a process-wide key/value pair.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("meta key cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, metaUpsertQuery, key, value)
	return db.Translate(err)
}

// GetMeta returns the process-wide value for key, or ErrNotFound.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.QueryRowContext(ctx, metaSelectQuery, key).Scan(&value); err != nil {
		return "", db.Translate(err)
	}
	return value, nil
}

// DeleteMeta removes a process-wide key. Returns ErrNotFound if absent.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	return s.deleteMetaRow(ctx, `DELETE FROM meta WHERE key = ?`, key)
}

// AllMeta returns all process-wide pairs ordered by key.
func (s *Store) AllMeta(ctx context.Context) ([]ttl.Meta, error) {
	rows, err := s.db.QueryContext(ctx, metaListQuery)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var metas []ttl.Meta
	for rows.Next() {
		var m ttl.Meta
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, db.Translate(err)
		}
		metas = append(metas, m)
	}
	return metas, db.Translate(rows.Err())
}

// SetDocMeta upserts a key/value pair on the named document.
// Returns ErrDanglingReference if the document does not exist.
func (s *Store) SetDocMeta(ctx context.Context, docName, key, value string) error {
	if key == "" {
		return errors.New("meta key cannot be empty")
	}
	found, err := s.exists(ctx, documentExistsByNameQuery, docName)
	if err != nil {
		return errors.Wrap(err, "check document")
	}
	if !found {
		return errors.NewDanglingReferenceError("document %q does not exist", docName)
	}
	_, err = s.db.ExecContext(ctx, docMetaUpsertQuery, docName, key, value)
	return db.Translate(err)
}

// GetDocMeta returns the value for (docName, key), or ErrNotFound.
func (s *Store) GetDocMeta(ctx context.Context, docName, key string) (string, error) {
	var value string
	if err := s.db.QueryRowContext(ctx, docMetaSelectQuery, docName, key).Scan(&value); err != nil {
		return "", db.Translate(err)
	}
	return value, nil
}

// DeleteDocMeta removes (docName, key). Returns ErrNotFound if absent.
func (s *Store) DeleteDocMeta(ctx context.Context, docName, key string) error {
	return s.deleteMetaRow(ctx, `DELETE FROM meta_doc WHERE document_name = ? AND key = ?`, docName, key)
}

// ListDocMeta returns all pairs of the named document ordered by key.
func (s *Store) ListDocMeta(ctx context.Context, docName string) ([]ttl.DocMeta, error) {
	rows, err := s.db.QueryContext(ctx, docMetaListQuery, docName)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var metas []ttl.DocMeta
	for rows.Next() {
		var m ttl.DocMeta
		if err := rows.Scan(&m.DocumentName, &m.Key, &m.Value); err != nil {
			return nil, db.Translate(err)
		}
		metas = append(metas, m)
	}
	return metas, db.Translate(rows.Err())
}

// SetCorpusMeta upserts a key/value pair on the named corpus.
// Returns ErrDanglingReference if the corpus does not exist.
func (s *Store) SetCorpusMeta(ctx context.Context, corpusName, key, value string) error {
	if key == "" {
		return errors.New("meta key cannot be empty")
	}
	found, err := s.exists(ctx, corpusExistsByNameQuery, corpusName)
	if err != nil {
		return errors.Wrap(err, "check corpus")
	}
	if !found {
		return errors.NewDanglingReferenceError("corpus %q does not exist", corpusName)
	}
	_, err = s.db.ExecContext(ctx, corpusMetaUpsertQuery, corpusName, key, value)
	return db.Translate(err)
}

// GetCorpusMeta returns the value for (corpusName, key), or ErrNotFound.
func (s *Store) GetCorpusMeta(ctx context.Context, corpusName, key string) (string, error) {
	var value string
	if err := s.db.QueryRowContext(ctx, corpusMetaSelectQuery, corpusName, key).Scan(&value); err != nil {
		return "", db.Translate(err)
	}
	return value, nil
}

// DeleteCorpusMeta removes (corpusName, key). Returns ErrNotFound if absent.
func (s *Store) DeleteCorpusMeta(ctx context.Context, corpusName, key string) error {
	return s.deleteMetaRow(ctx, `DELETE FROM meta_cor WHERE corpus_name = ? AND key = ?`, corpusName, key)
}

// ListCorpusMeta returns all pairs of the named corpus ordered by key.
func (s *Store) ListCorpusMeta(ctx context.Context, corpusName string) ([]ttl.CorpusMeta, error) {
	rows, err := s.db.QueryContext(ctx, corpusMetaListQuery, corpusName)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var metas []ttl.CorpusMeta
	for rows.Next() {
		var m ttl.CorpusMeta
		if err := rows.Scan(&m.CorpusName, &m.Key, &m.Value); err != nil {
			return nil, db.Translate(err)
		}
		metas = append(metas, m)
	}
	return metas, db.Translate(rows.Err())
}

func (s *Store) deleteMetaRow(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return db.Translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return db.Translate(err)
	}
	if affected == 0 {
		return errors.Wrap(errors.ErrNotFound, "meta key")
	}
	return nil
}
