package store

import (
	"context"
	"database/sql"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

const (
	corpusExistsByNameQuery = `SELECT EXISTS(SELECT 1 FROM corpus WHERE name = ?)`
	corpusExistsQuery       = `SELECT EXISTS(SELECT 1 FROM corpus WHERE id = ?)`
	corpusInsertQuery       = `INSERT INTO corpus (name, title) VALUES (?, ?)`
	corpusSelectQuery       = `SELECT id, name, title FROM corpus WHERE id = ?`
	corpusSelectByNameQuery = `SELECT id, name, title FROM corpus WHERE name = ?`
	corpusListQuery         = `SELECT id, name, title FROM corpus ORDER BY id`
	corpusUpdateQuery       = `UPDATE corpus SET name = ?, title = ? WHERE id = ?`
)

// CreateCorpus creates a corpus with a globally unique name.
// Returns ErrDuplicateKey if the name is already taken.
func (s *Store) CreateCorpus(ctx context.Context, name, title string) (*ttl.Corpus, error) {
	if name == "" {
		return nil, errors.New("corpus name cannot be empty")
	}

	taken, err := s.exists(ctx, corpusExistsByNameQuery, name)
	if err != nil {
		return nil, errors.Wrap(err, "check corpus name")
	}
	if taken {
		return nil, errors.NewDuplicateKeyError("corpus %q already exists", name)
	}

	res, err := s.db.ExecContext(ctx, corpusInsertQuery, name, nullable(title))
	if err != nil {
		return nil, db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, db.Translate(err)
	}

	s.logger.Debugw("Created corpus", "id", id, "name", name)
	return &ttl.Corpus{ID: id, Name: name, Title: title}, nil
}

// GetCorpus fetches a corpus by ID. Returns ErrNotFound if absent.
func (s *Store) GetCorpus(ctx context.Context, id int64) (*ttl.Corpus, error) {
	return s.scanCorpus(s.db.QueryRowContext(ctx, corpusSelectQuery, id))
}

// GetCorpusByName fetches a corpus by its unique name. Returns ErrNotFound
// if absent.
func (s *Store) GetCorpusByName(ctx context.Context, name string) (*ttl.Corpus, error) {
	return s.scanCorpus(s.db.QueryRowContext(ctx, corpusSelectByNameQuery, name))
}

func (s *Store) scanCorpus(row *sql.Row) (*ttl.Corpus, error) {
	var c ttl.Corpus
	var title sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &title); err != nil {
		return nil, db.Translate(err)
	}
	c.Title = text(title)
	return &c, nil
}

// EnsureCorpus fetches the corpus with the given name, creating it if it
// does not exist yet.
func (s *Store) EnsureCorpus(ctx context.Context, name string) (*ttl.Corpus, error) {
	corpus, err := s.GetCorpusByName(ctx, name)
	if errors.IsNotFound(err) {
		return s.CreateCorpus(ctx, name, "")
	}
	return corpus, err
}

// ListCorpora returns all corpora ordered by creation.
func (s *Store) ListCorpora(ctx context.Context) ([]*ttl.Corpus, error) {
	rows, err := s.db.QueryContext(ctx, corpusListQuery)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var corpora []*ttl.Corpus
	for rows.Next() {
		var c ttl.Corpus
		var title sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &title); err != nil {
			return nil, db.Translate(err)
		}
		c.Title = text(title)
		corpora = append(corpora, &c)
	}
	return corpora, db.Translate(rows.Err())
}

// UpdateCorpus renames and/or retitles a corpus. Returns ErrNotFound if the
// corpus does not exist and ErrDuplicateKey if the new name belongs to
// another corpus.
func (s *Store) UpdateCorpus(ctx context.Context, corpus *ttl.Corpus) error {
	if corpus.Name == "" {
		return errors.New("corpus name cannot be empty")
	}

	current, err := s.GetCorpus(ctx, corpus.ID)
	if err != nil {
		return err
	}

	if corpus.Name != current.Name {
		taken, err := s.exists(ctx, corpusExistsByNameQuery, corpus.Name)
		if err != nil {
			return errors.Wrap(err, "check corpus name")
		}
		if taken {
			return errors.NewDuplicateKeyError("corpus %q already exists", corpus.Name)
		}
	}

	if _, err := s.db.ExecContext(ctx, corpusUpdateQuery, corpus.Name, nullable(corpus.Title), corpus.ID); err != nil {
		return db.Translate(err)
	}
	return nil
}

// DeleteCorpus deletes a corpus and, transitively, every document, sentence,
// token, concept, tag, link, and metadata row beneath it. The cascade runs
// inside a single transaction; either all rows are removed or none are.
// Returns ErrNotFound if the corpus does not exist.
func (s *Store) DeleteCorpus(ctx context.Context, id int64) error {
	found, err := s.exists(ctx, corpusExistsQuery, id)
	if err != nil {
		return errors.Wrap(err, "check corpus")
	}
	if !found {
		return errors.NewNotFoundError("corpus #%d", id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Dependent tables first: annotation layers, then sentences, then
	// document metadata and documents, then corpus metadata and the corpus.
	const sentencesOfCorpus = `SELECT id FROM sentence WHERE doc_id IN (SELECT id FROM document WHERE corpus_id = ?)`
	cascade := []string{
		`DELETE FROM cwl WHERE sentence_id IN (` + sentencesOfCorpus + `)`,
		`DELETE FROM tag WHERE sentence_id IN (` + sentencesOfCorpus + `)`,
		`DELETE FROM token WHERE sentence_id IN (` + sentencesOfCorpus + `)`,
		`DELETE FROM concept WHERE sentence_id IN (` + sentencesOfCorpus + `)`,
		`DELETE FROM sentence WHERE doc_id IN (SELECT id FROM document WHERE corpus_id = ?)`,
		`DELETE FROM meta_doc WHERE document_name IN (SELECT name FROM document WHERE corpus_id = ?)`,
		`DELETE FROM document WHERE corpus_id = ?`,
		`DELETE FROM meta_cor WHERE corpus_name = (SELECT name FROM corpus WHERE id = ?)`,
		`DELETE FROM corpus WHERE id = ?`,
	}
	for _, query := range cascade {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return db.Translate(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return db.Translate(err)
	}

	s.logger.Infow("Deleted corpus", "id", id)
	return nil
}
