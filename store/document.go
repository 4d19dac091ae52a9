package store

import (
	"context"
	"database/sql"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

const (
	documentExistsByNameQuery = `SELECT EXISTS(SELECT 1 FROM document WHERE name = ?)`
	documentExistsQuery       = `SELECT EXISTS(SELECT 1 FROM document WHERE id = ?)`
	documentInsertQuery       = `INSERT INTO document (name, title, lang, corpus_id) VALUES (?, ?, ?, ?)`
	documentSelectQuery       = `SELECT id, name, title, lang, corpus_id FROM document WHERE id = ?`
	documentSelectByNameQuery = `SELECT id, name, title, lang, corpus_id FROM document WHERE name = ?`
	documentListQuery         = `SELECT id, name, title, lang, corpus_id FROM document WHERE corpus_id = ? ORDER BY id`
	documentUpdateQuery       = `UPDATE document SET name = ?, title = ?, lang = ? WHERE id = ?`
)

// CreateDocument creates a document under the given corpus. Document names
// are globally unique, not merely unique within the corpus.
// Returns ErrDanglingReference if the corpus does not exist and
// ErrDuplicateKey if the name is taken.
func (s *Store) CreateDocument(ctx context.Context, corpusID int64, name, title, lang string) (*ttl.Document, error) {
	if name == "" {
		return nil, errors.New("document name cannot be empty")
	}

	found, err := s.exists(ctx, corpusExistsQuery, corpusID)
	if err != nil {
		return nil, errors.Wrap(err, "check corpus")
	}
	if !found {
		return nil, errors.NewDanglingReferenceError("corpus #%d does not exist", corpusID)
	}

	taken, err := s.exists(ctx, documentExistsByNameQuery, name)
	if err != nil {
		return nil, errors.Wrap(err, "check document name")
	}
	if taken {
		return nil, errors.NewDuplicateKeyError("document %q already exists", name)
	}

	res, err := s.db.ExecContext(ctx, documentInsertQuery, name, nullable(title), nullable(lang), corpusID)
	if err != nil {
		return nil, db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, db.Translate(err)
	}

	s.logger.Debugw("Created document", "id", id, "name", name, "corpus_id", corpusID)
	return &ttl.Document{ID: id, Name: name, Title: title, Lang: lang, CorpusID: corpusID}, nil
}

// GetDocument fetches a document by ID. Returns ErrNotFound if absent.
func (s *Store) GetDocument(ctx context.Context, id int64) (*ttl.Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, documentSelectQuery, id))
}

// GetDocumentByName fetches a document by its unique name. Returns
// ErrNotFound if absent.
func (s *Store) GetDocumentByName(ctx context.Context, name string) (*ttl.Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, documentSelectByNameQuery, name))
}

func scanDocument(row *sql.Row) (*ttl.Document, error) {
	var d ttl.Document
	var title, lang sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &title, &lang, &d.CorpusID); err != nil {
		return nil, db.Translate(err)
	}
	d.Title = text(title)
	d.Lang = text(lang)
	return &d, nil
}

// EnsureDocument fetches the document with the given name, creating it under
// the given corpus if it does not exist yet.
func (s *Store) EnsureDocument(ctx context.Context, name string, corpusID int64) (*ttl.Document, error) {
	doc, err := s.GetDocumentByName(ctx, name)
	if errors.IsNotFound(err) {
		return s.CreateDocument(ctx, corpusID, name, "", "")
	}
	return doc, err
}

// ListDocuments returns the documents of a corpus ordered by creation.
func (s *Store) ListDocuments(ctx context.Context, corpusID int64) ([]*ttl.Document, error) {
	rows, err := s.db.QueryContext(ctx, documentListQuery, corpusID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var docs []*ttl.Document
	for rows.Next() {
		var d ttl.Document
		var title, lang sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &title, &lang, &d.CorpusID); err != nil {
			return nil, db.Translate(err)
		}
		d.Title = text(title)
		d.Lang = text(lang)
		docs = append(docs, &d)
	}
	return docs, db.Translate(rows.Err())
}

// UpdateDocument renames, retitles, or changes the language of a document.
// Returns ErrNotFound if the document does not exist and ErrDuplicateKey if
// the new name belongs to another document.
func (s *Store) UpdateDocument(ctx context.Context, doc *ttl.Document) error {
	if doc.Name == "" {
		return errors.New("document name cannot be empty")
	}

	current, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		return err
	}

	if doc.Name != current.Name {
		taken, err := s.exists(ctx, documentExistsByNameQuery, doc.Name)
		if err != nil {
			return errors.Wrap(err, "check document name")
		}
		if taken {
			return errors.NewDuplicateKeyError("document %q already exists", doc.Name)
		}
	}

	if _, err := s.db.ExecContext(ctx, documentUpdateQuery, doc.Name, nullable(doc.Title), nullable(doc.Lang), doc.ID); err != nil {
		return db.Translate(err)
	}
	return nil
}

// DeleteDocument deletes a document and, transitively, every sentence,
// token, concept, tag, link, and metadata row beneath it, inside a single
// transaction. Returns ErrNotFound if the document does not exist.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	found, err := s.exists(ctx, documentExistsQuery, id)
	if err != nil {
		return errors.Wrap(err, "check document")
	}
	if !found {
		return errors.NewNotFoundError("document #%d", id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const sentencesOfDoc = `SELECT id FROM sentence WHERE doc_id = ?`
	cascade := []string{
		`DELETE FROM cwl WHERE sentence_id IN (` + sentencesOfDoc + `)`,
		`DELETE FROM tag WHERE sentence_id IN (` + sentencesOfDoc + `)`,
		`DELETE FROM token WHERE sentence_id IN (` + sentencesOfDoc + `)`,
		`DELETE FROM concept WHERE sentence_id IN (` + sentencesOfDoc + `)`,
		`DELETE FROM sentence WHERE doc_id = ?`,
		`DELETE FROM meta_doc WHERE document_name = (SELECT name FROM document WHERE id = ?)`,
		`DELETE FROM document WHERE id = ?`,
	}
	for _, query := range cascade {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return db.Translate(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return db.Translate(err)
	}

	s.logger.Infow("Deleted document", "id", id)
	return nil
}
