package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

const (
	sentenceExistsQuery = `SELECT EXISTS(SELECT 1 FROM sentence WHERE id = ?)`
	sentenceInsertQuery = `INSERT INTO sentence (ident, text, doc_id, flag, comment) VALUES (?, ?, ?, ?, ?)`
	sentenceSelectQuery = `SELECT id, ident, text, doc_id, flag, comment FROM sentence WHERE id = ?`
	sentenceListQuery   = `SELECT id, ident, text, doc_id, flag, comment FROM sentence WHERE doc_id = ? ORDER BY id`
	sentenceUpdateQuery = `UPDATE sentence SET ident = ?, text = ?, flag = ?, comment = ? WHERE id = ?`

	sentenceTagsQuery = `SELECT id, sentence_id, token_id, cfrom, cto, label, source, tagtype FROM tag WHERE sentence_id = ?`
	sentenceCWLQuery  = `SELECT c.concept_id, c.token_id FROM cwl c JOIN token t ON t.id = c.token_id WHERE c.sentence_id = ? ORDER BY t.widx`
)

// execer is the common surface of *sql.DB and *sql.Tx used by the insert
// helpers shared between single-row operations and composite saves.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CreateSentence inserts a bare sentence row under sent.DocID and sets
// sent.ID. Tokens, concepts, and tags attached to sent are ignored; use
// SaveSentence to persist a fully annotated sentence atomically.
// Returns ErrDanglingReference if the document does not exist.
func (s *Store) CreateSentence(ctx context.Context, sent *ttl.Sentence) error {
	found, err := s.exists(ctx, documentExistsQuery, sent.DocID)
	if err != nil {
		return errors.Wrap(err, "check document")
	}
	if !found {
		return errors.NewDanglingReferenceError("document #%d does not exist", sent.DocID)
	}

	return s.insertSentence(ctx, s.db, sent)
}

func (s *Store) insertSentence(ctx context.Context, ex execer, sent *ttl.Sentence) error {
	res, err := ex.ExecContext(ctx, sentenceInsertQuery,
		nullable(sent.Ident), nullable(sent.Text), sent.DocID, nullable(sent.Flag), nullable(sent.Comment))
	if err != nil {
		return db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return db.Translate(err)
	}
	sent.ID = id
	return nil
}

// SaveSentence persists a fully annotated sentence in one transaction:
// the sentence row, its sentence-level tags, its tokens in surface order
// (widx assigned 0..n-1), each token's tags, its concepts, and the
// concept-word links. Either everything is committed or nothing is.
//
// Concept token lists must reference the same *ttl.Token values as
// sent.Tokens so the links can be resolved to the freshly assigned IDs;
// a concept token outside the sentence fails with ErrDanglingReference.
func (s *Store) SaveSentence(ctx context.Context, sent *ttl.Sentence) error {
	found, err := s.exists(ctx, documentExistsQuery, sent.DocID)
	if err != nil {
		return errors.Wrap(err, "check document")
	}
	if !found {
		return errors.NewDanglingReferenceError("document #%d does not exist", sent.DocID)
	}

	opID := uuid.NewString()
	s.logger.Debugw("Saving sentence",
		"op_id", opID,
		"doc_id", sent.DocID,
		"tokens", len(sent.Tokens),
		"concepts", len(sent.Concepts),
		"tags", len(sent.Tags),
	)

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.insertSentence(ctx, tx, sent); err != nil {
		return err
	}

	// Sentence-level tags never carry a token reference.
	for _, tag := range sent.Tags {
		tag.SentenceID = sent.ID
		tag.TokenID = nil
		if err := insertTag(ctx, tx, tag); err != nil {
			return err
		}
	}

	// Tokens in surface order, then each token's tags.
	for i, tok := range sent.Tokens {
		tok.SentenceID = sent.ID
		tok.Widx = i
		if err := insertToken(ctx, tx, tok); err != nil {
			return err
		}
		for _, tag := range tok.Tags {
			tag.SentenceID = sent.ID
			tokenID := tok.ID
			tag.TokenID = &tokenID
			if err := insertTag(ctx, tx, tag); err != nil {
				return err
			}
		}
	}

	// Concepts, then their links to the now-persisted tokens.
	for _, concept := range sent.Concepts {
		concept.SentenceID = sent.ID
		if err := insertConcept(ctx, tx, concept); err != nil {
			return err
		}
		for _, tok := range concept.Tokens {
			if tok.ID == 0 || tok.SentenceID != sent.ID {
				return errors.NewDanglingReferenceError(
					"concept #%d links a token outside sentence #%d", concept.Cidx, sent.ID)
			}
			if err := insertLink(ctx, tx, sent.ID, concept.ID, tok.ID); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return db.Translate(err)
	}

	s.logger.Infow("Saved sentence", "op_id", opID, "id", sent.ID, "doc_id", sent.DocID)
	return nil
}

// GetSentence fetches a sentence by ID and hydrates it: tokens ordered by
// widx, tags attached at sentence or token level, concepts ordered by cidx
// with their linked tokens ordered by widx. Returns ErrNotFound if absent.
func (s *Store) GetSentence(ctx context.Context, id int64) (*ttl.Sentence, error) {
	sent, err := scanSentence(s.db.QueryRowContext(ctx, sentenceSelectQuery, id))
	if err != nil {
		return nil, err
	}

	tokens, err := s.GetTokens(ctx, id)
	if err != nil {
		return nil, err
	}
	sent.Tokens = tokens
	tokenMap := make(map[int64]*ttl.Token, len(tokens))
	for _, tok := range tokens {
		tokenMap[tok.ID] = tok
	}

	if err := s.attachTags(ctx, sent, tokenMap); err != nil {
		return nil, err
	}

	concepts, err := s.GetConcepts(ctx, id)
	if err != nil {
		return nil, err
	}
	sent.Concepts = concepts
	conceptMap := make(map[int64]*ttl.Concept, len(concepts))
	for _, c := range concepts {
		conceptMap[c.ID] = c
	}

	// Links ordered by token widx, so each concept's token list comes out
	// in surface order.
	rows, err := s.db.QueryContext(ctx, sentenceCWLQuery, id)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()
	for rows.Next() {
		var conceptID, tokenID int64
		if err := rows.Scan(&conceptID, &tokenID); err != nil {
			return nil, db.Translate(err)
		}
		concept, ok := conceptMap[conceptID]
		if !ok {
			s.logger.Warnw("Orphan link in sentence", "sentence_id", id, "concept_id", conceptID)
			continue
		}
		concept.Tokens = append(concept.Tokens, tokenMap[tokenID])
	}
	return sent, db.Translate(rows.Err())
}

// attachTags loads all tags of a sentence and attaches them to the sentence
// or to the owning token. Tags referencing a token that no longer exists are
// reported and skipped rather than failing the read.
func (s *Store) attachTags(ctx context.Context, sent *ttl.Sentence, tokenMap map[int64]*ttl.Token) error {
	rows, err := s.db.QueryContext(ctx, sentenceTagsQuery, sent.ID)
	if err != nil {
		return db.Translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		tag, err := scanTagRow(rows)
		if err != nil {
			return err
		}
		if tag.TokenID == nil {
			sent.Tags = append(sent.Tags, tag)
			continue
		}
		if tok, ok := tokenMap[*tag.TokenID]; ok {
			tok.Tags = append(tok.Tags, tag)
		} else {
			s.logger.Warnw("Orphan tag in sentence",
				"sentence_id", sent.ID, "tag_id", tag.ID, "token_id", *tag.TokenID)
		}
	}
	return db.Translate(rows.Err())
}

func scanSentence(row *sql.Row) (*ttl.Sentence, error) {
	var sent ttl.Sentence
	var ident, textCol, flag, comment sql.NullString
	if err := row.Scan(&sent.ID, &ident, &textCol, &sent.DocID, &flag, &comment); err != nil {
		return nil, db.Translate(err)
	}
	sent.Ident = text(ident)
	sent.Text = text(textCol)
	sent.Flag = text(flag)
	sent.Comment = text(comment)
	return &sent, nil
}

// ListSentences returns the sentences of a document ordered by creation,
// without hydrating their annotation layers.
func (s *Store) ListSentences(ctx context.Context, docID int64) ([]*ttl.Sentence, error) {
	rows, err := s.db.QueryContext(ctx, sentenceListQuery, docID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var sents []*ttl.Sentence
	for rows.Next() {
		var sent ttl.Sentence
		var ident, textCol, flag, comment sql.NullString
		if err := rows.Scan(&sent.ID, &ident, &textCol, &sent.DocID, &flag, &comment); err != nil {
			return nil, db.Translate(err)
		}
		sent.Ident = text(ident)
		sent.Text = text(textCol)
		sent.Flag = text(flag)
		sent.Comment = text(comment)
		sents = append(sents, &sent)
	}
	return sents, db.Translate(rows.Err())
}

// UpdateSentence updates a sentence's ident, text, flag, and comment.
// Returns ErrNotFound if the sentence does not exist.
func (s *Store) UpdateSentence(ctx context.Context, sent *ttl.Sentence) error {
	found, err := s.exists(ctx, sentenceExistsQuery, sent.ID)
	if err != nil {
		return errors.Wrap(err, "check sentence")
	}
	if !found {
		return errors.NewNotFoundError("sentence #%d", sent.ID)
	}

	_, err = s.db.ExecContext(ctx, sentenceUpdateQuery,
		nullable(sent.Ident), nullable(sent.Text), nullable(sent.Flag), nullable(sent.Comment), sent.ID)
	return db.Translate(err)
}

// DeleteSentence deletes a sentence and its tokens, concepts, tags, and
// links inside a single transaction. Returns ErrNotFound if the sentence
// does not exist.
func (s *Store) DeleteSentence(ctx context.Context, id int64) error {
	found, err := s.exists(ctx, sentenceExistsQuery, id)
	if err != nil {
		return errors.Wrap(err, "check sentence")
	}
	if !found {
		return errors.NewNotFoundError("sentence #%d", id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cascade := []string{
		`DELETE FROM cwl WHERE sentence_id = ?`,
		`DELETE FROM tag WHERE sentence_id = ?`,
		`DELETE FROM token WHERE sentence_id = ?`,
		`DELETE FROM concept WHERE sentence_id = ?`,
		`DELETE FROM sentence WHERE id = ?`,
	}
	for _, query := range cascade {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return db.Translate(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return db.Translate(err)
	}

	s.logger.Infow("Deleted sentence", "id", id)
	return nil
}
