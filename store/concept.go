package store

import (
	"context"
	"database/sql"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

const (
	conceptInsertQuery = `INSERT INTO concept (sentence_id, cidx, lemma, tag, flag, comment) VALUES (?, ?, ?, ?, ?, ?)`
	conceptSelectQuery = `SELECT id, sentence_id, cidx, lemma, tag, flag, comment FROM concept WHERE id = ?`
	conceptListQuery   = `SELECT id, sentence_id, cidx, lemma, tag, flag, comment FROM concept WHERE sentence_id = ? ORDER BY cidx`
	conceptExistsQuery = `SELECT EXISTS(SELECT 1 FROM concept WHERE id = ?)`

	linkInsertQuery = `INSERT INTO cwl (sentence_id, concept_id, token_id) VALUES (?, ?, ?)`
	linkExistsQuery = `SELECT EXISTS(SELECT 1 FROM cwl WHERE sentence_id = ? AND concept_id = ? AND token_id = ?)`
	linkDeleteQuery = `DELETE FROM cwl WHERE sentence_id = ? AND concept_id = ? AND token_id = ?`

	conceptTokensQuery = `
		SELECT t.id, t.sentence_id, t.widx, t.cfrom, t.cto, t.text, t.lemma, t.pos, t.comment
		FROM cwl c JOIN token t ON t.id = c.token_id
		WHERE c.concept_id = ?
		ORDER BY t.widx`
	tokenConceptsQuery = `
		SELECT k.id, k.sentence_id, k.cidx, k.lemma, k.tag, k.flag, k.comment
		FROM cwl c JOIN concept k ON k.id = c.concept_id
		WHERE c.token_id = ?
		ORDER BY k.cidx`
)

func insertConcept(ctx context.Context, ex execer, c *ttl.Concept) error {
	res, err := ex.ExecContext(ctx, conceptInsertQuery,
		c.SentenceID, c.Cidx, nullable(c.Lemma), nullable(c.Tag), nullable(c.Flag), nullable(c.Comment))
	if err != nil {
		return db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return db.Translate(err)
	}
	c.ID = id
	return nil
}

func insertLink(ctx context.Context, ex execer, sentenceID, conceptID, tokenID int64) error {
	_, err := ex.ExecContext(ctx, linkInsertQuery, sentenceID, conceptID, tokenID)
	return db.Translate(err)
}

// CreateConcept inserts a concept under c.SentenceID and sets c.ID.
// Linked tokens attached to c are ignored; link them with LinkConceptToken
// or persist the whole sentence with SaveSentence.
// Returns ErrDanglingReference if the sentence does not exist.
func (s *Store) CreateConcept(ctx context.Context, c *ttl.Concept) error {
	found, err := s.exists(ctx, sentenceExistsQuery, c.SentenceID)
	if err != nil {
		return errors.Wrap(err, "check sentence")
	}
	if !found {
		return errors.NewDanglingReferenceError("sentence #%d does not exist", c.SentenceID)
	}

	if err := insertConcept(ctx, s.db, c); err != nil {
		return err
	}
	s.logger.Debugw("Created concept", "id", c.ID, "sentence_id", c.SentenceID, "cidx", c.Cidx)
	return nil
}

// GetConcept fetches a concept by ID, without its linked tokens.
// Returns ErrNotFound if absent.
func (s *Store) GetConcept(ctx context.Context, id int64) (*ttl.Concept, error) {
	row := s.db.QueryRowContext(ctx, conceptSelectQuery, id)
	var c ttl.Concept
	if err := scanConceptColumns(row.Scan, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConcepts returns the concepts of a sentence ordered by cidx, without
// their linked tokens.
func (s *Store) GetConcepts(ctx context.Context, sentenceID int64) ([]*ttl.Concept, error) {
	return s.queryConcepts(ctx, conceptListQuery, sentenceID)
}

func (s *Store) queryConcepts(ctx context.Context, query string, args ...interface{}) ([]*ttl.Concept, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var concepts []*ttl.Concept
	for rows.Next() {
		var c ttl.Concept
		if err := scanConceptColumns(rows.Scan, &c); err != nil {
			return nil, err
		}
		concepts = append(concepts, &c)
	}
	return concepts, db.Translate(rows.Err())
}

func scanConceptColumns(scan func(...interface{}) error, c *ttl.Concept) error {
	var lemma, tag, flag, comment sql.NullString
	if err := scan(&c.ID, &c.SentenceID, &c.Cidx, &lemma, &tag, &flag, &comment); err != nil {
		return db.Translate(err)
	}
	c.Lemma = text(lemma)
	c.Tag = text(tag)
	c.Flag = text(flag)
	c.Comment = text(comment)
	return nil
}

// LinkConceptToken links a concept to a token it covers. The concept and
// token must both belong to the given sentence; this cannot be expressed as
// simple per-column foreign keys, so it is checked here explicitly.
//
// Returns ErrDanglingReference if sentence, concept, and token do not all
// resolve to the same sentence, and ErrDuplicateKey if the link already
// exists — callers can distinguish "already linked" from "linked now".
func (s *Store) LinkConceptToken(ctx context.Context, sentenceID, conceptID, tokenID int64) error {
	if err := s.checkLinkEndpoints(ctx, sentenceID, conceptID, tokenID); err != nil {
		return err
	}

	linked, err := s.exists(ctx, linkExistsQuery, sentenceID, conceptID, tokenID)
	if err != nil {
		return errors.Wrap(err, "check link")
	}
	if linked {
		return errors.NewDuplicateKeyError(
			"concept #%d is already linked to token #%d in sentence #%d", conceptID, tokenID, sentenceID)
	}

	if err := insertLink(ctx, s.db, sentenceID, conceptID, tokenID); err != nil {
		return err
	}
	s.logger.Debugw("Linked concept to token",
		"sentence_id", sentenceID, "concept_id", conceptID, "token_id", tokenID)
	return nil
}

// checkLinkEndpoints verifies that the concept and token exist and belong
// to the given sentence.
func (s *Store) checkLinkEndpoints(ctx context.Context, sentenceID, conceptID, tokenID int64) error {
	var conceptSentence int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sentence_id FROM concept WHERE id = ?`, conceptID).Scan(&conceptSentence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewDanglingReferenceError("concept #%d does not exist", conceptID)
		}
		return db.Translate(err)
	}
	if conceptSentence != sentenceID {
		return errors.NewDanglingReferenceError(
			"concept #%d belongs to sentence #%d, not #%d", conceptID, conceptSentence, sentenceID)
	}

	var tokenSentence int64
	err = s.db.QueryRowContext(ctx,
		`SELECT sentence_id FROM token WHERE id = ?`, tokenID).Scan(&tokenSentence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewDanglingReferenceError("token #%d does not exist", tokenID)
		}
		return db.Translate(err)
	}
	if tokenSentence != sentenceID {
		return errors.NewDanglingReferenceError(
			"token #%d belongs to sentence #%d, not #%d", tokenID, tokenSentence, sentenceID)
	}
	return nil
}

// UnlinkConceptToken removes a concept-token link. Returns ErrNotFound if
// the link does not exist.
func (s *Store) UnlinkConceptToken(ctx context.Context, sentenceID, conceptID, tokenID int64) error {
	res, err := s.db.ExecContext(ctx, linkDeleteQuery, sentenceID, conceptID, tokenID)
	if err != nil {
		return db.Translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return db.Translate(err)
	}
	if affected == 0 {
		return errors.NewNotFoundError(
			"no link between concept #%d and token #%d in sentence #%d", conceptID, tokenID, sentenceID)
	}
	return nil
}

// GetConceptTokens returns the tokens a concept is linked to, ordered by
// widx. Returns ErrNotFound if the concept does not exist.
func (s *Store) GetConceptTokens(ctx context.Context, conceptID int64) ([]*ttl.Token, error) {
	found, err := s.exists(ctx, conceptExistsQuery, conceptID)
	if err != nil {
		return nil, errors.Wrap(err, "check concept")
	}
	if !found {
		return nil, errors.NewNotFoundError("concept #%d", conceptID)
	}
	return s.queryTokens(ctx, conceptTokensQuery, conceptID)
}

// GetTokenConcepts returns the concepts that cover a token, ordered by cidx.
// Returns ErrNotFound if the token does not exist.
func (s *Store) GetTokenConcepts(ctx context.Context, tokenID int64) ([]*ttl.Concept, error) {
	found, err := s.exists(ctx, tokenExistsQuery, tokenID)
	if err != nil {
		return nil, errors.Wrap(err, "check token")
	}
	if !found {
		return nil, errors.NewNotFoundError("token #%d", tokenID)
	}
	return s.queryConcepts(ctx, tokenConceptsQuery, tokenID)
}

// DeleteConcept deletes a concept and its links inside one transaction.
// Returns ErrNotFound if the concept does not exist.
func (s *Store) DeleteConcept(ctx context.Context, id int64) error {
	found, err := s.exists(ctx, conceptExistsQuery, id)
	if err != nil {
		return errors.Wrap(err, "check concept")
	}
	if !found {
		return errors.NewNotFoundError("concept #%d", id)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cwl WHERE concept_id = ?`, id); err != nil {
		return db.Translate(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM concept WHERE id = ?`, id); err != nil {
		return db.Translate(err)
	}
	return db.Translate(tx.Commit())
}
