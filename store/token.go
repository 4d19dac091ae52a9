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
	tokenInsertQuery = `INSERT INTO token (sentence_id, widx, cfrom, cto, text, lemma, pos, comment) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	tokenSelectQuery = `SELECT id, sentence_id, widx, cfrom, cto, text, lemma, pos, comment FROM token WHERE id = ?`
	tokenListQuery   = `SELECT id, sentence_id, widx, cfrom, cto, text, lemma, pos, comment FROM token WHERE sentence_id = ? ORDER BY widx`
	tokenUpdateQuery = `UPDATE token SET text = ?, lemma = ?, pos = ?, comment = ? WHERE id = ?`
	tokenCountQuery  = `SELECT COUNT(*) FROM token WHERE sentence_id = ?`
	tokenExistsQuery = `SELECT EXISTS(SELECT 1 FROM token WHERE id = ?)`
)

func insertToken(ctx context.Context, ex execer, tok *ttl.Token) error {
	res, err := ex.ExecContext(ctx, tokenInsertQuery,
		tok.SentenceID, tok.Widx, tok.Cfrom, tok.Cto,
		nullable(tok.Text), nullable(tok.Lemma), nullable(tok.POS), nullable(tok.Comment))
	if err != nil {
		return db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return db.Translate(err)
	}
	tok.ID = id
	return nil
}

// ImportTokens inserts the token sequence of a sentence as an atomic batch:
// all tokens are inserted with widx assigned from slice order (0..n-1), or
// none are. Each token's ID and Widx are set on success.
//
// Returns ErrDanglingReference if the sentence does not exist, and
// ErrDuplicateKey if the sentence already has tokens — the token sequence
// is imported once; individual tokens are edited with UpdateToken.
func (s *Store) ImportTokens(ctx context.Context, sentenceID int64, tokens []*ttl.Token) error {
	found, err := s.exists(ctx, sentenceExistsQuery, sentenceID)
	if err != nil {
		return errors.Wrap(err, "check sentence")
	}
	if !found {
		return errors.NewDanglingReferenceError("sentence #%d does not exist", sentenceID)
	}

	var existing int
	if err := s.db.QueryRowContext(ctx, tokenCountQuery, sentenceID).Scan(&existing); err != nil {
		return db.Translate(err)
	}
	if existing > 0 {
		return errors.NewDuplicateKeyError("sentence #%d already has %d tokens", sentenceID, existing)
	}

	if len(tokens) == 0 {
		return nil
	}

	opID := uuid.NewString()
	s.logger.Debugw("Importing token batch",
		"op_id", opID, "sentence_id", sentenceID, "count", len(tokens))

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, tok := range tokens {
		tok.SentenceID = sentenceID
		tok.Widx = i
		if err := insertToken(ctx, tx, tok); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return db.Translate(err)
	}

	s.logger.Infow("Imported token batch",
		"op_id", opID, "sentence_id", sentenceID, "count", len(tokens))
	return nil
}

// GetToken fetches a token by ID. Returns ErrNotFound if absent.
func (s *Store) GetToken(ctx context.Context, id int64) (*ttl.Token, error) {
	row := s.db.QueryRowContext(ctx, tokenSelectQuery, id)
	var tok ttl.Token
	if err := scanTokenColumns(row.Scan, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// GetTokens returns the tokens of a sentence ordered by widx.
func (s *Store) GetTokens(ctx context.Context, sentenceID int64) ([]*ttl.Token, error) {
	return s.queryTokens(ctx, tokenListQuery, sentenceID)
}

func (s *Store) queryTokens(ctx context.Context, query string, args ...interface{}) ([]*ttl.Token, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var tokens []*ttl.Token
	for rows.Next() {
		var tok ttl.Token
		if err := scanTokenColumns(rows.Scan, &tok); err != nil {
			return nil, err
		}
		tokens = append(tokens, &tok)
	}
	return tokens, db.Translate(rows.Err())
}

func scanTokenColumns(scan func(...interface{}) error, tok *ttl.Token) error {
	var textCol, lemma, pos, comment sql.NullString
	if err := scan(&tok.ID, &tok.SentenceID, &tok.Widx, &tok.Cfrom, &tok.Cto,
		&textCol, &lemma, &pos, &comment); err != nil {
		return db.Translate(err)
	}
	tok.Text = text(textCol)
	tok.Lemma = text(lemma)
	tok.POS = text(pos)
	tok.Comment = text(comment)
	return nil
}

// UpdateToken updates a token's mutable annotation fields: text, lemma,
// part-of-speech, and comment. Position (widx) and character span are fixed
// at import. Returns ErrNotFound if the token does not exist.
func (s *Store) UpdateToken(ctx context.Context, tok *ttl.Token) error {
	found, err := s.exists(ctx, tokenExistsQuery, tok.ID)
	if err != nil {
		return errors.Wrap(err, "check token")
	}
	if !found {
		return errors.NewNotFoundError("token #%d", tok.ID)
	}

	_, err = s.db.ExecContext(ctx, tokenUpdateQuery,
		nullable(tok.Text), nullable(tok.Lemma), nullable(tok.POS), nullable(tok.Comment), tok.ID)
	return db.Translate(err)
}
