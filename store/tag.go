package store

import (
	"context"
	"database/sql"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
	"github.com/neocl/ttlstore/ttl"
)

const (
	tagInsertQuery = `INSERT INTO tag (sentence_id, token_id, cfrom, cto, label, source, tagtype) VALUES (?, ?, ?, ?, ?, ?, ?)`
	tagSelectQuery = `SELECT id, sentence_id, token_id, cfrom, cto, label, source, tagtype FROM tag WHERE id = ?`
)

// insertTag persists a tag, storing unset span boundaries and empty sources
// as NULL so files produced here match files produced by other tools.
func insertTag(ctx context.Context, ex execer, tag *ttl.Tag) error {
	var cfrom, cto interface{}
	if tag.Cfrom != ttl.SpanUnset {
		cfrom = tag.Cfrom
	}
	if tag.Cto != ttl.SpanUnset {
		cto = tag.Cto
	}
	var tokenID interface{}
	if tag.TokenID != nil {
		tokenID = *tag.TokenID
	}

	res, err := ex.ExecContext(ctx, tagInsertQuery,
		tag.SentenceID, tokenID, cfrom, cto,
		nullable(tag.Label), nullable(tag.Source), nullable(tag.TagType))
	if err != nil {
		return db.Translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return db.Translate(err)
	}
	tag.ID = id
	return nil
}

// CreateTag creates a tag under tag.SentenceID and sets tag.ID. A nil
// TokenID makes a sentence-level tag; a non-nil TokenID must reference a
// token of the same sentence (ErrDanglingReference otherwise). The tag's
// character span is independent of the token reference.
func (s *Store) CreateTag(ctx context.Context, tag *ttl.Tag) error {
	found, err := s.exists(ctx, sentenceExistsQuery, tag.SentenceID)
	if err != nil {
		return errors.Wrap(err, "check sentence")
	}
	if !found {
		return errors.NewDanglingReferenceError("sentence #%d does not exist", tag.SentenceID)
	}

	if tag.TokenID != nil {
		var tokenSentence int64
		err := s.db.QueryRowContext(ctx,
			`SELECT sentence_id FROM token WHERE id = ?`, *tag.TokenID).Scan(&tokenSentence)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.NewDanglingReferenceError("token #%d does not exist", *tag.TokenID)
			}
			return db.Translate(err)
		}
		if tokenSentence != tag.SentenceID {
			return errors.NewDanglingReferenceError(
				"token #%d belongs to sentence #%d, not #%d", *tag.TokenID, tokenSentence, tag.SentenceID)
		}
	}

	if err := insertTag(ctx, s.db, tag); err != nil {
		return err
	}
	s.logger.Debugw("Created tag",
		"id", tag.ID, "sentence_id", tag.SentenceID,
		"label", tag.Label, "sentence_level", tag.SentenceLevel())
	return nil
}

// GetTag fetches a tag by ID. Returns ErrNotFound if absent.
func (s *Store) GetTag(ctx context.Context, id int64) (*ttl.Tag, error) {
	rows, err := s.db.QueryContext(ctx, tagSelectQuery, id)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, db.Translate(err)
		}
		return nil, errors.NewNotFoundError("tag #%d", id)
	}
	return scanTagRow(rows)
}

// GetSentenceTags returns all tags of a sentence, sentence-level and
// token-level alike, in creation order. Use ttl.SplitTags to partition
// them. Returns ErrNotFound if the sentence does not exist.
func (s *Store) GetSentenceTags(ctx context.Context, sentenceID int64) ([]*ttl.Tag, error) {
	found, err := s.exists(ctx, sentenceExistsQuery, sentenceID)
	if err != nil {
		return nil, errors.Wrap(err, "check sentence")
	}
	if !found {
		return nil, errors.NewNotFoundError("sentence #%d", sentenceID)
	}

	rows, err := s.db.QueryContext(ctx, sentenceTagsQuery, sentenceID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var tags []*ttl.Tag
	for rows.Next() {
		tag, err := scanTagRow(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, db.Translate(rows.Err())
}

// scanTagRow scans the current row of a tag query, mapping NULL spans to
// ttl.SpanUnset and NULL strings to "".
func scanTagRow(rows *sql.Rows) (*ttl.Tag, error) {
	var tag ttl.Tag
	var tokenID sql.NullInt64
	var cfrom, cto sql.NullInt64
	var label, source, tagType sql.NullString
	if err := rows.Scan(&tag.ID, &tag.SentenceID, &tokenID, &cfrom, &cto, &label, &source, &tagType); err != nil {
		return nil, db.Translate(err)
	}
	if tokenID.Valid {
		tag.TokenID = &tokenID.Int64
	}
	tag.Cfrom = ttl.SpanUnset
	if cfrom.Valid {
		tag.Cfrom = int(cfrom.Int64)
	}
	tag.Cto = ttl.SpanUnset
	if cto.Valid {
		tag.Cto = int(cto.Int64)
	}
	tag.Label = text(label)
	tag.Source = text(source)
	tag.TagType = text(tagType)
	return &tag, nil
}

// DeleteTag removes a tag. Returns ErrNotFound if it does not exist.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tag WHERE id = ?`, id)
	if err != nil {
		return db.Translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return db.Translate(err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("tag #%d", id)
	}
	return nil
}
