package store

import (
	"context"

	"github.com/neocl/ttlstore/db"
)

// LexiconEntry is one surface form and its frequency across the store.
type LexiconEntry struct {
	Text  string
	Count int
}

const lexiconQuery = `
	SELECT text, COUNT(*) AS freq
	FROM token
	GROUP BY text
	ORDER BY freq DESC, text`

// Lexicon returns token surface forms ranked by frequency, most frequent
// first (ties broken alphabetically). A limit <= 0 returns everything.
func (s *Store) Lexicon(ctx context.Context, limit int) ([]LexiconEntry, error) {
	query := lexiconQuery
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var entries []LexiconEntry
	for rows.Next() {
		var e LexiconEntry
		if err := rows.Scan(&e.Text, &e.Count); err != nil {
			return nil, db.Translate(err)
		}
		entries = append(entries, e)
	}
	return entries, db.Translate(rows.Err())
}
