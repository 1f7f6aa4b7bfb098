package search

import (
	"errors"
	"strings"
)

// MaxLimit caps the number of hits a single query may return.
const MaxLimit = 1000

// Query is a full-text query over indexed speeches.
type Query struct {
	Text     string
	Limit    int
	Offset   int
	MinScore float64

	// Chamber restricts hits to one chamber ("Senate", "House", ...).
	Chamber string

	// Speaker restricts hits to speeches whose speaker matches.
	Speaker string

	// Fuzzy matches terms within Fuzziness edits (1 or 2, default 2).
	Fuzzy     bool
	Fuzziness int
}

// ProcessQuery validates q and applies defaults.
func ProcessQuery(q *Query, defaultLimit int) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return errors.New("query is required")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	if q.Fuzzy && (q.Fuzziness <= 0 || q.Fuzziness > 2) {
		q.Fuzziness = 2
	}
	return nil
}

// terms splits a query into lowercase terms.
func terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
