// Package query applies optional filter predicates and pagination to an
// in-memory record set. Pure, no I/O.
package query

import (
	"time"

	"github.com/disha-labs/insight/pkg/record"
)

// Filter narrows a record set. Every zero-valued field is ignored; the
// present fields combine with AND semantics. Constructed per query,
// stateless.
type Filter struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`

	Grade       string `json:"grade,omitempty"`
	Board       string `json:"board,omitempty"`
	Location    string `json:"location,omitempty"`
	RuralUrban  string `json:"ruralUrban,omitempty"`
	Language    string `json:"language,omitempty"`
	IncomeRange string `json:"incomeRange,omitempty"`

	// Pagination. Offset drops the first N matches, then Limit keeps at
	// most M of what remains. That order is part of the contract.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Apply returns the records matching the filter, paginated. Input order
// is preserved.
func Apply(recs []record.Record, f Filter) []record.Record {
	matched := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	return paginate(matched, f.Offset, f.Limit)
}

// Matches reports whether a single record passes every present predicate.
func (f Filter) Matches(r record.Record) bool {
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}
	if f.Grade != "" && r.Demographics.Grade != f.Grade {
		return false
	}
	if f.Board != "" && r.Demographics.Board != f.Board {
		return false
	}
	if f.Location != "" && r.Demographics.Location != f.Location {
		return false
	}
	if f.RuralUrban != "" && r.Demographics.RuralUrban != f.RuralUrban {
		return false
	}
	if f.Language != "" && r.Demographics.Language != f.Language {
		return false
	}
	if f.IncomeRange != "" && r.Socioeconomic.IncomeRange != f.IncomeRange {
		return false
	}
	return true
}

// paginate applies offset before limit. Reversing the order changes
// results when both are set, so keep it this way.
func paginate(recs []record.Record, offset, limit int) []record.Record {
	if offset > 0 {
		if offset >= len(recs) {
			return []record.Record{}
		}
		recs = recs[offset:]
	}
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}
