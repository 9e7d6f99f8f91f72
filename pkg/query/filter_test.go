package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/disha-labs/insight/pkg/record"
)

func makeRecords(n int) []record.Record {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.Record{
			ID:        fmt.Sprintf("rec-%02d", i),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Demographics: record.Demographics{
				Grade: fmt.Sprintf("%d", 8+i%3),
				Board: "CBSE",
			},
		}
	}
	return recs
}

func TestApply_OffsetBeforeLimit(t *testing.T) {
	recs := makeRecords(20)

	got := Apply(recs, Filter{Offset: 10, Limit: 5})

	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d", len(got))
	}
	// Exactly indices 10-14 in original order.
	for i, r := range got {
		want := fmt.Sprintf("rec-%02d", 10+i)
		if r.ID != want {
			t.Errorf("result[%d].ID = %q, want %q", i, r.ID, want)
		}
	}
}

func TestApply_OffsetPastEnd(t *testing.T) {
	recs := makeRecords(5)
	if got := Apply(recs, Filter{Offset: 10}); len(got) != 0 {
		t.Errorf("offset past end should yield empty, got %d records", len(got))
	}
}

func TestApply_LimitOnly(t *testing.T) {
	recs := makeRecords(10)
	got := Apply(recs, Filter{Limit: 3})
	if len(got) != 3 || got[0].ID != "rec-00" {
		t.Errorf("limit-only should keep the first 3, got %v", got)
	}
}

func TestApply_FieldPredicatesAnd(t *testing.T) {
	recs := []record.Record{
		{ID: "a", Demographics: record.Demographics{Grade: "10", Board: "CBSE", Location: "Maharashtra"}},
		{ID: "b", Demographics: record.Demographics{Grade: "10", Board: "ICSE", Location: "Maharashtra"}},
		{ID: "c", Demographics: record.Demographics{Grade: "9", Board: "CBSE", Location: "Maharashtra"}},
	}

	got := Apply(recs, Filter{Grade: "10", Board: "CBSE"})
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("AND semantics violated: got %v", got)
	}
}

func TestApply_DateRange(t *testing.T) {
	recs := makeRecords(20) // hourly from 2025-06-01T00:00
	from := time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	got := Apply(recs, Filter{From: from, To: to})
	if len(got) != 4 { // hours 5,6,7,8 inclusive
		t.Errorf("expected 4 records in range, got %d", len(got))
	}
}

func TestApply_EmptyFilterKeepsAll(t *testing.T) {
	recs := makeRecords(7)
	if got := Apply(recs, Filter{}); len(got) != 7 {
		t.Errorf("empty filter should keep all records, got %d", len(got))
	}
}

func TestApply_SocioeconomicPredicate(t *testing.T) {
	recs := []record.Record{
		{ID: "a", Socioeconomic: record.Socioeconomic{IncomeRange: "2-5L"}},
		{ID: "b", Socioeconomic: record.Socioeconomic{IncomeRange: "5-10L"}},
	}
	got := Apply(recs, Filter{IncomeRange: "5-10L"})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("income range filter failed: %v", got)
	}
}
