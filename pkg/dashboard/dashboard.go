// Package dashboard derives ranked, percentage-annotated views from an
// aggregation for presentation. Views are never persisted.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/disha-labs/insight/pkg/aggregate"
)

// TopN is how many entries ranked lists are truncated to.
const TopN = 10

// Entry is one row of a ranked breakdown.
type Entry struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// View is the dashboard projection of an aggregation.
type View struct {
	TotalProfiles int       `json:"totalProfiles"`
	GeneratedAt   time.Time `json:"generatedAt"`

	// Ranked lists, descending by count. Careers and locations are
	// truncated to TopN; the grade distribution is not.
	TopCareers        []Entry `json:"topCareers"`
	TopLocations      []Entry `json:"topLocations"`
	GradeDistribution []Entry `json:"gradeDistribution"`

	// Direct demographic splits; absent keys report 0.
	RuralUrban RuralUrbanSplit `json:"ruralUrban"`
	Languages  []Entry         `json:"languages"`

	AvgMatchScore float64 `json:"averageMatchScore"`
}

// RuralUrbanSplit is the rural vs urban breakdown.
type RuralUrbanSplit struct {
	Rural int `json:"rural"`
	Urban int `json:"urban"`
}

// Build derives a dashboard view from an aggregation. Pure.
func Build(agg *aggregate.Aggregation) *View {
	total := agg.TotalProfiles
	return &View{
		TotalProfiles:     total,
		GeneratedAt:       time.Now().UTC(),
		TopCareers:        rank(agg.Careers.ByTitle, total, TopN),
		TopLocations:      rank(agg.Demographics.ByLocation, total, TopN),
		GradeDistribution: rank(agg.Demographics.ByGrade, total, 0),
		RuralUrban: RuralUrbanSplit{
			Rural: agg.Demographics.ByRuralUrban["rural"],
			Urban: agg.Demographics.ByRuralUrban["urban"],
		},
		Languages:     rank(agg.Demographics.ByLanguage, total, 0),
		AvgMatchScore: agg.MatchScores.Overall,
	}
}

// rank sorts a count map descending and annotates each entry with its
// share of the total. limit <= 0 means no truncation. Ties break
// alphabetically so output is deterministic.
func rank(counts map[string]int, total, limit int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, Entry{
			Name:       name,
			Count:      count,
			Percentage: percentage(count, total),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// percentage is round(count/total*100), guarded against a zero total.
func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
