// Package aggregate computes multi-dimensional statistics over a record
// set. Aggregations are derived data: never persisted, always recomputed
// from the records handed in.
package aggregate

import (
	"time"

	"github.com/disha-labs/insight/pkg/record"
)

// Options controls aggregation behavior.
type Options struct {
	// LegacyPairwiseAverages reproduces the historical per-group match
	// score "average": each new observation merges as (old+new)/2 instead
	// of a true running mean. The formula weights recent observations more
	// heavily and drifts from the population average, but older stored
	// aggregates were produced with it; enable this only when exact
	// parity with those is required.
	LegacyPairwiseAverages bool
}

// Aggregation is a recomputed statistical summary of a record set.
type Aggregation struct {
	TotalProfiles int       `json:"totalProfiles"`
	GeneratedAt   time.Time `json:"generatedAt"`

	Demographics  DemographicCounts  `json:"demographics"`
	Socioeconomic SocioeconomicStats `json:"socioeconomic"`
	Academic      AcademicCounts     `json:"academic"`
	Careers       CareerCounts       `json:"careers"`

	MatchScores MatchScoreAverages `json:"averageMatchScores"`

	// True arithmetic means over the whole set; 0 when the set is empty.
	AvgProcessingMs float64 `json:"averageProcessingMs"`
	AvgEntrySalary  float64 `json:"averageEntrySalary"`
}

// DemographicCounts groups profile counts by demographic value.
type DemographicCounts struct {
	ByGrade      map[string]int `json:"byGrade"`
	ByBoard      map[string]int `json:"byBoard"`
	ByLocation   map[string]int `json:"byLocation"`
	ByRuralUrban map[string]int `json:"byRuralUrban"`
	ByLanguage   map[string]int `json:"byLanguage"`
	ByCategory   map[string]int `json:"byCategory"`
	ByGender     map[string]int `json:"byGender"`
}

// SocioeconomicStats groups counts by economic bucket. ByDevice counts
// once per listed device, not once per record.
type SocioeconomicStats struct {
	ByIncomeRange      map[string]int `json:"byIncomeRange"`
	ByFamilyBackground map[string]int `json:"byFamilyBackground"`
	InternetAccess     map[string]int `json:"internetAccess"`
	ByDevice           map[string]int `json:"byDevice"`
}

// AcademicCounts groups counts by academic field. List-valued fields
// (interests, subjects, extracurriculars) count per element.
type AcademicCounts struct {
	ByInterest        map[string]int `json:"byInterest"`
	BySubject         map[string]int `json:"bySubject"`
	ByPerformance     map[string]int `json:"byPerformance"`
	ByExtracurricular map[string]int `json:"byExtracurricular"`
}

// CareerCounts groups recommendation outcomes: how often each career
// title appeared in a top-3 list and the distribution of demand levels.
type CareerCounts struct {
	ByTitle       map[string]int `json:"byTitle"`
	ByDemandLevel map[string]int `json:"byDemandLevel"`
}

// MatchScoreAverages carries the overall mean match score plus per-group
// breakdowns by grade, board, and location.
type MatchScoreAverages struct {
	Overall    float64            `json:"overall"`
	ByGrade    map[string]float64 `json:"byGrade"`
	ByBoard    map[string]float64 `json:"byBoard"`
	ByLocation map[string]float64 `json:"byLocation"`
}

// meanAcc accumulates a true arithmetic mean: one division at the end.
type meanAcc struct {
	sum   float64
	count int
}

func (a *meanAcc) add(v float64) {
	a.sum += v
	a.count++
}

// mean returns 0 for an empty accumulator, never NaN.
func (a meanAcc) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Aggregate computes the full statistical summary for a record set. Pure;
// an empty input yields all-zero averages rather than NaN or Inf.
func Aggregate(recs []record.Record, opts Options) *Aggregation {
	agg := &Aggregation{
		TotalProfiles: len(recs),
		GeneratedAt:   time.Now().UTC(),
		Demographics: DemographicCounts{
			ByGrade:      map[string]int{},
			ByBoard:      map[string]int{},
			ByLocation:   map[string]int{},
			ByRuralUrban: map[string]int{},
			ByLanguage:   map[string]int{},
			ByCategory:   map[string]int{},
			ByGender:     map[string]int{},
		},
		Socioeconomic: SocioeconomicStats{
			ByIncomeRange:      map[string]int{},
			ByFamilyBackground: map[string]int{},
			InternetAccess:     map[string]int{},
			ByDevice:           map[string]int{},
		},
		Academic: AcademicCounts{
			ByInterest:        map[string]int{},
			BySubject:         map[string]int{},
			ByPerformance:     map[string]int{},
			ByExtracurricular: map[string]int{},
		},
		Careers: CareerCounts{
			ByTitle:       map[string]int{},
			ByDemandLevel: map[string]int{},
		},
		MatchScores: MatchScoreAverages{
			ByGrade:    map[string]float64{},
			ByBoard:    map[string]float64{},
			ByLocation: map[string]float64{},
		},
	}

	var overallScore, processing, salary meanAcc
	groupScores := newGroupMeans(opts.LegacyPairwiseAverages)

	for _, r := range recs {
		countValue(agg.Demographics.ByGrade, r.Demographics.Grade)
		countValue(agg.Demographics.ByBoard, r.Demographics.Board)
		countValue(agg.Demographics.ByLocation, r.Demographics.Location)
		countValue(agg.Demographics.ByRuralUrban, r.Demographics.RuralUrban)
		countValue(agg.Demographics.ByLanguage, r.Demographics.Language)
		countValue(agg.Demographics.ByCategory, r.Demographics.Category)
		countValue(agg.Demographics.ByGender, r.Demographics.Gender)

		countValue(agg.Socioeconomic.ByIncomeRange, r.Socioeconomic.IncomeRange)
		countValue(agg.Socioeconomic.ByFamilyBackground, r.Socioeconomic.FamilyBackground)
		if r.Socioeconomic.InternetAccess {
			agg.Socioeconomic.InternetAccess["yes"]++
		} else {
			agg.Socioeconomic.InternetAccess["no"]++
		}
		countEach(agg.Socioeconomic.ByDevice, r.Socioeconomic.DeviceAccess)

		countEach(agg.Academic.ByInterest, r.Academic.Interests)
		countEach(agg.Academic.BySubject, r.Academic.Subjects)
		countValue(agg.Academic.ByPerformance, r.Academic.Performance)
		countEach(agg.Academic.ByExtracurricular, r.Academic.Extracurriculars)

		countEach(agg.Careers.ByTitle, r.Summary.TopTitles)
		countEach(agg.Careers.ByDemandLevel, r.Summary.DemandLevels)

		score := float64(r.Summary.AvgMatchScore)
		overallScore.add(score)
		groupScores.observe(groupGrade, r.Demographics.Grade, score)
		groupScores.observe(groupBoard, r.Demographics.Board, score)
		groupScores.observe(groupLocation, r.Demographics.Location, score)

		processing.add(float64(r.Processing.DurationMs))
		for _, s := range r.Summary.EntrySalaries {
			salary.add(float64(s))
		}
	}

	agg.MatchScores.Overall = overallScore.mean()
	agg.MatchScores.ByGrade = groupScores.result(groupGrade)
	agg.MatchScores.ByBoard = groupScores.result(groupBoard)
	agg.MatchScores.ByLocation = groupScores.result(groupLocation)
	agg.AvgProcessingMs = processing.mean()
	agg.AvgEntrySalary = salary.mean()

	return agg
}

// countValue increments a group counter, ignoring empty values.
func countValue(m map[string]int, v string) {
	if v != "" {
		m[v]++
	}
}

// countEach increments once per list element, not once per record.
func countEach(m map[string]int, vs []string) {
	for _, v := range vs {
		countValue(m, v)
	}
}
