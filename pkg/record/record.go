package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a single privacy-generalized submission event, ready for
// aggregation. It is immutable once created: the anonymizer is the only
// producer, and the retention manager is the only thing that removes one.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// ProfileHash is the truncated one-way hash of the original profile
	// id. It lets repeat submissions from the same student be correlated
	// without storing anything that identifies them.
	ProfileHash string `json:"profileHash"`

	Demographics  Demographics          `json:"demographics"`
	Socioeconomic Socioeconomic         `json:"socioeconomic"`
	Academic      Academic              `json:"academic"`
	Summary       RecommendationSummary `json:"recommendationSummary"`
	Processing    Processing            `json:"processing"`
}

// Demographics holds generalized demographic fields. Location is always
// state-level; the raw city/street portion never survives anonymization.
type Demographics struct {
	Grade      string `json:"grade"`
	Board      string `json:"board"`
	Location   string `json:"location"`
	RuralUrban string `json:"ruralUrban"`
	Language   string `json:"language"`
	Category   string `json:"category,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// Socioeconomic holds bucketed economic fields. IncomeRange is a range
// label, never a raw figure; FamilyBackground is one of the fixed
// classifier buckets.
type Socioeconomic struct {
	IncomeRange      string   `json:"incomeRange"`
	FamilyBackground string   `json:"familyBackground"`
	InternetAccess   bool     `json:"internetAccess"`
	DeviceAccess     []string `json:"deviceAccess,omitempty"`
}

// Academic holds the academic profile fields.
type Academic struct {
	Interests         []string `json:"interests,omitempty"`
	Subjects          []string `json:"subjects,omitempty"`
	Performance       string   `json:"performance"`
	FavoriteSubjects  []string `json:"favoriteSubjects,omitempty"`
	DifficultSubjects []string `json:"difficultSubjects,omitempty"`
	Extracurriculars  []string `json:"extracurriculars,omitempty"`
}

// RecommendationSummary condenses the generated recommendation list.
// TopTitles preserves the generator's ordering (first three, not re-sorted).
type RecommendationSummary struct {
	Count         int      `json:"count"`
	AvgMatchScore int      `json:"avgMatchScore"`
	TopTitles     []string `json:"topTitles,omitempty"`
	DemandLevels  []string `json:"demandLevels,omitempty"`
	EntrySalaries []int    `json:"entrySalaries,omitempty"`
}

// Processing records how the recommendation list was produced.
type Processing struct {
	Model       string    `json:"aiModel"`
	DurationMs  int64     `json:"processingMs"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewID generates a record identifier: millisecond timestamp plus a short
// random suffix. Unique enough for a single-process writer.
func NewID(ts time.Time) string {
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), uuid.NewString()[:8])
}

// Date returns the UTC calendar date that determines the record's
// partition membership.
func (r Record) Date() string {
	return r.Timestamp.UTC().Format("2006-01-02")
}
