// Package profile defines the raw input types handed to the analytics
// engine by the submission pipeline. These carry personally identifying
// fields and must never be persisted; only their anonymized form is.
package profile

import "time"

// Profile is a raw student profile as received from the submission layer.
type Profile struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Grade            string   `json:"grade"`
	Board            string   `json:"board"`
	Location         string   `json:"location"`
	RuralUrban       string   `json:"ruralUrban"`
	Language         string   `json:"languagePreference"`
	Category         string   `json:"category,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	IncomeRange      string   `json:"incomeRange"`
	FamilyBackground string   `json:"familyBackground"`
	InternetAccess   bool     `json:"internetAccess"`
	DeviceAccess     []string `json:"deviceAccess,omitempty"`

	Interests         []string `json:"interests,omitempty"`
	Subjects          []string `json:"subjects,omitempty"`
	Performance       string   `json:"performance"`
	FavoriteSubjects  []string `json:"favoriteSubjects,omitempty"`
	DifficultSubjects []string `json:"difficultSubjects,omitempty"`
	Extracurriculars  []string `json:"extracurriculars,omitempty"`
}

// Recommendation is a single career recommendation produced by the
// generator for a profile.
type Recommendation struct {
	Title       string  `json:"title"`
	MatchScore  float64 `json:"matchScore"`
	DemandLevel string  `json:"demandLevel"`
	EntrySalary int     `json:"entrySalary"`
}

// ProcessingMeta describes how the recommendation list was generated.
type ProcessingMeta struct {
	Model       string    `json:"aiModel"`
	DurationMs  int64     `json:"processingMs"`
	GeneratedAt time.Time `json:"generatedAt"`
}
