// Package anonymize transforms raw submission events into privacy-safe
// records. The transform is pure: no I/O, deterministic for a given
// input (apart from the generated record id and timestamp).
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/disha-labs/insight/pkg/profile"
	"github.com/disha-labs/insight/pkg/record"
)

// IDHashLength is the length of the hex prefix kept from the SHA-256 of
// the original profile id.
const IDHashLength = 16

// TopTitleCount is how many recommendation titles are kept in the summary.
const TopTitleCount = 3

// ErrEmptyProfileID is returned when the submission carries no profile id.
// The caller on the fire-and-forget path logs and drops the record.
var ErrEmptyProfileID = errors.New("anonymize: empty profile id")

// Anonymize converts a raw profile plus its generated recommendations into
// an immutable anonymized record. No raw name, street/city-level location,
// free-text family description, or original profile id survives the
// transform; the profile id is kept only as a truncated one-way hash.
func Anonymize(p profile.Profile, recs []profile.Recommendation, meta profile.ProcessingMeta) (record.Record, error) {
	if p.ID == "" {
		return record.Record{}, ErrEmptyProfileID
	}

	now := time.Now().UTC()

	rec := record.Record{
		ID:          record.NewID(now),
		Timestamp:   now,
		ProfileHash: AnonymizeID(p.ID),
		Demographics: record.Demographics{
			Grade:      p.Grade,
			Board:      p.Board,
			Location:   AnonymizeLocation(p.Location),
			RuralUrban: p.RuralUrban,
			Language:   p.Language,
			Category:   p.Category,
			Gender:     p.Gender,
		},
		Socioeconomic: record.Socioeconomic{
			IncomeRange:      p.IncomeRange,
			FamilyBackground: GeneralizeFamilyBackground(p.FamilyBackground),
			InternetAccess:   p.InternetAccess,
			DeviceAccess:     copyStrings(p.DeviceAccess),
		},
		Academic: record.Academic{
			Interests:         copyStrings(p.Interests),
			Subjects:          copyStrings(p.Subjects),
			Performance:       p.Performance,
			FavoriteSubjects:  copyStrings(p.FavoriteSubjects),
			DifficultSubjects: copyStrings(p.DifficultSubjects),
			Extracurriculars:  copyStrings(p.Extracurriculars),
		},
		Summary: summarize(recs),
		Processing: record.Processing{
			Model:       meta.Model,
			DurationMs:  meta.DurationMs,
			GeneratedAt: meta.GeneratedAt,
		},
	}

	return rec, nil
}

// AnonymizeID applies a one-way SHA-256 hash to the original profile id
// and keeps a fixed-length hex prefix. Deterministic: the same id always
// yields the same hash, so repeat submissions stay correlatable.
func AnonymizeID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:IDHashLength]
}

// AnonymizeLocation generalizes a free-text location to state level by
// keeping only the trailing comma-separated segment ("Mumbai, Maharashtra"
// -> "Maharashtra"). A string without a comma is kept unchanged, which can
// leak a full place name for unanticipated inputs; closing that gap needs
// a region gazetteer and is tracked as a policy decision in DESIGN.md.
func AnonymizeLocation(loc string) string {
	if i := strings.LastIndex(loc, ","); i >= 0 {
		return strings.TrimSpace(loc[i+1:])
	}
	return strings.TrimSpace(loc)
}

// familyKeywords maps taxonomy buckets to the keywords that select them.
// Checked in order; first match wins.
var familyKeywords = []struct {
	bucket   string
	keywords []string
}{
	{"business", []string{"business", "shop", "trade", "merchant"}},
	{"service", []string{"service", "employee", "job", "clerk"}},
	{"agriculture", []string{"agricult", "farm", "kisan"}},
	{"professional", []string{"professional", "doctor", "engineer", "lawyer", "teacher"}},
}

// GeneralizeFamilyBackground maps a free-text family description onto a
// small fixed taxonomy. Classification is total: every input, including
// the empty string, lands in exactly one bucket, defaulting to "other".
func GeneralizeFamilyBackground(desc string) string {
	lower := strings.ToLower(desc)
	for _, entry := range familyKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.bucket
			}
		}
	}
	return "other"
}

// summarize condenses the recommendation list: count, mean match score
// rounded to nearest integer, the first three titles in generator order,
// and demand levels / entry salaries copied verbatim.
func summarize(recs []profile.Recommendation) record.RecommendationSummary {
	s := record.RecommendationSummary{Count: len(recs)}
	if len(recs) == 0 {
		return s
	}

	var scoreSum float64
	for _, r := range recs {
		scoreSum += r.MatchScore
		s.DemandLevels = append(s.DemandLevels, r.DemandLevel)
		s.EntrySalaries = append(s.EntrySalaries, r.EntrySalary)
	}
	s.AvgMatchScore = int(math.Round(scoreSum / float64(len(recs))))

	n := len(recs)
	if n > TopTitleCount {
		n = TopTitleCount
	}
	for _, r := range recs[:n] {
		s.TopTitles = append(s.TopTitles, r.Title)
	}

	return s
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
