// Package export serializes record sets for download and backup, and
// reads JSON exports back in.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/disha-labs/insight/pkg/record"
)

// listSeparator joins list-valued fields inside a single CSV cell.
const listSeparator = ";"

// CSVHeader is the fixed column order for tabular exports. Every data row
// has exactly this many fields; encoding/csv handles quote doubling for
// values containing the quote character.
var CSVHeader = []string{
	"id",
	"timestamp",
	"profile_hash",
	"grade",
	"board",
	"location",
	"rural_urban",
	"language",
	"category",
	"gender",
	"income_range",
	"family_background",
	"internet_access",
	"device_access",
	"interests",
	"subjects",
	"performance",
	"favorite_subjects",
	"difficult_subjects",
	"extracurriculars",
	"recommendation_count",
	"avg_match_score",
	"top_titles",
	"demand_levels",
	"entry_salaries",
	"ai_model",
	"processing_ms",
	"generated_at",
}

// Result summarizes an export operation.
type Result struct {
	RecordsExported int       `json:"records_exported"`
	Format          string    `json:"format"`
	ExportedAt      time.Time `json:"exported_at"`
}

// envelope wraps exported records with metadata so imports can sanity
// check what they are reading.
type envelope struct {
	Metadata struct {
		ExportedAt  time.Time `json:"exported_at"`
		RecordCount int       `json:"record_count"`
		Format      string    `json:"format"`
		Version     string    `json:"version"`
	} `json:"metadata"`
	Records []record.Record `json:"records"`
}

// ToJSON writes the record list as JSON with a metadata envelope. The
// records go out exactly as stored, without a second anonymization pass.
func ToJSON(w io.Writer, recs []record.Record) (*Result, error) {
	var env envelope
	env.Records = recs
	env.Metadata.ExportedAt = time.Now().UTC()
	env.Metadata.RecordCount = len(recs)
	env.Metadata.Format = "json"
	env.Metadata.Version = "1.0"

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	return &Result{
		RecordsExported: len(recs),
		Format:          "json",
		ExportedAt:      env.Metadata.ExportedAt,
	}, nil
}

// ToCSV writes one row per record in the CSVHeader column order.
// List-valued fields are joined with the list separator.
func ToCSV(w io.Writer, recs []record.Record) (*Result, error) {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range recs {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ProfileHash,
			r.Demographics.Grade,
			r.Demographics.Board,
			r.Demographics.Location,
			r.Demographics.RuralUrban,
			r.Demographics.Language,
			r.Demographics.Category,
			r.Demographics.Gender,
			r.Socioeconomic.IncomeRange,
			r.Socioeconomic.FamilyBackground,
			strconv.FormatBool(r.Socioeconomic.InternetAccess),
			strings.Join(r.Socioeconomic.DeviceAccess, listSeparator),
			strings.Join(r.Academic.Interests, listSeparator),
			strings.Join(r.Academic.Subjects, listSeparator),
			r.Academic.Performance,
			strings.Join(r.Academic.FavoriteSubjects, listSeparator),
			strings.Join(r.Academic.DifficultSubjects, listSeparator),
			strings.Join(r.Academic.Extracurriculars, listSeparator),
			strconv.Itoa(r.Summary.Count),
			strconv.Itoa(r.Summary.AvgMatchScore),
			strings.Join(r.Summary.TopTitles, listSeparator),
			strings.Join(r.Summary.DemandLevels, listSeparator),
			joinInts(r.Summary.EntrySalaries),
			r.Processing.Model,
			strconv.FormatInt(r.Processing.DurationMs, 10),
			r.Processing.GeneratedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		RecordsExported: len(recs),
		Format:          "csv",
		ExportedAt:      time.Now().UTC(),
	}, nil
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, listSeparator)
}
