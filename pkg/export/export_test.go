package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/disha-labs/insight/pkg/record"
)

func sampleRecords() []record.Record {
	ts := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []record.Record{
		{
			ID:          "1750000000000-abcd1234",
			Timestamp:   ts,
			ProfileHash: "a1b2c3d4e5f60718",
			Demographics: record.Demographics{
				Grade:      "10",
				Board:      "CBSE",
				Location:   "Maharashtra",
				RuralUrban: "urban",
				Language:   "hindi",
			},
			Socioeconomic: record.Socioeconomic{
				IncomeRange:      "2-5L",
				FamilyBackground: "business",
				InternetAccess:   true,
				DeviceAccess:     []string{"smartphone", "laptop"},
			},
			Academic: record.Academic{
				Interests:   []string{"coding", "math"},
				Performance: "good",
			},
			Summary: record.RecommendationSummary{
				Count:         3,
				AvgMatchScore: 85,
				TopTitles:     []string{"Engineer", "Data Scientist", "Analyst"},
				DemandLevels:  []string{"high", "high", "medium"},
				EntrySalaries: []int{600000, 800000, 500000},
			},
			Processing: record.Processing{
				Model:       "gpt-4",
				DurationMs:  1500,
				GeneratedAt: ts,
			},
		},
		{
			ID:          "1750000000001-efgh5678",
			Timestamp:   ts.Add(time.Hour),
			ProfileHash: "0011223344556677",
			Demographics: record.Demographics{
				Grade:    "12",
				Board:    "ICSE",
				Location: `State "X"`, // exercises CSV quote escaping
			},
		},
	}
}

func TestToCSV_FieldCountMatchesHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	result, err := ToCSV(buf, sampleRecords())
	if err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}
	if result.RecordsExported != 2 {
		t.Errorf("RecordsExported = %d, want 2", result.RecordsExported)
	}

	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	if len(rows) != 3 { // header + 2 records
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(CSVHeader) {
			t.Errorf("row %d has %d fields, want %d", i, len(row), len(CSVHeader))
		}
	}
	if !reflect.DeepEqual(rows[0], CSVHeader) {
		t.Errorf("header row = %v, want %v", rows[0], CSVHeader)
	}
}

func TestToCSV_ListFieldsJoined(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := ToCSV(buf, sampleRecords()); err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}

	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}

	col := map[string]int{}
	for i, name := range CSVHeader {
		col[name] = i
	}

	first := rows[1]
	if first[col["device_access"]] != "smartphone;laptop" {
		t.Errorf("device_access = %q, want semicolon join", first[col["device_access"]])
	}
	if first[col["top_titles"]] != "Engineer;Data Scientist;Analyst" {
		t.Errorf("top_titles = %q", first[col["top_titles"]])
	}
	if first[col["entry_salaries"]] != "600000;800000;500000" {
		t.Errorf("entry_salaries = %q", first[col["entry_salaries"]])
	}
}

func TestToCSV_QuoteEscaping(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := ToCSV(buf, sampleRecords()); err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}

	// Raw output must contain the doubled quote form.
	if !strings.Contains(buf.String(), `"State ""X"""`) {
		t.Error("quote character in field value not doubled and quoted")
	}

	// And it must survive a parse round trip.
	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	var locIdx int
	for i, name := range CSVHeader {
		if name == "location" {
			locIdx = i
		}
	}
	if rows[2][locIdx] != `State "X"` {
		t.Errorf("location after round trip = %q", rows[2][locIdx])
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := sampleRecords()

	buf := &bytes.Buffer{}
	if _, err := ToJSON(buf, original); err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	imported, result, err := FromJSON(buf)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected validation errors: %v", result.Errors)
	}

	// Record content is identical: no second anonymization pass.
	if !reflect.DeepEqual(original, imported) {
		t.Errorf("round trip altered records:\n got %+v\nwant %+v", imported, original)
	}
}

func TestFromJSON_SkipsInvalidRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	recs := sampleRecords()
	recs = append(recs, record.Record{}) // no id, no timestamp
	if _, err := ToJSON(buf, recs); err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	imported, result, err := FromJSON(buf)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if len(imported) != 2 {
		t.Errorf("expected 2 valid records, got %d", len(imported))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 validation error, got %v", result.Errors)
	}
}

func TestToJSON_EmptySet(t *testing.T) {
	buf := &bytes.Buffer{}
	result, err := ToJSON(buf, nil)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if result.RecordsExported != 0 {
		t.Errorf("RecordsExported = %d, want 0", result.RecordsExported)
	}
}
