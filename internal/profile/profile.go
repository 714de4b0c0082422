package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Identifier is a profile URL. It is the dedup key across runs.
type Identifier string

func (id Identifier) String() string { return string(id) }

// RawRecord is whatever a ProfileSource returned. The shape is not controlled by us.
type RawRecord any

const (
	ColumnName                 = "name"
	ColumnJobTitles            = "job_titles_at_target_companies"
	ColumnTotalYears           = "total_years_experience"
	ColumnYearsAtTargets       = "years_at_target_companies"
	ColumnCurrentCompany       = "current_company"
	ColumnLinkedInURL          = "linkedin_url"
	ColumnSchoolsAttended      = "schools_attended"
	ColumnTargetSchool         = "target_school"
	ColumnSpokenLanguages      = "spoken_languages"
	ColumnEnglishFlag          = "english_flag"
	ColumnCityLocation         = "city_location"
	ColumnParisFlag            = "paris_flag"
	ColumnYearsAtFoodRetailers = "years_at_food_retailers"
)

// RawTextKey holds payloads that could not be decoded as a JSON object.
const RawTextKey = "raw_text"

// Columns is the fixed sink header.
var Columns = []string{
	ColumnName,
	ColumnJobTitles,
	ColumnTotalYears,
	ColumnYearsAtTargets,
	ColumnCurrentCompany,
	ColumnLinkedInURL,
	ColumnSchoolsAttended,
	ColumnTargetSchool,
	ColumnSpokenLanguages,
	ColumnEnglishFlag,
	ColumnCityLocation,
	ColumnParisFlag,
	ColumnYearsAtFoodRetailers,
}

// CanonicalRecord is the normalized output row. Year fields are multiples of 0.5.
type CanonicalRecord struct {
	Name                 string  `json:"name"`
	JobTitles            string  `json:"job_titles_at_target_companies"`
	TotalYears           float64 `json:"total_years_experience"`
	YearsAtTargets       float64 `json:"years_at_target_companies"`
	CurrentCompany       string  `json:"current_company"`
	LinkedInURL          string  `json:"linkedin_url"`
	SchoolsAttended      string  `json:"schools_attended"`
	TargetSchool         string  `json:"target_school"`
	SpokenLanguages      string  `json:"spoken_languages"`
	EnglishFlag          string  `json:"english_flag"`
	CityLocation         string  `json:"city_location"`
	ParisFlag            string  `json:"paris_flag"`
	YearsAtFoodRetailers float64 `json:"years_at_food_retailers"`
}

// Row renders the record in Columns order.
func (r CanonicalRecord) Row() []string {
	return []string{
		r.Name,
		r.JobTitles,
		FormatYears(r.TotalYears),
		FormatYears(r.YearsAtTargets),
		r.CurrentCompany,
		r.LinkedInURL,
		r.SchoolsAttended,
		r.TargetSchool,
		r.SpokenLanguages,
		r.EnglishFlag,
		r.CityLocation,
		r.ParisFlag,
		FormatYears(r.YearsAtFoodRetailers),
	}
}

// Map returns the record keyed by column name.
func (r CanonicalRecord) Map() map[string]string {
	row := r.Row()
	m := make(map[string]string, len(Columns))
	for i, col := range Columns {
		m[col] = row[i]
	}
	return m
}

// FromMap builds a record from a column->value map. Unknown keys are dropped,
// missing keys and unparsable years fall back to zero values.
func FromMap(m map[string]string) CanonicalRecord {
	return CanonicalRecord{
		Name:                 m[ColumnName],
		JobTitles:            m[ColumnJobTitles],
		TotalYears:           parseYears(m[ColumnTotalYears]),
		YearsAtTargets:       parseYears(m[ColumnYearsAtTargets]),
		CurrentCompany:       m[ColumnCurrentCompany],
		LinkedInURL:          m[ColumnLinkedInURL],
		SchoolsAttended:      m[ColumnSchoolsAttended],
		TargetSchool:         m[ColumnTargetSchool],
		SpokenLanguages:      m[ColumnSpokenLanguages],
		EnglishFlag:          m[ColumnEnglishFlag],
		CityLocation:         m[ColumnCityLocation],
		ParisFlag:            m[ColumnParisFlag],
		YearsAtFoodRetailers: parseYears(m[ColumnYearsAtFoodRetailers]),
	}
}

// FormatYears prints a year value with a single decimal, e.g. 6.0 or 2.5.
func FormatYears(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func parseYears(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Decode turns a raw payload into a map. Strings are JSON-decoded when they hold
// an object, otherwise they are kept under RawTextKey.
func Decode(raw RawRecord) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case []byte:
		return decodeString(string(v))
	case string:
		return decodeString(v)
	case json.RawMessage:
		return decodeString(string(v))
	default:
		return map[string]any{RawTextKey: fmt.Sprint(v)}
	}
}

func decodeString(s string) map[string]any {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return map[string]any{RawTextKey: s}
	}
	return out
}
