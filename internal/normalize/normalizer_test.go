package normalize

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spigell/profile-extractor/internal/duration"
	"github.com/spigell/profile-extractor/internal/fuzzy"
	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/targets"
)

const testURL = profile.Identifier("https://www.linkedin.com/in/jane-doe")

func newTestNormalizer(lists targets.Lists) *Normalizer {
	now := func() time.Time { return time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC) }
	return New(lists, Aliases{}, fuzzy.NewMatcher(fuzzy.DefaultThreshold), duration.New(now), nil)
}

func TestNormalizeTargetCompanyTenure(t *testing.T) {
	n := newTestNormalizer(targets.Lists{Companies: []string{"Target Corp"}})

	raw := map[string]any{
		"experience": []any{
			map[string]any{"company": "Target Corp", "title": "Manager", "start": "Jan 2018", "end": "Present"},
		},
	}

	rec := n.Normalize(raw, testURL)
	require.Equal(t, 6.0, rec.YearsAtTargets)
	require.Equal(t, 6.0, rec.TotalYears)
	require.Equal(t, "Target Corp", rec.CurrentCompany)
	require.Equal(t, "Manager", rec.JobTitles)
	require.Equal(t, string(testURL), rec.LinkedInURL)
}

func TestNormalizeFirstAcceptedSchoolWins(t *testing.T) {
	n := newTestNormalizer(targets.Lists{
		Schools: []string{"Harvard University", "Massachusetts Institute of Technology"},
	})

	raw := map[string]any{
		"education": []any{
			map[string]any{"school": "University of Harvard"},
			map[string]any{"school": "MIT"},
			map[string]any{"school": "Massachusetts Institute of Technology"},
		},
	}

	rec := n.Normalize(raw, testURL)
	require.Equal(t, "Harvard University", rec.TargetSchool)
	require.Equal(t, "University of Harvard, MIT, Massachusetts Institute of Technology", rec.SchoolsAttended)
}

func TestNormalizeShortSchoolNameBelowThreshold(t *testing.T) {
	n := newTestNormalizer(targets.Lists{Schools: []string{"Harvard University"}})

	rec := n.Normalize(map[string]any{
		"schools": []any{map[string]any{"schoolName": "Harvard"}},
	}, testURL)

	require.Empty(t, rec.TargetSchool)
	require.Equal(t, "Harvard", rec.SchoolsAttended)
}

func TestNormalizeFlagsAndAliases(t *testing.T) {
	n := newTestNormalizer(targets.Lists{})

	raw := `{"data": {
		"full_name": "Jane Doe",
		"city": "Boulogne-Billancourt, Île-de-France, France",
		"languageSkills": [{"name": "Anglais"}, "Français"]
	}}`

	rec := n.Normalize(raw, testURL)
	require.Equal(t, "Jane Doe", rec.Name)
	require.Equal(t, "Boulogne-Billancourt, Île-de-France, France", rec.CityLocation)
	require.Equal(t, ParisFlag, rec.ParisFlag)
	require.Equal(t, "Anglais, Français", rec.SpokenLanguages)
	require.Equal(t, EnglishFlag, rec.EnglishFlag)
}

func TestNormalizeNoFlags(t *testing.T) {
	n := newTestNormalizer(targets.Lists{})

	rec := n.Normalize(map[string]any{
		"name":      "John",
		"location":  "Lyon, France",
		"languages": "French, Spanish",
	}, testURL)

	require.Empty(t, rec.ParisFlag)
	require.Empty(t, rec.EnglishFlag)
	require.Equal(t, "French, Spanish", rec.SpokenLanguages)
}

func TestNormalizeExperienceAggregation(t *testing.T) {
	n := newTestNormalizer(targets.Lists{
		Companies:     []string{"Target Corp", "Carrefour"},
		FoodRetailers: []string{"Carrefour", "Auchan"},
	})

	raw := map[string]any{
		"positions": `[
			{"companyName": {"name": "Carrefour France"}, "position": "Buyer", "startDate": {"month": 1, "year": 2015}, "endDate": {"month": 1, "year": 2018}},
			{"organization": "Auchan", "role": "Analyst", "start_date": "2012", "end_date": "2014"},
			{"company": "Target Corp", "title": "", "date_range": "Jan 2018 - Present · 6 yrs"},
			{"company": "Side Project", "title": "Founder", "start": "someday", "end": "Jan 2019"}
		]`,
	}

	rec := n.Normalize(raw, testURL)
	require.Equal(t, 11.0, rec.TotalYears)
	require.Equal(t, 9.0, rec.YearsAtTargets)
	require.Equal(t, 5.0, rec.YearsAtFoodRetailers)
	require.Equal(t, "Buyer", rec.JobTitles)
	require.Equal(t, "Target Corp", rec.CurrentCompany)
}

func TestNormalizeCurrentCompanyTieBreak(t *testing.T) {
	n := newTestNormalizer(targets.Lists{})

	rec := n.Normalize(map[string]any{
		"experience": []any{
			map[string]any{"company": "First", "start": "Jan 2020", "end": "Present"},
			map[string]any{"company": "Second", "start": "Jan 2021"},
		},
	}, testURL)
	require.Equal(t, "Second", rec.CurrentCompany)

	rec = n.Normalize(map[string]any{
		"experience": []any{
			map[string]any{"company": "Ongoing", "start": "Jan 2020"},
			map[string]any{"company": "Broken", "start": "Jan 2021", "end": "not a date"},
		},
	}, testURL)
	require.Equal(t, "Ongoing", rec.CurrentCompany)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := newTestNormalizer(targets.Lists{
		Schools:   []string{"HEC Paris"},
		Companies: []string{"Target Corp"},
	})

	raw := map[string]any{
		"name":     "Jane",
		"location": "Paris",
		"experience": []any{
			map[string]any{"company": "Target Corp", "title": "Manager", "start": "Mar 2019", "end": "Sep 2021"},
		},
		"education": []any{map[string]any{"school": "HEC Paris"}},
	}

	first := n.Normalize(raw, testURL)
	second := n.Normalize(raw, testURL)
	require.Equal(t, first, second)
	require.Equal(t, 2.5, first.TotalYears)
}

func TestNormalizeDegradesToDefaults(t *testing.T) {
	n := newTestNormalizer(targets.Lists{Companies: []string{"Target Corp"}})

	for _, raw := range []profile.RawRecord{
		nil,
		"plain scraped text",
		map[string]any{"experience": "not a list", "education": 42},
		map[string]any{"experience": []any{"string entry", 7}},
	} {
		rec := n.Normalize(raw, testURL)
		require.Equal(t, profile.CanonicalRecord{LinkedInURL: string(testURL)}, rec)
	}
}

func TestSplitRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input      string
		start, end string
	}{
		{input: "Jan 2018 - Present · 6 yrs", start: "Jan 2018", end: "Present"},
		{input: "2012 – 2014", start: "2012", end: "2014"},
		{input: "Mar 2019 to Sep 2021", start: "Mar 2019", end: "Sep 2021"},
		{input: "2020", start: "2020", end: ""},
		{input: "", start: "", end: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			start, end := SplitRange(tt.input)
			require.Equal(t, tt.start, start)
			require.Equal(t, tt.end, end)
		})
	}
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name:\n  - headline_name\nexperience:\n  - jobs\n"), 0o644))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)
	require.Equal(t, []string{"headline_name"}, aliases.Name)
	require.Equal(t, []string{"jobs"}, aliases.Experience)
	require.Equal(t, DefaultAliases().Education, aliases.Education)

	n := New(targets.Lists{}, aliases, nil, nil, nil)
	rec := n.Normalize(map[string]any{
		"name":          "ignored",
		"headline_name": "Custom",
		"jobs":          []any{map[string]any{"company": "Acme"}},
	}, testURL)
	require.Equal(t, "Custom", rec.Name)
	require.Equal(t, "Acme", rec.CurrentCompany)

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
