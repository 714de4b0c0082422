package normalize

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/duration"
	"github.com/spigell/profile-extractor/internal/fuzzy"
	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/targets"
)

const (
	ParisFlag   = "Paris et périphérie"
	EnglishFlag = "english"
)

var (
	parisMarkers   = []string{"paris", "île-de-france", "ile-de-france"}
	englishMarkers = []string{"english", "anglais"}
)

// Normalizer maps arbitrary raw payloads to CanonicalRecord. It never fails:
// anything it cannot resolve keeps the zero value.
type Normalizer struct {
	aliases Aliases
	lists   targets.Lists
	matcher *fuzzy.Matcher
	calc    *duration.Calculator
	logger  *zap.Logger
}

func New(lists targets.Lists, aliases Aliases, matcher *fuzzy.Matcher, calc *duration.Calculator, logger *zap.Logger) *Normalizer {
	if matcher == nil {
		matcher = fuzzy.NewMatcher(fuzzy.DefaultThreshold)
	}
	if calc == nil {
		calc = duration.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Normalizer{
		aliases: aliases.WithDefaults(),
		lists:   lists,
		matcher: matcher,
		calc:    calc,
		logger:  logger,
	}
}

// Normalize builds the canonical record for id from raw.
func (n *Normalizer) Normalize(raw profile.RawRecord, id profile.Identifier) profile.CanonicalRecord {
	m := unwrap(profile.Decode(raw), n.aliases.Envelope)

	rec := profile.CanonicalRecord{LinkedInURL: id.String()}

	if v, ok := lookup(m, n.aliases.Name); ok {
		rec.Name = text(v, nil)
	}

	if v, ok := lookup(m, n.aliases.Location); ok {
		rec.CityLocation = text(v, []string{"name", "city", "default"})
	}
	if containsAny(rec.CityLocation, parisMarkers) {
		rec.ParisFlag = ParisFlag
	}

	rec.SpokenLanguages = n.languages(m)
	if containsAny(rec.SpokenLanguages, englishMarkers) {
		rec.EnglishFlag = EnglishFlag
	}

	n.aggregateExperience(id, n.experience(m), &rec)
	n.aggregateEducation(n.education(m), &rec)

	return rec
}

func (n *Normalizer) aggregateExperience(id profile.Identifier, entries []profile.ExperienceEntry, rec *profile.CanonicalRecord) {
	var (
		titles     []string
		mostRecent time.Time
		hasCurrent bool
	)

	for _, e := range entries {
		years := n.calc.Between(e.Start, e.End)
		if e.Start != "" && years == 0 {
			if _, ok := n.calc.ParseDate(e.Start); !ok {
				n.logger.Debug("unparsable start date", zap.String("identifier", id.String()), zap.String("value", e.Start))
			}
		}
		rec.TotalYears += years

		end, ok := n.endOf(e.End)
		if !ok {
			n.logger.Debug("unparsable end date", zap.String("identifier", id.String()), zap.String("value", e.End))
		} else if !hasCurrent || !end.Before(mostRecent) {
			mostRecent = end
			hasCurrent = true
			rec.CurrentCompany = e.Company
		}

		if targets.Contains(n.lists.Companies, e.Company) {
			if e.Title != "" {
				titles = append(titles, e.Title)
			}
			rec.YearsAtTargets += years
		}

		if targets.Contains(n.lists.FoodRetailers, e.Company) {
			rec.YearsAtFoodRetailers += years
		}
	}

	rec.JobTitles = strings.Join(titles, ", ")
}

// endOf resolves an entry end for current company tracking. An empty end is
// an ongoing position.
func (n *Normalizer) endOf(end string) (time.Time, bool) {
	if strings.TrimSpace(end) == "" {
		return n.calc.Now(), true
	}
	return n.calc.ParseDate(end)
}

func (n *Normalizer) aggregateEducation(entries []profile.EducationEntry, rec *profile.CanonicalRecord) {
	schools := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.School == "" {
			continue
		}
		schools = append(schools, e.School)

		if rec.TargetSchool != "" {
			continue
		}
		match, ok := n.matcher.Match(e.School, n.lists.Schools)
		if !ok {
			continue
		}
		n.logger.Debug("target school matched",
			zap.String("school", e.School),
			zap.String("reference", match.Reference),
			zap.Int("score", match.Score),
		)
		rec.TargetSchool = match.Reference
	}

	rec.SchoolsAttended = strings.Join(schools, ", ")
}

func containsAny(s string, markers []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
