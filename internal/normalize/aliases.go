package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Aliases lists, per canonical field, the raw keys to look at in priority order.
type Aliases struct {
	Envelope  []string `yaml:"envelope" mapstructure:"envelope"`
	Name      []string `yaml:"name" mapstructure:"name"`
	Location  []string `yaml:"location" mapstructure:"location"`
	Languages []string `yaml:"languages" mapstructure:"languages"`
	// LanguageName is used when a language list item is an object.
	LanguageName []string `yaml:"language-name" mapstructure:"language-name"`

	Experience        []string `yaml:"experience" mapstructure:"experience"`
	ExperienceCompany []string `yaml:"experience-company" mapstructure:"experience-company"`
	ExperienceTitle   []string `yaml:"experience-title" mapstructure:"experience-title"`

	Education       []string `yaml:"education" mapstructure:"education"`
	EducationSchool []string `yaml:"education-school" mapstructure:"education-school"`
	EducationDegree []string `yaml:"education-degree" mapstructure:"education-degree"`

	// Start, End and Range apply to experience and education entries.
	Start []string `yaml:"start" mapstructure:"start"`
	End   []string `yaml:"end" mapstructure:"end"`
	Range []string `yaml:"range" mapstructure:"range"`
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() Aliases {
	return Aliases{
		Envelope:          []string{"data", "profile", "person"},
		Name:              []string{"name", "full_name", "fullName", "title"},
		Location:          []string{"location", "city", "region", "locality"},
		Languages:         []string{"languages", "language", "languageSkills"},
		LanguageName:      []string{"name", "language"},
		Experience:        []string{"experience", "positions", "work_history", "experiences"},
		ExperienceCompany: []string{"company", "companyName", "organization", "company_name"},
		ExperienceTitle:   []string{"title", "position", "role"},
		Education:         []string{"education", "schools", "educations"},
		EducationSchool:   []string{"school", "schoolName", "institution", "school_name"},
		EducationDegree:   []string{"degree", "degreeName", "degree_name"},
		Start:             []string{"start", "startDate", "start_date", "starts_at"},
		End:               []string{"end", "endDate", "end_date", "ends_at"},
		Range:             []string{"date_range", "dateRange", "period"},
	}
}

// WithDefaults fills every empty alias list from DefaultAliases.
func (a Aliases) WithDefaults() Aliases {
	d := DefaultAliases()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}

	fill(&a.Envelope, d.Envelope)
	fill(&a.Name, d.Name)
	fill(&a.Location, d.Location)
	fill(&a.Languages, d.Languages)
	fill(&a.LanguageName, d.LanguageName)
	fill(&a.Experience, d.Experience)
	fill(&a.ExperienceCompany, d.ExperienceCompany)
	fill(&a.ExperienceTitle, d.ExperienceTitle)
	fill(&a.Education, d.Education)
	fill(&a.EducationSchool, d.EducationSchool)
	fill(&a.EducationDegree, d.EducationDegree)
	fill(&a.Start, d.Start)
	fill(&a.End, d.End)
	fill(&a.Range, d.Range)

	return a
}

// LoadAliases reads an alias table from a YAML file. Missing fields keep their defaults.
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("reading aliases file %q: %w", path, err)
	}

	var a Aliases
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Aliases{}, fmt.Errorf("parsing aliases file %q: %w", path, err)
	}

	return a.WithDefaults(), nil
}
