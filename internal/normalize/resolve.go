package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/profile-extractor/internal/profile"
)

// rangeSeparator splits "Jan 2020 - Present" style ranges.
var rangeSeparator = regexp.MustCompile(`\s*[-–—]\s+|\s+[-–—]\s*|\s+to\s+`)

// datePart is the {month, year} object some payloads use for dates.
type datePart struct {
	Month string `mapstructure:"month"`
	Year  string `mapstructure:"year"`
}

// lookup returns the first non-empty value found under keys.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || isEmpty(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// text resolves a scalar or a {name: ...} object into a trimmed string.
func text(v any, nameKeys []string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		inner, ok := lookup(val, nameKeys)
		if !ok {
			return ""
		}
		return text(inner, nil)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// dateText resolves a date value which may be a string, a number or a
// {month, year} object into a parseable string.
func dateText(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return text(v, nil)
	}

	var d datePart
	if err := mapstructure.WeakDecode(m, &d); err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(d.Month) + " " + strings.TrimSpace(d.Year))
}

// list resolves a list value, accepting JSON-encoded strings.
func list(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []map[string]any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	case string:
		var out []any
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

// unwrap descends into the first envelope key holding an object.
func unwrap(m map[string]any, envelope []string) map[string]any {
	for _, k := range envelope {
		switch inner := m[k].(type) {
		case map[string]any:
			if len(inner) > 0 {
				return inner
			}
		case string:
			if decoded := profile.Decode(inner); len(decoded) > 0 {
				if _, isText := decoded[profile.RawTextKey]; !isText {
					return decoded
				}
			}
		}
	}
	return m
}

// SplitRange splits a "start - end" range. Anything after a middle dot is dropped.
func SplitRange(s string) (string, string) {
	if i := strings.Index(s, "·"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	parts := rangeSeparator.Split(s, 2)
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func (n *Normalizer) dates(entry map[string]any) (string, string) {
	var start, end string
	if v, ok := lookup(entry, n.aliases.Start); ok {
		start = dateText(v)
	}
	if v, ok := lookup(entry, n.aliases.End); ok {
		end = dateText(v)
	}
	if start == "" && end == "" {
		if v, ok := lookup(entry, n.aliases.Range); ok {
			start, end = SplitRange(text(v, nil))
		}
	}
	return start, end
}

func (n *Normalizer) experience(m map[string]any) []profile.ExperienceEntry {
	raw, ok := lookup(m, n.aliases.Experience)
	if !ok {
		return nil
	}

	var entries []profile.ExperienceEntry
	for _, item := range list(raw) {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		var e profile.ExperienceEntry
		if v, ok := lookup(entry, n.aliases.ExperienceCompany); ok {
			e.Company = text(v, []string{"name"})
		}
		if v, ok := lookup(entry, n.aliases.ExperienceTitle); ok {
			e.Title = text(v, nil)
		}
		e.Start, e.End = n.dates(entry)
		entries = append(entries, e)
	}
	return entries
}

func (n *Normalizer) education(m map[string]any) []profile.EducationEntry {
	raw, ok := lookup(m, n.aliases.Education)
	if !ok {
		return nil
	}

	var entries []profile.EducationEntry
	for _, item := range list(raw) {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		var e profile.EducationEntry
		if v, ok := lookup(entry, n.aliases.EducationSchool); ok {
			e.School = text(v, []string{"name"})
		}
		if v, ok := lookup(entry, n.aliases.EducationDegree); ok {
			e.Degree = text(v, nil)
		}
		e.Start, e.End = n.dates(entry)
		entries = append(entries, e)
	}
	return entries
}

func (n *Normalizer) languages(m map[string]any) string {
	raw, ok := lookup(m, n.aliases.Languages)
	if !ok {
		return ""
	}

	if s, ok := raw.(string); ok {
		if items := list(s); items != nil {
			raw = items
		} else {
			return strings.TrimSpace(s)
		}
	}

	items := list(raw)
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := text(item, n.aliases.LanguageName)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
