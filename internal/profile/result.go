package profile

import "time"

// ExperienceEntry is a single resolved position.
type ExperienceEntry struct {
	Company string
	Title   string
	Start   string
	End     string
}

// EducationEntry is a single resolved school.
type EducationEntry struct {
	School string
	Degree string
	Start  string
	End    string
}

// FetchResult is the outcome of fetching one identifier. Err is the last
// attempt's error when every attempt failed.
type FetchResult struct {
	Identifier Identifier
	Raw        RawRecord
	Err        error
	Attempts   int
	Duration   time.Duration
}

func (r FetchResult) Success() bool { return r.Err == nil }

// ProcessedSet holds identifiers already present in the sink.
type ProcessedSet map[Identifier]struct{}

func NewProcessedSet(ids ...Identifier) ProcessedSet {
	s := make(ProcessedSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s ProcessedSet) Add(id Identifier) { s[id] = struct{}{} }

func (s ProcessedSet) Has(id Identifier) bool {
	_, ok := s[id]
	return ok
}

func (s ProcessedSet) Len() int { return len(s) }
