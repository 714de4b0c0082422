package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the minimal accepted token sort score.
const DefaultThreshold = 85

// Match is an accepted reference together with its score.
type Match struct {
	Reference string
	Score     int
}

// Matcher picks the best reference for a candidate using the token sort ratio.
type Matcher struct {
	Threshold int
}

func NewMatcher(threshold int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

// Match returns the highest scoring reference when it reaches the threshold.
// Equal scores resolve to the lexicographically smallest reference.
func (m *Matcher) Match(candidate string, refs []string) (Match, bool) {
	if strings.TrimSpace(candidate) == "" || len(refs) == 0 {
		return Match{}, false
	}

	processed := sortTokens(candidate)
	best := Match{Score: -1}
	for _, ref := range refs {
		score := ratio(processed, sortTokens(ref))
		if score > best.Score || (score == best.Score && ref < best.Reference) {
			best = Match{Reference: ref, Score: score}
		}
	}

	if best.Score < m.Threshold {
		return best, false
	}
	return best, true
}

// Score returns the token sort ratio of a and b in [0, 100].
func Score(a, b string) int {
	return ratio(sortTokens(a), sortTokens(b))
}

var lower = cases.Lower(language.Und)

// process lowercases s and replaces every non word rune with a space.
func process(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, s)
	return strings.TrimSpace(lower.String(s))
}

func sortTokens(s string) string {
	tokens := strings.Fields(process(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// indel scores a substitution as a deletion plus an insertion, so the
// distance equals len(a)+len(b)-2*LCS.
var indel = levenshtein.NewParams().InsCost(1).DelCost(1).SubCost(2)

// ratio is the indel similarity (len(a)+len(b)-distance)/(len(a)+len(b))
// scaled to 100 with half-to-even rounding. Empty inputs score zero.
func ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}

	total := la + lb
	sim := float64(total-levenshtein.Distance(a, b, indel)) / float64(total)
	return int(math.RoundToEven(sim * 100))
}
