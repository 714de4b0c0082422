package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSkills = 20

const (
	nameSelector     = "h1.text-heading-xlarge, h1.top-card-layout__title"
	headlineSelector = ".text-body-medium.break-words, .top-card-layout__headline"
	locationSelector = ".text-body-small.inline.t-black--light.break-words, .top-card__subline-item"
	aboutSelector    = "#about ~ * .inline-show-more-text"

	itemSelector      = "ul > li.artdeco-list__item"
	boldSelector      = `.mr1.t-bold span[aria-hidden="true"]`
	secondarySelector = `.t-14.t-normal:not(.t-black--light) span[aria-hidden="true"]`
	mutedSelector     = `.t-14.t-normal.t-black--light span[aria-hidden="true"]`

	nextPageSelector = `button[aria-label="Next"], a[aria-label="Next"], .artdeco-pagination__button--next`
)

// Position is one experience item as shown on the page.
type Position struct {
	Title     string
	Company   string
	DateRange string
	Location  string
}

// School is one education item as shown on the page.
type School struct {
	Name      string
	Degree    string
	DateRange string
}

// ProfilePage holds the fields read from a rendered profile.
type ProfilePage struct {
	Name       string
	Headline   string
	Location   string
	About      string
	Experience []Position
	Education  []School
	Skills     []string
	Languages  []string
}

// Map converts the page into the loose record shape the normalizer reads.
func (p ProfilePage) Map() map[string]any {
	experience := make([]any, 0, len(p.Experience))
	for _, pos := range p.Experience {
		experience = append(experience, map[string]any{
			"title":      pos.Title,
			"company":    pos.Company,
			"date_range": pos.DateRange,
			"location":   pos.Location,
		})
	}

	education := make([]any, 0, len(p.Education))
	for _, s := range p.Education {
		education = append(education, map[string]any{
			"school":     s.Name,
			"degree":     s.Degree,
			"date_range": s.DateRange,
		})
	}

	return map[string]any{
		"name":       p.Name,
		"headline":   p.Headline,
		"location":   p.Location,
		"about":      p.About,
		"experience": experience,
		"education":  education,
		"skills":     toAny(p.Skills),
		"languages":  toAny(p.Languages),
	}
}

func isBlank(p ProfilePage) bool {
	return p.Name == "" && len(p.Experience) == 0 && len(p.Education) == 0
}

// ParseProfile reads a rendered profile document.
func ParseProfile(html string) (ProfilePage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ProfilePage{}, fmt.Errorf("parsing profile html: %w", err)
	}

	page := ProfilePage{
		Name:     firstText(doc.Selection, nameSelector),
		Headline: firstText(doc.Selection, headlineSelector),
		Location: firstText(doc.Selection, locationSelector),
		About:    firstText(doc.Selection, aboutSelector),
	}

	section(doc, "#experience").Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		pos := Position{
			Title:     firstText(item, boldSelector),
			Company:   firstText(item, secondarySelector),
			DateRange: firstText(item, mutedSelector),
		}
		if muted := item.Find(mutedSelector); muted.Length() > 1 {
			pos.Location = clean(muted.Eq(1).Text())
		}
		if pos != (Position{}) {
			page.Experience = append(page.Experience, pos)
		}
	})

	section(doc, "#education").Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		s := School{
			Name:      firstText(item, boldSelector),
			Degree:    firstText(item, secondarySelector),
			DateRange: firstText(item, mutedSelector),
		}
		if s != (School{}) {
			page.Education = append(page.Education, s)
		}
	})

	seen := map[string]struct{}{}
	section(doc, "#skills").Find(`ul > li span[aria-hidden="true"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		skill := clean(s.Text())
		if _, ok := seen[skill]; skill != "" && !ok {
			seen[skill] = struct{}{}
			page.Skills = append(page.Skills, skill)
		}
		return len(page.Skills) < maxSkills
	})

	section(doc, "#languages").Find("ul > li " + boldSelector).Each(func(_ int, s *goquery.Selection) {
		if lang := clean(s.Text()); lang != "" {
			page.Languages = append(page.Languages, lang)
		}
	})

	return page, nil
}

// ProfileLinks returns the profile URLs found on a search results document,
// without query strings, in page order.
func ProfileLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search html: %w", err)
	}

	var links []string
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, ok := profileLink(href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}

// HasNextPage reports whether the search results show an enabled next button.
func HasNextPage(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	next := doc.Find(nextPageSelector).First()
	if next.Length() == 0 {
		return false
	}
	_, disabled := next.Attr("disabled")
	return !disabled
}

func profileLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		href = "https://www.linkedin.com" + href
	}

	u, err := url.Parse(href)
	if err != nil || !strings.Contains(u.Host, "linkedin.com") {
		return "", false
	}

	path := u.Path
	switch {
	case strings.Contains(path, "/talent/profile/"):
	case strings.Contains(path, "/talent/hire/") && strings.Contains(path, "/profile/"):
	case strings.Contains(path, "/in/") && !strings.HasSuffix(strings.TrimSuffix(path, "/"), "/in"):
	default:
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}

// section returns the <section> that holds the anchor element.
func section(doc *goquery.Document, anchor string) *goquery.Selection {
	return doc.Find(anchor).First().Closest("section")
}

func firstText(s *goquery.Selection, selector string) string {
	return clean(s.Find(selector).First().Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func toAny(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
