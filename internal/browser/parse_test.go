package browser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const profileHTML = `<html><body><main>
<h1 class="text-heading-xlarge">  Jane   Doe </h1>
<div class="text-body-medium break-words">Data engineer</div>
<span class="text-body-small inline t-black--light break-words">Paris, Île-de-France</span>
<section>
  <div id="experience"></div>
  <ul>
    <li class="artdeco-list__item">
      <div class="mr1 t-bold"><span aria-hidden="true">Engineer</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">Carrefour</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Jan 2020 - Present · 4 yrs</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Massy</span></span>
    </li>
    <li class="artdeco-list__item">
      <div class="mr1 t-bold"><span aria-hidden="true">Intern</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">Acme</span></span>
    </li>
  </ul>
</section>
<section>
  <div id="education"></div>
  <ul>
    <li class="artdeco-list__item">
      <div class="mr1 t-bold"><span aria-hidden="true">Mines ParisTech</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">MSc</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2014 - 2017</span></span>
    </li>
  </ul>
</section>
<section>
  <div id="skills"></div>
  <ul><li><span aria-hidden="true">Go</span></li><li><span aria-hidden="true">Go</span></li><li><span aria-hidden="true">SQL</span></li></ul>
</section>
<section>
  <div id="languages"></div>
  <ul>
    <li><div class="mr1 t-bold"><span aria-hidden="true">French</span></div></li>
    <li><div class="mr1 t-bold"><span aria-hidden="true">English</span></div></li>
  </ul>
</section>
</main></body></html>`

func TestParseProfile(t *testing.T) {
	page, err := ParseProfile(profileHTML)
	require.NoError(t, err)

	require.Equal(t, "Jane Doe", page.Name)
	require.Equal(t, "Data engineer", page.Headline)
	require.Equal(t, "Paris, Île-de-France", page.Location)
	require.Equal(t, []Position{
		{Title: "Engineer", Company: "Carrefour", DateRange: "Jan 2020 - Present · 4 yrs", Location: "Massy"},
		{Title: "Intern", Company: "Acme"},
	}, page.Experience)
	require.Equal(t, []School{{Name: "Mines ParisTech", Degree: "MSc", DateRange: "2014 - 2017"}}, page.Education)
	require.Equal(t, []string{"Go", "SQL"}, page.Skills)
	require.Equal(t, []string{"French", "English"}, page.Languages)

	m := page.Map()
	require.Equal(t, "Jane Doe", m["name"])
	require.Len(t, m["experience"], 2)
	require.Equal(t, "Jan 2020 - Present · 4 yrs", m["experience"].([]any)[0].(map[string]any)["date_range"])
}

func TestParseProfileEmptyPage(t *testing.T) {
	page, err := ParseProfile(`<html><body><main>Sign in to view</main></body></html>`)
	require.NoError(t, err)
	require.True(t, isBlank(page))
}

func TestProfileLinks(t *testing.T) {
	html := `<html><body>
<a href="/in/jane-doe?miniProfileUrn=x">Jane</a>
<a href="https://www.linkedin.com/in/jane-doe">Jane again</a>
<a href="https://www.linkedin.com/talent/profile/AEMAA?project=1">Recruiter</a>
<a href="https://www.linkedin.com/talent/hire/123/discover/profile/AEMBB">Hire</a>
<a href="https://www.linkedin.com/in/">Directory</a>
<a href="https://example.com/in/someone">Other site</a>
<a href="/feed/">Feed</a>
</body></html>`

	links, err := ProfileLinks(html)
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://www.linkedin.com/in/jane-doe",
		"https://www.linkedin.com/talent/profile/AEMAA",
		"https://www.linkedin.com/talent/hire/123/discover/profile/AEMBB",
	}, links)
}

func TestHasNextPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{name: "enabled", html: `<button aria-label="Next">Next</button>`, want: true},
		{name: "disabled", html: `<button aria-label="Next" disabled>Next</button>`, want: false},
		{name: "pagination class", html: `<button class="artdeco-pagination__button--next">Next</button>`, want: true},
		{name: "missing", html: `<div>last page</div>`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HasNextPage(tt.html))
		})
	}
}

func TestIsLoginPage(t *testing.T) {
	require.True(t, isLoginPage("https://www.linkedin.com/authwall?trk=x"))
	require.True(t, isLoginPage("https://www.linkedin.com/login"))
	require.False(t, isLoginPage("https://www.linkedin.com/in/jane-doe"))
}
