package rapidapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
)

const (
	apiURL     = "https://fresh-linkedin-profile-data.p.rapidapi.com"
	apiHost    = "fresh-linkedin-profile-data.p.rapidapi.com"
	enrichPath = "/enrich-lead"
	userAgent  = "spigell/profile-extractor"
)

// sections requested from the enrich endpoint. Only skills are needed on top of
// the base profile.
var sections = map[string]string{
	"include_skills":             "true",
	"include_certifications":     "false",
	"include_publications":       "false",
	"include_honors":             "false",
	"include_volunteers":         "false",
	"include_projects":           "false",
	"include_patents":            "false",
	"include_courses":            "false",
	"include_organizations":      "false",
	"include_profile_status":     "false",
	"include_company_public_url": "false",
}

// Client fetches profiles from the hosted enrichment API.
type Client struct {
	key        string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	Host       string
}

func New(logger *zap.Logger, key string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		key:    key,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
		APIURL:    apiURL,
		Host:      apiHost,
	}
}

// Fetch returns the decoded JSON body for the profile at id.
func (c *Client) Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error) {
	q := url.Values{}
	q.Set("linkedin_url", id.String())
	for k, v := range sections {
		q.Set(k, v)
	}

	var body map[string]any
	if err := c.getJSON(ctx, c.APIURL+enrichPath, q, &body); err != nil {
		return nil, err
	}

	return body, nil
}
