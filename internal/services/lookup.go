package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"golang.org/x/oauth2"
)

// LookupClient searches the song catalog.
type LookupClient struct {
	baseURL string
	timeout time.Duration
	base    *http.Client
}

// NewLookupClient creates a client for baseURL. A nil httpClient gets one with the given timeout.
func NewLookupClient(baseURL string, timeout time.Duration, httpClient *http.Client) *LookupClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &LookupClient{baseURL: baseURL, timeout: timeout, base: httpClient}
}

// clientFor returns an HTTP client that carries token as a bearer credential when set.
func (l *LookupClient) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		return l.base
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.base)
	authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	authed.Timeout = l.base.Timeout
	return authed
}

// Search returns catalog matches for title. Zero matches is an empty slice and a nil error.
//
// Calls GET /metadata/search?title=...&token=... The token also rides as a bearer credential.
func (l *LookupClient) Search(ctx context.Context, title, token string) ([]models.Metadata, error) {
	c := client{name: "lookup", baseURL: l.baseURL, httpClient: l.clientFor(ctx, token)}

	var matches []models.Metadata
	query := url.Values{"title": {title}}
	if token != "" {
		query.Set("token", token)
	}
	endpoint := "/metadata/search?" + query.Encode()
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &matches); err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.Metadata{}
	}
	return matches, nil
}
