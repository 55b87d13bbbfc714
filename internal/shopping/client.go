package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	SerpAPIBaseURL = "https://serpapi.com"
	searchPath     = "/search.json"
	engine         = "google_shopping"
)

// ErrMissingAPIKey is returned when no SerpAPI key is configured.
var ErrMissingAPIKey = errors.New("SERPAPI_API_KEY not set in environment")

// API runs a single shopping search.
type API interface {
	Search(ctx context.Context, query string, locale Locale) (RawResultSet, error)
}

type ClientOpts struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a SerpAPI Google Shopping client.
type Client struct {
	httpClient *resty.Client
	apiKey     string
}

func NewClient(opts ClientOpts) *Client {
	baseURL := SerpAPIBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey: opts.APIKey,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Search runs one google_shopping query. A response with an "error" field is
// returned as a result set carrying that error, not as a Go error.
func (c *Client) Search(ctx context.Context, query string, locale Locale) (RawResultSet, error) {
	set := RawResultSet{Query: query}
	if c.apiKey == "" {
		return set, ErrMissingAPIKey
	}
	locale = locale.withDefaults()

	res, err := handleError(c.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  engine,
			"q":       query,
			"api_key": c.apiKey,
			"gl":      locale.Country,
			"hl":      locale.Language,
		}).
		Get(searchPath))
	if err != nil {
		return set, err
	}

	var body response
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return set, fmt.Errorf("decode shopping response: %w", err)
	}
	set.Raw = json.RawMessage(res.Body())
	set.Products = body.ShoppingResults
	set.Error = body.Error
	return set, nil
}

// handleError turns >399 responses into errors; resty leaves them nil.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("shopping search failed: %s (status: %d)", res.Request.Method, res.StatusCode())
	}
	return res, nil
}
