// Package serpapi is a client for the SerpApi Google Maps and Google web
// search engines.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/phone-finder/internal/resilience"
)

const defaultBaseURL = "https://serpapi.com/search.json"

// Engine names understood by the service.
const (
	EngineMaps = "google_maps"
	EngineWeb  = "google"
)

// PageSize is the nominal number of local results on a full page.
const PageSize = 20

// ErrNoMorePages is returned by Next when a page carries no pagination cursor.
var ErrNoMorePages = eris.New("serpapi: no more pages")

// Client performs SerpApi searches.
type Client interface {
	// MapsSearch runs a Google Maps local search.
	MapsSearch(ctx context.Context, q MapsQuery) (*MapsPage, error)
	// Next fetches the page after page by following its pagination cursor.
	Next(ctx context.Context, page *MapsPage) (*MapsPage, error)
	// WebSearch runs a Google web search and returns its organic results.
	WebSearch(ctx context.Context, q WebQuery) (*WebPage, error)
}

// MapsQuery is a Google Maps search request.
type MapsQuery struct {
	Query string
	// LL is the "@lat,lon,zoomz" viewport. Empty searches without a viewport.
	LL string
	// Language is the hl parameter, e.g. "ja".
	Language string
}

// MapsPage is one page of Google Maps results.
type MapsPage struct {
	// LocalResults is nil when the response carried no result list.
	LocalResults []map[string]any `json:"local_results"`
	// PlaceResults is set instead of LocalResults when the query matched a
	// single place.
	PlaceResults map[string]any `json:"place_results"`
	Pagination   Pagination     `json:"serpapi_pagination"`
	Error        string         `json:"error"`
}

// Pagination holds the cursor to the following page.
type Pagination struct {
	Next string `json:"next"`
}

// Places returns the page's listings. A single-place answer is returned as a
// one-element list. Nil means the response had no result list at all.
func (p *MapsPage) Places() []map[string]any {
	if p == nil {
		return nil
	}
	if p.LocalResults != nil {
		return p.LocalResults
	}
	if p.PlaceResults != nil {
		return []map[string]any{p.PlaceResults}
	}
	return nil
}

// WebQuery is a Google web search request.
type WebQuery struct {
	Query    string
	Num      int
	Language string
}

// WebPage is a page of Google web results.
type WebPage struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// OrganicResult is one organic web result.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// Snippets returns the non-empty snippets in result order.
func (w *WebPage) Snippets() []string {
	if w == nil {
		return nil
	}
	out := make([]string, 0, len(w.OrganicResults))
	for _, r := range w.OrganicResults {
		if s := strings.TrimSpace(r.Snippet); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
	limiter *rate.Limiter
}

// NewClient creates a SerpApi client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	c.retry = resilience.DefaultPolicy()
	c.retry.OnRetry = resilience.LogRetries("serpapi", "search")
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) MapsSearch(ctx context.Context, q MapsQuery) (*MapsPage, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, eris.New("serpapi: empty query")
	}
	params := url.Values{}
	params.Set("engine", EngineMaps)
	params.Set("type", "search")
	params.Set("q", q.Query)
	if q.LL != "" {
		params.Set("ll", q.LL)
	}
	if q.Language != "" {
		params.Set("hl", q.Language)
	}

	var page MapsPage
	if err := c.get(ctx, c.baseURL+"?"+c.withKey(params).Encode(), &page); err != nil {
		return nil, err
	}
	if err := pageError(page.Error); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) Next(ctx context.Context, page *MapsPage) (*MapsPage, error) {
	if page == nil || page.Pagination.Next == "" {
		return nil, ErrNoMorePages
	}
	u, err := url.Parse(page.Pagination.Next)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: parse next url")
	}
	u.RawQuery = c.withKey(u.Query()).Encode()

	var next MapsPage
	if err := c.get(ctx, u.String(), &next); err != nil {
		return nil, err
	}
	if err := pageError(next.Error); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *httpClient) WebSearch(ctx context.Context, q WebQuery) (*WebPage, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, eris.New("serpapi: empty query")
	}
	params := url.Values{}
	params.Set("engine", EngineWeb)
	params.Set("q", q.Query)
	if q.Num > 0 {
		params.Set("num", strconv.Itoa(q.Num))
	}
	if q.Language != "" {
		params.Set("hl", q.Language)
	}

	var page WebPage
	if err := c.get(ctx, c.baseURL+"?"+c.withKey(params).Encode(), &page); err != nil {
		return nil, err
	}
	if err := pageError(page.Error); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) withKey(v url.Values) url.Values {
	v.Set("api_key", c.apiKey)
	return v
}

// pageError converts the in-body error field. An empty result set is
// reported by the service as an error string and is not a failure here.
func pageError(msg string) error {
	if msg == "" || strings.Contains(strings.ToLower(msg), "hasn't returned any results") {
		return nil
	}
	return eris.Errorf("serpapi: %s", msg)
}

func (c *httpClient) get(ctx context.Context, rawURL string, out any) error {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "serpapi: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "serpapi: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "serpapi: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "serpapi: read response")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.StatusError("serpapi", resp.StatusCode, b)
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "serpapi: unmarshal response")
	}
	return nil
}
