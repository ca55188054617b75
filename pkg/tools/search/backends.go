// SPDX-License-Identifier: Apache-2.0

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// Backend kinds accepted by NewBackend.
const (
	KindDDG       = "ddg"
	KindGoogle    = "google"
	KindBing      = "bing"
	KindYahoo     = "yahoo"
	KindBrave     = "brave"
	KindGoogleCSE = "google_cse"
)

// Credentials holds the API keys of the hosted backends.
type Credentials struct {
	SerperKey    string
	SerpAPIKey   string
	BraveKey     string
	GoogleAPIKey string
	GoogleCSEID  string
}

// NewBackend returns the backend for kind.
func NewBackend(kind string, creds Credentials, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	switch strings.ToLower(kind) {
	case KindDDG, "":
		return &DuckDuckGo{Client: client}, nil
	case KindGoogle:
		return &Serper{APIKey: creds.SerperKey, Client: client}, nil
	case KindBing:
		return &SerpAPI{Engine: KindBing, APIKey: creds.SerpAPIKey, Client: client}, nil
	case KindYahoo:
		return &SerpAPI{Engine: KindYahoo, APIKey: creds.SerpAPIKey, Client: client}, nil
	case KindBrave:
		return &Brave{APIKey: creds.BraveKey, Client: client}, nil
	case KindGoogleCSE:
		return &GoogleCSE{APIKey: creds.GoogleAPIKey, CX: creds.GoogleCSEID, Client: client}, nil
	default:
		return nil, errors.New(errors.CodeInvalidInput, "unsupported search backend", nil).WithContext("kind", kind)
	}
}

// HTTPClient builds the client shared by the backends. An empty proxy uses
// the environment settings.
func HTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput, "invalid proxy url", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func missingKey(backend string) error {
	return errors.New(errors.CodeInvalidInput, "search api key not configured", nil).
		WithContext("backend", backend).
		WithRecoverable(true)
}

// Serper queries Google through serper.dev.
type Serper struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (s *Serper) Name() string { return KindGoogle }

func (s *Serper) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if s.APIKey == "" {
		return nil, missingKey(s.Name())
	}
	body, _ := json.Marshal(map[string]any{"q": query, "num": n})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(s.BaseURL, "https://google.serper.dev/search"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := doJSON(s.Client, req, &raw); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(raw.Organic))
	for _, r := range raw.Organic {
		out = append(out, Result{Title: r.Title, Href: r.Link, Body: r.Snippet})
	}
	return limit(out, n), nil
}

// SerpAPI queries Bing or Yahoo through serpapi.com.
type SerpAPI struct {
	Engine  string
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (s *SerpAPI) Name() string { return s.Engine }

func (s *SerpAPI) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if s.APIKey == "" {
		return nil, missingKey(s.Name())
	}
	params := url.Values{"engine": {s.Engine}, "api_key": {s.APIKey}}
	if s.Engine == KindYahoo {
		params.Set("p", query)
	} else {
		params.Set("q", query)
		params.Set("cc", "US")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, orDefault(s.BaseURL, "https://serpapi.com/search.json")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := doJSON(s.Client, req, &raw); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(raw.OrganicResults))
	for _, r := range raw.OrganicResults {
		out = append(out, Result{Title: r.Title, Href: r.Link, Body: r.Snippet})
	}
	return limit(out, n), nil
}

// Brave queries the Brave web search API.
type Brave struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (b *Brave) Name() string { return KindBrave }

func (b *Brave) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if b.APIKey == "" {
		return nil, missingKey(b.Name())
	}
	params := url.Values{"q": {query}, "count": {strconv.Itoa(n)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, orDefault(b.BaseURL, "https://api.search.brave.com/res/v1/web/search")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := doJSON(b.Client, req, &raw); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(raw.Web.Results))
	for _, r := range raw.Web.Results {
		out = append(out, Result{Title: r.Title, Href: r.URL, Body: r.Description})
	}
	return limit(out, n), nil
}

// GoogleCSE queries a Google programmable search engine.
type GoogleCSE struct {
	APIKey  string
	CX      string
	BaseURL string
	Client  *http.Client
}

func (g *GoogleCSE) Name() string { return KindGoogleCSE }

func (g *GoogleCSE) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if g.APIKey == "" || g.CX == "" {
		return nil, missingKey(g.Name())
	}
	params := url.Values{"key": {g.APIKey}, "cx": {g.CX}, "q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, orDefault(g.BaseURL, "https://www.googleapis.com/customsearch/v1")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := doJSON(g.Client, req, &raw); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(raw.Items))
	for _, r := range raw.Items {
		out = append(out, Result{Title: r.Title, Href: r.Link, Body: r.Snippet})
	}
	return limit(out, n), nil
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.New(errors.CodeToolFailure, "search request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeToolFailure, "decode search response", err).WithRecoverable(true)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	code := errors.CodeToolFailure
	if resp.StatusCode == http.StatusTooManyRequests {
		code = errors.CodeRateLimit
	}
	return errors.New(code, fmt.Sprintf("search backend returned %d", resp.StatusCode), nil).
		WithContext("body", strings.TrimSpace(string(body))).
		WithRecoverable(true)
}

func limit(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
