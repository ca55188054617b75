// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/render"
)

// DuckDuckGo queries the keyless DuckDuckGo HTML endpoint, restricted to
// results from the past year.
type DuckDuckGo struct {
	BaseURL string
	Client  *http.Client
}

func (d *DuckDuckGo) Name() string { return KindDDG }

func (d *DuckDuckGo) Search(ctx context.Context, query string, n int) ([]Result, error) {
	form := url.Values{"q": {query}, "kl": {"wt-wt"}, "df": {"y"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(d.BaseURL, "https://html.duckduckgo.com/html/"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", render.DefaultUserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "search request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()
	// DuckDuckGo answers throttled clients with 202 and an empty page.
	if resp.StatusCode == http.StatusAccepted {
		return nil, errors.New(errors.CodeRateLimit, "duckduckgo rate limited", nil).WithRecoverable(true)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	results, err := ParseDuckDuckGoHTML(resp.Body)
	if err != nil {
		return nil, err
	}
	return limit(results, n), nil
}

// ParseDuckDuckGoHTML extracts results from the HTML endpoint markup: a
// "result__a" link followed by a "result__snippet" element.
func ParseDuckDuckGoHTML(r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "parse search page", err).WithRecoverable(true)
	}
	var results []Result
	walk(doc, func(n *html.Node) bool {
		switch {
		case n.Data == "a" && hasClass(n, "result__a"):
			results = append(results, Result{
				Title: textOf(n),
				Href:  unwrapRedirect(attr(n, "href")),
			})
			return false
		case hasClass(n, "result__snippet") && len(results) > 0:
			results[len(results)-1].Body = textOf(n)
			return false
		}
		return true
	})
	return results, nil
}

// PageCrawler scrapes a search engine result page rendered in headless Chrome.
type PageCrawler struct {
	Kind     string
	Renderer render.Renderer
}

// NewCrawler returns a crawler for the engine of kind. Hosted-only kinds
// crawl DuckDuckGo.
func NewCrawler(kind string, r render.Renderer) *PageCrawler {
	switch kind {
	case KindGoogle, KindBing, KindYahoo:
	default:
		kind = KindDDG
	}
	return &PageCrawler{Kind: kind, Renderer: r}
}

// Crawl renders the result page for query and parses it.
func (c *PageCrawler) Crawl(ctx context.Context, query string, n int) ([]Result, error) {
	page, err := c.Renderer.HTML(ctx, c.pageURL(query))
	if err != nil {
		return nil, err
	}
	results, err := ParseResultPage(c.Kind, strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	return limit(results, n), nil
}

func (c *PageCrawler) pageURL(query string) string {
	q := url.QueryEscape(query)
	switch c.Kind {
	case KindGoogle:
		return "https://www.google.com/search?q=" + q
	case KindBing:
		return "https://www.bing.com/search?q=" + q
	case KindYahoo:
		return "https://search.yahoo.com/search?p=" + q
	default:
		return "https://duckduckgo.com/?q=" + q + "&t=h_&ia=web"
	}
}

// ParseResultPage extracts results from a rendered engine page. DuckDuckGo
// results are <article> elements; the other engines wrap each hit title in
// a heading inside (or around) its link.
func ParseResultPage(kind string, r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "parse search page", err).WithRecoverable(true)
	}
	var results []Result
	if kind == KindDDG {
		walk(doc, func(n *html.Node) bool {
			if n.Data != "article" {
				return true
			}
			if res, ok := parseArticle(n); ok {
				results = append(results, res)
			}
			return false
		})
		return results, nil
	}

	walk(doc, func(n *html.Node) bool {
		if n.Data != "a" {
			return true
		}
		href := unwrapRedirect(attr(n, "href"))
		if !strings.HasPrefix(href, "http") {
			return true
		}
		heading := findFirst(n, func(c *html.Node) bool { return c.Data == "h2" || c.Data == "h3" })
		if heading == nil && n.Parent != nil && (n.Parent.Data == "h2" || n.Parent.Data == "h3") {
			heading = n
		}
		if heading == nil {
			return true
		}
		results = append(results, Result{Title: textOf(heading), Href: href})
		return false
	})
	return results, nil
}

func parseArticle(article *html.Node) (Result, bool) {
	var res Result
	walk(article, func(n *html.Node) bool {
		if n.Data == "a" && res.Href == "" {
			if href := attr(n, "href"); strings.HasPrefix(href, "http") {
				res.Href = href
			}
		}
		if (n.Data == "h2" || n.Data == "h3") && res.Title == "" {
			res.Title = textOf(n)
			return false
		}
		return true
	})
	if res.Href == "" || res.Title == "" {
		return Result{}, false
	}
	res.Body = strings.Join(strings.Fields(strings.Replace(textOf(article), res.Title, "", 1)), " ")
	return res, true
}

// walk visits element nodes depth first. visit returns false to skip the
// children of n.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c != n && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// unwrapRedirect resolves DuckDuckGo "/l/?uddg=" and Google "/url?q="
// redirect links to their target.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Path == "/url" {
		if target := u.Query().Get("q"); strings.HasPrefix(target, "http") {
			return target
		}
	}
	return href
}
