package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/samcutley/intelwatch/internal/domain"
)

// Error reports a page-level fetch or parse failure. Callers treat it as
// recoverable: the page or unit is logged and skipped, never crawl-fatal.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Item is one structured field-map extracted from a listing page.
type Item map[string]string

// Client retrieves pages and applies selector-based extraction rules.
type Client struct {
	http *resty.Client
}

// New creates a fetch client with the given per-request timeout and user agent.
// Parameters:
//   - timeout: per-request timeout applied to every page fetch.
//   - userAgent: User-Agent header sent with every request.
//
// Returns:
//   - *Client: initialized fetch client.
func New(timeout time.Duration, userAgent string) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return &Client{http: client}
}

// Listing fetches one listing page and extracts one Item per matched element.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pageURL: absolute listing page URL.
//   - rules: listing extraction rules; excluded selectors are removed per item.
//
// Returns:
//   - []Item: extracted field-maps, empty when no elements match.
//   - error: *Error on HTTP, network, or parse failure.
func (c *Client) Listing(ctx context.Context, pageURL string, rules *domain.ListingRules) ([]Item, error) {
	doc, err := c.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find(rules.ItemSelector).Each(func(i int, s *goquery.Selection) {
		item := Item{}
		for name, rule := range rules.Fields {
			item[name] = extractField(s, rule, rules.ExcludedSelectors)
		}
		items = append(items, item)
	})

	return items, nil
}

// Article fetches one article page and extracts its body text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - articleURL: absolute article URL.
//   - rules: article extraction rules.
//
// Returns:
//   - string: extracted body text.
//   - error: *Error on HTTP/network/parse failure or an empty body.
func (c *Client) Article(ctx context.Context, articleURL string, rules *domain.ArticleRules) (string, error) {
	doc, err := c.document(ctx, articleURL)
	if err != nil {
		return "", err
	}

	sel := doc.Find(rules.ContentSelector)
	if sel.Length() == 0 {
		return "", &Error{URL: articleURL, Err: fmt.Errorf("content selector %q matched nothing", rules.ContentSelector)}
	}

	// Clone before removal so repeated extraction from the same document stays safe.
	clone := sel.Clone()
	for _, excluded := range rules.ExcludedSelectors {
		clone.Find(excluded).Remove()
	}

	body := canonicalize(clone.Text())
	if body == "" {
		return "", &Error{URL: articleURL, Err: fmt.Errorf("empty article body")}
	}

	return body, nil
}

func (c *Client) document(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &Error{URL: url, Status: resp.StatusCode()}
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{URL: url, Err: fmt.Errorf("empty response body")}
	}

	// Normalize to UTF-8 before parsing; sources are not uniformly encoded.
	reader, err := charset.NewReader(bytes.NewReader(body), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("charset detection: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("html parse: %w", err)}
	}

	return doc, nil
}

func extractField(s *goquery.Selection, rule domain.FieldRule, excluded []string) string {
	sel := s.Find(rule.Selector)
	if sel.Length() == 0 {
		return ""
	}
	if rule.Attr != "" {
		val, _ := sel.First().Attr(rule.Attr)
		return strings.TrimSpace(val)
	}

	clone := sel.Clone()
	for _, ex := range excluded {
		clone.Find(ex).Remove()
	}
	return strings.TrimSpace(clone.Text())
}

// canonicalize collapses whitespace runs so the same rendered content always
// produces the same fingerprint.
func canonicalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
