package parsers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/poiesic/docingest/core"
)

// Field names produced by URL in addition to the Text fields.
const (
	FieldURL       = "url"
	FieldTitle     = "title"
	FieldByline    = "byline"
	FieldSite      = "site"
	FieldExcerpt   = "excerpt"
	FieldLanguage  = "language"
	FieldPublished = "published"
	FieldStatus    = "status"
)

// Defaults for URL.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxChars     = 100_000
	DefaultMaxBodyBytes = 8 << 20
	DefaultUserAgent    = "docingest/1.0"
)

// URLOption configures the URL parser.
type URLOption func(*urlParser) error

type urlParser struct {
	client    *http.Client
	timeout   time.Duration
	maxChars  int
	maxBody   int64
	userAgent string
}

// WithHTTPClient sets the client used for fetching. Default is a new client
// with no timeout of its own; requests are bounded by WithFetchTimeout.
func WithHTTPClient(client *http.Client) URLOption {
	return func(p *urlParser) error {
		if client == nil {
			return fmt.Errorf("http client must not be nil")
		}
		p.client = client
		return nil
	}
}

// WithFetchTimeout bounds each fetch including reading the body.
// Default is DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) URLOption {
	return func(p *urlParser) error {
		if d <= 0 {
			return fmt.Errorf("fetch timeout must be positive, got %s", d)
		}
		p.timeout = d
		return nil
	}
}

// WithMaxChars truncates the article text to n characters.
// Default is DefaultMaxChars.
func WithMaxChars(n int) URLOption {
	return func(p *urlParser) error {
		if n < 1 {
			return fmt.Errorf("max chars must be positive, got %d", n)
		}
		p.maxChars = n
		return nil
	}
}

// WithMaxBodyBytes sets the largest response body URL will read.
// Default is DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) URLOption {
	return func(p *urlParser) error {
		if n < 1 {
			return fmt.Errorf("max body bytes must be positive, got %d", n)
		}
		p.maxBody = n
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with each fetch.
func WithUserAgent(ua string) URLOption {
	return func(p *urlParser) error {
		p.userAgent = ua
		return nil
	}
}

// URL returns a parser for web page addresses. Each page is fetched and
// reduced to its readable article: title, byline, site name, excerpt,
// language, publication time when known, and the article text with the Text
// statistics.
func URL(opts ...URLOption) (core.ParserFunc, error) {
	p := &urlParser{
		client:    &http.Client{},
		timeout:   DefaultFetchTimeout,
		maxChars:  DefaultMaxChars,
		maxBody:   DefaultMaxBodyBytes,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p.parse, nil
}

func (p *urlParser) parse(item core.SourceItem) (core.Result, error) {
	raw, err := itemText(item)
	if err != nil {
		return nil, err
	}
	link, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (link.Scheme != "http" && link.Scheme != "https") || link.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrUnsupportedItem, raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, link, resp.StatusCode)
	}

	if resp.ContentLength > p.maxBody {
		return nil, fmt.Errorf("%w: %s has %d bytes, limit %d", ErrBodyTooLarge, link, resp.ContentLength, p.maxBody)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", link, err)
	}
	if int64(len(body)) > p.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds limit %d", ErrBodyTooLarge, link, p.maxBody)
	}

	article, err := readability.FromReader(bytes.NewReader(body), link)
	if err != nil {
		return nil, fmt.Errorf("extract article from %s: %w", link, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if runes := []rune(text); len(runes) > p.maxChars {
		text = string(runes[:p.maxChars])
	}

	result := textStats(text)
	result[FieldURL] = link.String()
	result[FieldStatus] = resp.StatusCode
	setNonEmpty(result, FieldTitle, article.Title)
	setNonEmpty(result, FieldByline, article.Byline)
	setNonEmpty(result, FieldSite, article.SiteName)
	setNonEmpty(result, FieldExcerpt, article.Excerpt)
	setNonEmpty(result, FieldLanguage, article.Language)
	if article.PublishedTime != nil {
		result[FieldPublished] = *article.PublishedTime
	}
	return result, nil
}

func setNonEmpty(r core.Result, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		r[key] = value
	}
}
