// Package scrape implements the collaborators that script execution is built
// on: fetching pages over HTTP, selecting content out of them with CSS, and
// saving media to disk.
//
// A single [Client] serves all three roles so that every fetch and download
// in a run reuses one underlying [net/http.Client].
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultTimeout is the limit applied to each HTTP request a [Client] makes,
// unless overridden with [WithTimeout].
const DefaultTimeout = 30 * time.Second

var (
	// ErrInvalidSelector is returned when a CSS selector cannot be compiled.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrInvalidURL is returned when a URL cannot be parsed, or cannot be
	// resolved against a base.
	ErrInvalidURL = errors.New("invalid url")

	// ErrTransport is returned when an HTTP request cannot be completed or
	// comes back with a non 2xx status.
	ErrTransport = errors.New("transport error")

	// ErrIO is returned when a local filesystem operation fails.
	ErrIO = errors.New("io error")
)

// Kind is the broad category of a piece of media found on a page.
type Kind int

//go:generate stringer -type Kind -linecomment
const (
	KindImage Kind = iota // image
	KindVideo             // video
	KindAudio             // audio
)

// defaultExt returns the file extension assumed for media of this kind when
// its URL does not carry one.
func (k Kind) defaultExt() string {
	switch k {
	case KindVideo:
		return "mp4"
	case KindAudio:
		return "mp3"
	default:
		return "jpg"
	}
}

// MediaItem is a single downloadable piece of media discovered on a page.
type MediaItem struct {
	Attrs map[string]string // Raw attributes of the element it came from
	URL   string            // Location of the content, absolute
	Kind  Kind              // Category of the content
}

// Filename returns the name the item is saved under: the last '/' separated
// segment of its URL, given the kind's default extension if the segment
// carries none of its own.
func (m MediaItem) Filename() string {
	name := m.URL[strings.LastIndexByte(m.URL, '/')+1:]
	if name == "" {
		name = "unknown"
	}

	if !strings.Contains(name, ".") {
		name += "." + m.Kind.defaultExt()
	}

	return name
}

// FetchResult is everything harvested from fetching a single page.
type FetchResult struct {
	URL   string      // The URL the page was fetched from
	Title string      // Title of the page, empty if it has none
	HTML  string      // Raw HTML, kept so extraction can happen without refetching
	Links []string    // Absolute form of every hyperlink on the page
	Media []MediaItem // All media content found on the page
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithTimeout sets the timeout applied to each HTTP request the client
// makes, replacing [DefaultTimeout].
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// Client fetches pages, extracts content from them, and downloads media.
//
// The zero value is not usable, use [New].
type Client struct {
	http *http.Client
}

// New returns a new [Client].
func New(options ...Option) *Client {
	client := &Client{
		http: &http.Client{Timeout: DefaultTimeout},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Fetch gets the page at pageURL and harvests its title, hyperlinks, and
// media, resolving relative references against the page's own URL.
func (c *Client) Fetch(ctx context.Context, pageURL string) (FetchResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %s", ErrInvalidURL, pageURL)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return FetchResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: parse %s: %s", ErrTransport, pageURL, err)
	}

	result := FetchResult{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.FindMatcher(titleSelector).First().Text()),
		HTML:  string(body),
		Links: harvestLinks(doc, base),
		Media: harvestMedia(doc, base),
	}

	return result, nil
}

// Text returns the text content of every element in markup matching
// selector, trimmed of surrounding whitespace. Elements with nothing but
// whitespace in them are dropped.
func (c *Client) Text(markup, selector string) ([]string, error) {
	doc, matcher, err := match(markup, selector)
	if err != nil {
		return nil, err
	}

	var texts []string
	doc.FindMatcher(matcher).Each(func(_ int, selection *goquery.Selection) {
		if text := strings.TrimSpace(selection.Text()); text != "" {
			texts = append(texts, text)
		}
	})

	return texts, nil
}

// Attribute returns the value of the named attribute for every element in
// markup matching selector. Elements without the attribute are skipped.
func (c *Client) Attribute(markup, selector, attribute string) ([]string, error) {
	doc, matcher, err := match(markup, selector)
	if err != nil {
		return nil, err
	}

	var values []string
	doc.FindMatcher(matcher).Each(func(_ int, selection *goquery.Selection) {
		if value, ok := selection.Attr(attribute); ok {
			values = append(values, value)
		}
	})

	return values, nil
}

// AllMedia returns every media item in markup, with relative sources
// resolved to absolute URLs against base.
func (c *Client) AllMedia(markup, base string) ([]MediaItem, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, base)
	}

	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	return harvestMedia(doc, baseURL), nil
}

// Save downloads item into dir, creating the directory if it does not
// already exist. The filename comes from [MediaItem.Filename].
func (c *Client) Save(ctx context.Context, item MediaItem, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %s", ErrIO, dir, err)
	}

	body, err := c.get(ctx, item.URL)
	if err != nil {
		return err
	}

	destination := filepath.Join(dir, item.Filename())
	if err := os.WriteFile(destination, body, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %s", ErrIO, destination, err)
	}

	return nil
}

// get performs a GET request against target and returns the response body,
// mapping transport failures and non 2xx statuses to [ErrTransport].
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, target)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrTransport, target, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrTransport, target, response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrTransport, target, err)
	}

	return body, nil
}

var (
	titleSelector = cascadia.MustCompile("title")
	linkSelector  = cascadia.MustCompile("a[href]")

	// mediaSelectors pairs each media kind with the selector that finds
	// elements carrying content of that kind.
	mediaSelectors = []struct {
		matcher cascadia.Selector
		kind    Kind
	}{
		{kind: KindImage, matcher: cascadia.MustCompile("img[src]")},
		{kind: KindVideo, matcher: cascadia.MustCompile("video source[src], video[src]")},
		{kind: KindAudio, matcher: cascadia.MustCompile("audio source[src], audio[src]")},
	}
)

// parse reads markup into a queryable document.
func parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("could not parse html: %w", err)
	}

	return doc, nil
}

// match parses markup and compiles selector, reporting [ErrInvalidSelector]
// if the selector is malformed.
func match(markup, selector string) (*goquery.Document, goquery.Matcher, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q: %s", ErrInvalidSelector, selector, err)
	}

	doc, err := parse(markup)
	if err != nil {
		return nil, nil, err
	}

	return doc, matcher, nil
}

// harvestLinks collects the absolute form of every hyperlink in doc,
// skipping any that cannot be resolved against base.
func harvestLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.FindMatcher(linkSelector).Each(func(_ int, selection *goquery.Selection) {
		href, ok := selection.Attr("href")
		if !ok {
			return
		}

		resolved, err := resolve(base, href)
		if err != nil {
			return
		}

		links = append(links, resolved)
	})

	return links
}

// harvestMedia collects every image, video, and audio source in doc,
// skipping any that cannot be resolved against base.
func harvestMedia(doc *goquery.Document, base *url.URL) []MediaItem {
	var items []MediaItem
	for _, media := range mediaSelectors {
		doc.FindMatcher(media.matcher).Each(func(_ int, selection *goquery.Selection) {
			src, ok := selection.Attr("src")
			if !ok {
				return
			}

			resolved, err := resolve(base, src)
			if err != nil {
				return
			}

			items = append(items, MediaItem{
				URL:   resolved,
				Kind:  media.kind,
				Attrs: attributes(selection.Nodes[0]),
			})
		})
	}

	return items
}

// attributes flattens the raw attributes of an element node into a map.
func attributes(node *html.Node) map[string]string {
	if len(node.Attr) == 0 {
		return nil
	}

	attrs := make(map[string]string, len(node.Attr))
	for _, attr := range node.Attr {
		attrs[attr.Key] = attr.Val
	}

	return attrs
}

// resolve joins ref against base, returning an absolute URL.
func resolve(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, ref)
	}

	return base.ResolveReference(parsed).String(), nil
}
