// Package engine implements the interpreter that executes a parsed script,
// walking its commands in source order against a single scraping session.
//
// The engine owns all session state (the current page, the extraction
// selection, and the variable environment) and drives its collaborators
// through the [Fetcher], [Extractor], and [Downloader] interfaces so tests
// can substitute fakes without touching the network.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.followtheprocess.codes/msl/internal/scrape"
	"go.followtheprocess.codes/msl/internal/syntax"
)

// DefaultDestination is the directory media is downloaded to unless
// overridden with [WithDestination].
const DefaultDestination = "./downloaded_media"

// ErrNoPage is returned when a command that needs a loaded page runs before
// any open has succeeded.
var ErrNoPage = errors.New("no page loaded")

// Fetcher gets pages.
type Fetcher interface {
	// Fetch gets the page at url, harvesting its title, links, and media.
	Fetch(ctx context.Context, url string) (scrape.FetchResult, error)
}

// Extractor pulls content out of already fetched pages.
type Extractor interface {
	// Text returns the text content of every element in markup matching
	// selector.
	Text(markup, selector string) ([]string, error)

	// Attribute returns the value of the named attribute for every element
	// in markup matching selector.
	Attribute(markup, selector, attribute string) ([]string, error)

	// AllMedia returns every media item in markup, resolved against base.
	AllMedia(markup, base string) ([]scrape.MediaItem, error)
}

// Downloader saves media to local disk.
type Downloader interface {
	// Save downloads item into dir.
	Save(ctx context.Context, item scrape.MediaItem, dir string) error
}

// page is the document the session currently has loaded.
type page struct {
	url  string // The URL the page was fetched from
	html string // Raw HTML of the page
}

// selection is the extraction context on entry to a click body: the page the
// click's selector matched on, and the selector itself. Value expressions
// evaluate against it.
type selection struct {
	html     string
	selector string
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithLogger sets the logger the engine reports progress to. The default
// logger writes to os.Stderr.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDestination sets the directory downloads are written to, replacing
// [DefaultDestination].
func WithDestination(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.dest = dir
		}
	}
}

// Engine executes scripts. It holds the one session the script runs in, so
// an Engine must not be shared across concurrent runs.
type Engine struct {
	fetcher    Fetcher
	extractor  Extractor
	downloader Downloader
	logger     *log.Logger
	page       *page
	selection  *selection
	vars       map[string]string
	dest       string
}

// New returns a new [Engine] driving the given collaborators, with an empty
// session.
func New(fetcher Fetcher, extractor Extractor, downloader Downloader, options ...Option) *Engine {
	engine := &Engine{
		fetcher:    fetcher,
		extractor:  extractor,
		downloader: downloader,
		logger:     log.New(os.Stderr),
		vars:       make(map[string]string),
		dest:       DefaultDestination,
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// Execute runs every command in script in source order, stopping at the
// first error. There are no retries and no partial recovery, a failed
// command fails the whole run.
func (e *Engine) Execute(ctx context.Context, script syntax.Script) error {
	for _, command := range script.Commands {
		if err := e.execute(ctx, command); err != nil {
			return err
		}
	}

	return nil
}

// Var returns the value bound to name in the session's variable environment.
func (e *Engine) Var(name string) (value string, ok bool) {
	value, ok = e.vars[name]
	return value, ok
}

// execute dispatches a single command. Nested commands inside a click body
// come back through here recursively.
func (e *Engine) execute(ctx context.Context, command syntax.Command) error {
	switch command := command.(type) {
	case syntax.Open:
		return e.open(ctx, command)
	case syntax.Click:
		return e.click(ctx, command)
	case syntax.Set:
		return e.set(command)
	case syntax.Media:
		return e.media(ctx, command)
	case syntax.Save:
		return e.save(command)
	case syntax.Wait:
		return e.wait(ctx, command)
	default:
		return fmt.Errorf("unhandled command: %T", command)
	}
}

// open fetches a page and makes it the session's current page, clearing any
// selection left over from an enclosing click.
func (e *Engine) open(ctx context.Context, open syntax.Open) error {
	e.logger.Info("Opening", "url", open.URL)

	result, err := e.fetcher.Fetch(ctx, open.URL)
	if err != nil {
		return fmt.Errorf("open %s: %w", open.URL, err)
	}

	e.page = &page{url: open.URL, html: result.HTML}
	e.selection = nil

	title := result.Title
	if title == "" {
		title = "No title"
	}

	e.logger.Info("Loaded page", "title", title)
	e.logger.Debug("Page inventory", "links", len(result.Links), "media", len(result.Media))

	return nil
}

// click follows the first link matching the selector, then runs the body
// against the newly loaded page. Inside the body the selection is the page
// the selector matched on, restored to its previous value when the body
// completes.
//
// A selector matching nothing is a no-op, not an error.
func (e *Engine) click(ctx context.Context, click syntax.Click) error {
	if e.page == nil {
		return fmt.Errorf("click %q: %w", click.Selector, ErrNoPage)
	}

	links, err := e.extractor.Attribute(e.page.html, click.Selector, "href")
	if err != nil {
		return fmt.Errorf("click %q: %w", click.Selector, err)
	}

	if len(links) == 0 {
		e.logger.Warn("No links found", "selector", click.Selector)
		return nil
	}

	// Only the first match is ever followed, a click is a single step and
	// not a pagination mechanism
	target, err := e.resolve(links[0])
	if err != nil {
		return fmt.Errorf("click %q: %w", click.Selector, err)
	}

	e.logger.Info("Following link", "url", target)

	result, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("click %q: %w", click.Selector, err)
	}

	matched := e.page.html
	e.page = &page{url: target, html: result.HTML}

	previous := e.selection
	e.selection = &selection{html: matched, selector: click.Selector}
	defer func() { e.selection = previous }()

	for _, command := range click.Body {
		if err := e.execute(ctx, command); err != nil {
			return err
		}
	}

	return nil
}

// set evaluates a value expression against the current selection and binds
// the result, overwriting any previous binding for the same name.
func (e *Engine) set(set syntax.Set) error {
	if e.page == nil {
		return fmt.Errorf("set %s: %w", set.Name, ErrNoPage)
	}

	value, err := e.evaluate(set.Value)
	if err != nil {
		return fmt.Errorf("set %s: %w", set.Name, err)
	}

	e.vars[set.Name] = value
	e.logger.Info("Set variable", "name", set.Name, "value", value)

	return nil
}

// media gathers every media item on the current page once, then filters and
// downloads per block. A block's kind labels its log line but does not
// filter, and a block with no filters matches everything.
//
// Downloads are fail fast: the first failure aborts the run.
func (e *Engine) media(ctx context.Context, media syntax.Media) error {
	if e.page == nil {
		return fmt.Errorf("media: %w", ErrNoPage)
	}

	items, err := e.extractor.AllMedia(e.page.html, e.page.url)
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}

	for _, block := range media.Blocks {
		matched := filter(items, block.Filters)
		e.logger.Info("Found media items", "kind", block.Kind, "count", len(matched))

		if block.SavePath != "" {
			// Block save paths are recorded but not yet wired into
			// destination resolution, downloads go to the configured
			// destination
			e.logger.Info("Noted save path", "path", block.SavePath, "destination", e.dest)
		}

		for _, item := range matched {
			e.logger.Info("Downloading", "url", item.URL, "to", e.dest)
			if err := e.downloader.Save(ctx, item, e.dest); err != nil {
				return fmt.Errorf("media: %w", err)
			}
			e.logger.Debug("Downloaded", "file", item.Filename())
		}
	}

	return nil
}

// save records the declared save target. Persisting page content is not yet
// implemented so the record is the only effect.
func (e *Engine) save(save syntax.Save) error {
	e.logger.Info("Saving to", "path", save.Path)
	return nil
}

// wait pauses the run, returning early if ctx is cancelled.
func (e *Engine) wait(ctx context.Context, wait syntax.Wait) error {
	e.logger.Info("Waiting", "seconds", wait.Seconds)

	timer := time.NewTimer(time.Duration(wait.Seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	e.logger.Debug("Wait complete")
	return nil
}

// evaluate resolves a value expression against the current selection. With
// no selection in scope every expression evaluates to the empty string.
func (e *Engine) evaluate(value syntax.ValueExpr) (string, error) {
	switch value := value.(type) {
	case syntax.Text:
		return e.selectionText()
	case syntax.Attribute:
		return e.selectionAttribute(value.Name)
	case syntax.Split:
		text, err := e.selectionText()
		if err != nil {
			return "", err
		}
		return split(text, value.Delimiter, value.Index), nil
	default:
		return "", fmt.Errorf("unhandled value expression: %T", value)
	}
}

// selectionText returns the text content of the first element the selection
// matches, or the empty string if there is no selection or no match.
func (e *Engine) selectionText() (string, error) {
	if e.selection == nil {
		return "", nil
	}

	texts, err := e.extractor.Text(e.selection.html, e.selection.selector)
	if err != nil {
		return "", err
	}

	if len(texts) == 0 {
		return "", nil
	}

	return texts[0], nil
}

// selectionAttribute returns the named attribute of the first element the
// selection matches, or the empty string if there is no selection or no
// match.
func (e *Engine) selectionAttribute(name string) (string, error) {
	if e.selection == nil {
		return "", nil
	}

	values, err := e.extractor.Attribute(e.selection.html, e.selection.selector, name)
	if err != nil {
		return "", err
	}

	if len(values) == 0 {
		return "", nil
	}

	return values[0], nil
}

// resolve joins a raw href against the current page's URL, producing the
// absolute URL to follow.
func (e *Engine) resolve(href string) (string, error) {
	base, err := url.Parse(e.page.url)
	if err != nil {
		return "", fmt.Errorf("%w: %s", scrape.ErrInvalidURL, e.page.url)
	}

	target, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %s", scrape.ErrInvalidURL, href)
	}

	return base.ResolveReference(target).String(), nil
}

// split cuts text around delimiter and returns the part at index. Negative
// indices count back from the end. An index out of range either way returns
// the empty string.
func split(text, delimiter string, index int) string {
	parts := strings.Split(text, delimiter)
	if index < 0 {
		index += len(parts)
	}

	if index < 0 || index >= len(parts) {
		return ""
	}

	return parts[index]
}

// filter returns the items that pass every one of filters.
func filter(items []scrape.MediaItem, filters []syntax.MediaFilter) []scrape.MediaItem {
	var matched []scrape.MediaItem
	for _, item := range items {
		if matches(item, filters) {
			matched = append(matched, item)
		}
	}

	return matched
}

// matches reports whether item passes every filter in filters, so an empty
// filter list matches everything.
func matches(item scrape.MediaItem, filters []syntax.MediaFilter) bool {
	for _, filter := range filters {
		switch filter := filter.(type) {
		case syntax.Where:
			if !matchesWhere(item, filter) {
				return false
			}
		case syntax.Extensions:
			if !matchesExtensions(item, filter) {
				return false
			}
		}
	}

	return true
}

// matchesWhere applies a single where clause to item. Only the src field is
// meaningful, a where on any other field matches everything.
func matchesWhere(item scrape.MediaItem, where syntax.Where) bool {
	if where.Field != "src" {
		return true
	}

	switch where.Op {
	case syntax.Contains:
		return strings.Contains(item.URL, where.Value)
	case syntax.Equals:
		return item.URL == where.Value
	case syntax.NotEquals:
		return item.URL != where.Value
	default:
		return true
	}
}

// matchesExtensions reports whether the item's URL ends in one of the listed
// extensions. The test is a literal, case sensitive suffix match.
func matchesExtensions(item scrape.MediaItem, extensions syntax.Extensions) bool {
	for _, extension := range extensions.List {
		if strings.HasSuffix(item.URL, extension) {
			return true
		}
	}

	return false
}
