package syntax

import (
	"fmt"
	"strings"
)

// indent is the literal indentation of one level of nesting in an MSL script.
const indent = "  "

// Script is a single MSL script as parsed.
//
// Commands are held in source order, execution walks them top to bottom.
type Script struct {
	Name     string    // Name of the script file
	Commands []Command // The commands, in source order
}

// String renders the script in canonical source form.
//
// Parsing the returned text yields an equivalent [Script].
func (s Script) String() string {
	if len(s.Commands) == 0 {
		return ""
	}
	sb := &strings.Builder{}
	for i, command := range s.Commands {
		if i > 0 {
			sb.WriteByte('\n')
		}
		command.render(sb, 0)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Command is a single instruction in an MSL script.
//
// It is a sealed interface, the only implementations are [Open], [Click],
// [Set], [Media], [Save] and [Wait].
type Command interface {
	fmt.Stringer

	// render writes the command in canonical source form at the
	// given nesting depth.
	render(sb *strings.Builder, depth int)
}

// Open navigates the session to a URL.
type Open struct {
	URL string // The URL to open
}

func (o Open) String() string { return render(o) }

func (o Open) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	fmt.Fprintf(sb, "open %s", quote(o.URL))
}

// Click follows the first link matching Selector on the current page, then
// executes Body against the newly loaded page.
//
// Body may itself contain further Click commands so the structure is a
// recursive tree of unbounded depth.
type Click struct {
	Selector string    // CSS selector matching the link(s) to follow
	Body     []Command // Commands run against the followed page, in source order
}

func (c Click) String() string { return render(c) }

func (c Click) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	fmt.Fprintf(sb, "click %s", quote(c.Selector))
	for _, command := range c.Body {
		sb.WriteByte('\n')
		command.render(sb, depth+1)
	}
}

// Set binds the result of evaluating Value to a named session variable,
// overwriting any previous binding.
type Set struct {
	Value ValueExpr // Recipe for extracting the value
	Name  string    // Name of the variable
}

func (s Set) String() string { return render(s) }

func (s Set) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	fmt.Fprintf(sb, "set %s = %s", s.Name, s.Value)
}

// Media extracts media items from the current page, filters them block by
// block, and downloads everything that survives.
type Media struct {
	Blocks []MediaBlock // Filter blocks, in source order
}

func (m Media) String() string { return render(m) }

func (m Media) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	sb.WriteString("media")
	for _, block := range m.Blocks {
		block.render(sb, depth+1)
	}
}

// Save declares a save target for page content.
type Save struct {
	Path string // Destination path
}

func (s Save) String() string { return render(s) }

func (s Save) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	fmt.Fprintf(sb, "save to %s", quote(s.Path))
}

// Wait pauses execution for a number of seconds.
type Wait struct {
	Seconds uint64 // How long to wait
}

func (w Wait) String() string { return render(w) }

func (w Wait) render(sb *strings.Builder, depth int) {
	writeIndent(sb, depth)
	fmt.Fprintf(sb, "wait %d", w.Seconds)
}

// ValueExpr is a recipe for extracting a string value from the current
// selection, evaluated by the interpreter when a set command runs.
//
// It is a sealed interface, the only implementations are [Text], [Attribute]
// and [Split].
type ValueExpr interface {
	fmt.Stringer

	valueExpr()
}

// Text extracts the text content of the current selection.
type Text struct{}

func (t Text) String() string { return "text" }

func (t Text) valueExpr() {}

// Attribute extracts a named attribute from the current selection.
type Attribute struct {
	Name string // Name of the attribute, e.g. "href"
}

func (a Attribute) String() string { return fmt.Sprintf("attr(%s)", quote(a.Name)) }

func (a Attribute) valueExpr() {}

// Split extracts the text content of the current selection, splits it on
// Delimiter, and selects one piece.
//
// A negative Index counts from the end of the pieces, so -1 is the last one.
type Split struct {
	Delimiter string // What to split the text on
	Index     int    // Which piece to keep
}

func (s Split) String() string { return fmt.Sprintf("split(%s)[%d]", quote(s.Delimiter), s.Index) }

func (s Split) valueExpr() {}

// MediaKind is the type of media a [MediaBlock] names.
type MediaKind int

//go:generate stringer -type MediaKind -linecomment
const (
	Image MediaKind = iota // image
	Video                  // video
	Audio                  // audio
)

// MediaBlock is one typed group of filters within a media command.
//
// The kind labels the block, the filters are applied as a conjunction to
// every media item found on the current page.
type MediaBlock struct {
	SavePath string        // Destination from a trailing "save to", empty if absent
	Filters  []MediaFilter // Filters, all of which an item must pass
	Kind     MediaKind     // What the block calls the media it matches
}

func (b MediaBlock) render(sb *strings.Builder, depth int) {
	sb.WriteByte('\n')
	writeIndent(sb, depth)
	sb.WriteString(b.Kind.String())
	for _, filter := range b.Filters {
		sb.WriteByte('\n')
		writeIndent(sb, depth+1)
		sb.WriteString(filter.String())
	}
	if b.SavePath != "" {
		sb.WriteByte('\n')
		writeIndent(sb, depth+1)
		fmt.Fprintf(sb, "save to %s", quote(b.SavePath))
	}
}

// MediaFilter is a single predicate over a media item.
//
// It is a sealed interface, the only implementations are [Where] and
// [Extensions].
type MediaFilter interface {
	fmt.Stringer

	mediaFilter()
}

// Operator is a comparison operator in a where filter.
type Operator int

//go:generate stringer -type Operator -linecomment
const (
	Contains  Operator = iota // ~
	Equals                    // =
	NotEquals                 // !=
)

// Where tests a named field of a media item against a literal value.
type Where struct {
	Field string   // Field under test, only "src" is meaningful
	Value string   // Literal to compare against
	Op    Operator // How to compare
}

func (w Where) String() string { return fmt.Sprintf("where %s %s %s", w.Field, w.Op, quote(w.Value)) }

func (w Where) mediaFilter() {}

// Extensions passes media items whose URL ends in one of the listed
// extensions. Matching is literal and case sensitive.
type Extensions struct {
	List []string // Extensions without the leading dot, e.g. "jpg"
}

func (e Extensions) String() string { return "extensions " + strings.Join(e.List, ", ") }

func (e Extensions) mediaFilter() {}

// render returns the canonical source form of a command at depth 0.
func render(command Command) string {
	sb := &strings.Builder{}
	command.render(sb, 0)
	return sb.String()
}

// quote wraps s in double quotes with no escaping, string literals in the
// language have no escape sequences so the raw text is always valid source.
func quote(s string) string {
	return `"` + s + `"`
}

func writeIndent(sb *strings.Builder, depth int) {
	for range depth {
		sb.WriteString(indent)
	}
}
