// Package parser implements the MSL script parser.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"go.followtheprocess.codes/msl/internal/syntax"
	"go.followtheprocess.codes/msl/internal/syntax/scanner"
	"go.followtheprocess.codes/msl/internal/syntax/token"
)

// ErrParse is a generic parsing error, details on the error are passed
// to the parsers [syntax.ErrorHandler] at the moment it occurs.
var ErrParse = errors.New("parse error")

// indentWidth is the number of whitespace units that nest a command one
// level deeper, the language uses a fixed double space convention.
const indentWidth = 2

// Parser is the MSL script parser.
type Parser struct {
	handler   syntax.ErrorHandler // The error handler
	scanner   *scanner.Scanner    // Scanner to generate tokens
	name      string              // Name of the file being parsed
	src       []byte              // Raw source text
	current   token.Token         // Current token under inspection
	next      token.Token         // Next token in the stream
	hadErrors bool                // Whether we encountered parse errors
}

// New returns a new [Parser].
func New(name string, r io.Reader, handler syntax.ErrorHandler) (*Parser, error) {
	// MSL scripts are smol, it's okay to read the whole thing
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read from input: %w", err)
	}

	p := &Parser{
		handler: handler,
		name:    name,
		src:     src,
		scanner: scanner.New(name, src, handler),
	}

	// Read 2 tokens so current and next are set
	p.advance()
	p.advance()

	return p, nil
}

// Parse parses the script to completion returning a [syntax.Script] and any
// parsing errors encountered.
//
// The returned error will simply signify whether or not there were parse errors,
// the error handler passed to [New] should be preferred.
func (p *Parser) Parse() (syntax.Script, error) {
	script := syntax.Script{
		Name: p.name,
	}

	script.Commands = p.parseCommands(0)

	// Always drain the scanner so its goroutine exits, even if we bailed
	// out on an error halfway through the token stream
	p.drain()

	if p.hadErrors {
		return syntax.Script{}, ErrParse
	}

	return script, nil
}

// advance advances the parser by a single token.
func (p *Parser) advance() {
	p.current = p.next
	p.next = p.scanner.Scan()
}

// drain consumes the remainder of the token stream.
func (p *Parser) drain() {
	for p.current.Kind != token.EOF {
		p.advance()
	}
}

// expect asserts that the next token is one of the given kinds, emitting a syntax
// error and returning false if not.
//
// The parser is advanced only if the next token is of one of these kinds such that
// after it returns true, p.current will be one of the kinds.
func (p *Parser) expect(kinds ...token.Kind) bool {
	switch len(kinds) {
	case 0:
		return true
	case 1:
		if p.next.Kind != kinds[0] {
			p.errorf("expected %s, got %s", kinds[0], p.next.Kind)
			return false
		}
	default:
		if !slices.Contains(kinds, p.next.Kind) {
			p.errorf("expected one of %v, got %s", kinds, p.next.Kind)
			return false
		}
	}

	p.advance()
	return true
}

// expectIdent is [Parser.expect] for identifiers, also allowing keywords to
// double as plain identifiers e.g. a variable or field named "text".
func (p *Parser) expectIdent() bool {
	if p.next.Kind != token.Ident && !token.IsKeyword(p.next.Kind) {
		p.errorf("expected %s, got %s", token.Ident, p.next.Kind)
		return false
	}

	p.advance()
	return true
}

// position returns the parser's current position in the input as a [syntax.Position].
//
// The position is calculated based on the start offset of the current token.
func (p *Parser) position() syntax.Position {
	line := 1              // Line counter
	lastNewLineOffset := 0 // The byte offset of the (end of the) last newline seen
	for index, byt := range p.src {
		if index >= p.current.Start {
			break
		}

		if byt == '\n' {
			lastNewLineOffset = index + 1 // +1 to account for len("\n")
			line++
		}
	}

	// If the next token is EOF, we use the end of the current token as the syntax
	// error is likely to be unexpected EOF so we want to point to the end of the
	// current token as in "something should have gone here"
	start := p.current.Start
	if p.next.Kind == token.EOF {
		start = p.current.End
	}
	end := p.current.End

	// The column is therefore the number of bytes between the end of the last newline
	// and the current position, +1 because editors columns start at 1. Applying this
	// correction here means you can click a syntax error in the terminal and be
	// taken to a precise location in an editor which is probably what we want to happen
	startCol := 1 + start - lastNewLineOffset
	endCol := 1 + end - lastNewLineOffset

	return syntax.Position{
		Name:     p.name,
		Line:     line,
		StartCol: startCol,
		EndCol:   endCol,
	}
}

// error calculates the current position and calls the installed error handler
// with the correct information.
func (p *Parser) error(msg string) {
	p.hadErrors = true

	if p.handler == nil {
		// I guess ignore?
		return
	}

	p.handler(p.position(), msg)
}

// errorf calls error with a formatted message.
func (p *Parser) errorf(format string, a ...any) {
	p.error(fmt.Sprintf(format, a...))
}

// text returns the chunk of source text described by the p.current token.
func (p *Parser) text() string {
	return string(p.src[p.current.Start:p.current.End])
}

// remainder returns the unconsumed source text, from the start of the current
// token to the end of the input.
func (p *Parser) remainder() string {
	if p.current.Start >= len(p.src) {
		return ""
	}
	return string(p.src[p.current.Start:])
}

// indent returns the indentation of the token's line in whitespace units
// (spaces and tabs each count as one unit), and whether the token is the
// first thing on its line.
func (p *Parser) indent(tok token.Token) (units int, lineInitial bool) {
	lineStart := 0
	for i := tok.Start - 1; i >= 0; i-- {
		if p.src[i] == '\n' {
			lineStart = i + 1
			break
		}
	}

	for i := lineStart; i < tok.Start; i++ {
		switch p.src[i] {
		case ' ', '\t':
			units++
		default:
			return units, false
		}
	}

	return units, true
}

// sameLine reports whether two tokens appear on the same source line. The
// first token must not come after the second in the stream.
func (p *Parser) sameLine(first, second token.Token) bool {
	return bytes.IndexByte(p.src[first.End:second.Start], '\n') == -1
}

// parseCommands parses a run of commands nested at the given depth, stopping
// at EOF, at the first syntax error, or on a dedent which hands control back
// to the enclosing click body.
//
// Commands must start their own line, indented by exactly two whitespace
// units per level of nesting.
func (p *Parser) parseCommands(depth int) []syntax.Command {
	var commands []syntax.Command

	for p.current.Kind != token.EOF && !p.hadErrors {
		units, initial := p.indent(p.current)
		if !initial {
			p.errorf("unparsed content: %q", p.remainder())
			return nil
		}

		if units < indentWidth*depth {
			// Dedent, the enclosing click body is done
			return commands
		}

		if units > indentWidth*depth {
			p.errorf("unexpected indentation: expected %d whitespace units, got %d", indentWidth*depth, units)
			return nil
		}

		command, ok := p.parseCommand(depth)
		if !ok {
			return nil
		}

		commands = append(commands, command)
	}

	return commands
}

// parseCommand parses a single command, dispatching on the keyword that
// starts it. The command keyword is p.current when called and after it
// returns p.current is the first token following the command.
//
// Dispatch commits to the first keyword that matches, there is no
// backtracking once a keyword has been consumed.
func (p *Parser) parseCommand(depth int) (syntax.Command, bool) {
	switch p.current.Kind {
	case token.Open:
		return p.parseOpen()
	case token.Click:
		return p.parseClick(depth)
	case token.Set:
		return p.parseSet()
	case token.Media:
		return p.parseMedia()
	case token.Save:
		return p.parseSave()
	case token.Wait:
		return p.parseWait()
	default:
		p.errorf("unparsed content: %q", p.remainder())
		return nil, false
	}
}

// parseOpen parses an open command e.g. `open "https://example.com"`.
func (p *Parser) parseOpen() (syntax.Command, bool) {
	if !p.expect(token.String) {
		return nil, false
	}

	open := syntax.Open{URL: p.text()}
	p.advance()
	return open, true
}

// parseClick parses a click command and its (possibly empty) body of
// commands nested one level deeper e.g.
//
//	click "a.next"
//	  wait 1
func (p *Parser) parseClick(depth int) (syntax.Command, bool) {
	if !p.expect(token.String) {
		return nil, false
	}

	click := syntax.Click{Selector: p.text()}
	p.advance()

	click.Body = p.parseCommands(depth + 1)
	if p.hadErrors {
		return nil, false
	}

	return click, true
}

// parseSet parses a set command e.g. `set title = text`.
func (p *Parser) parseSet() (syntax.Command, bool) {
	if !p.expectIdent() {
		return nil, false
	}

	set := syntax.Set{Name: p.text()}

	if !p.expect(token.Eq) {
		return nil, false
	}

	value, ok := p.parseValueExpr()
	if !ok {
		return nil, false
	}

	set.Value = value
	return set, true
}

// parseValueExpr parses the right hand side of a set command, one of
// `text`, `attr("name")` or `split("a").split("b")[i]`.
func (p *Parser) parseValueExpr() (syntax.ValueExpr, bool) {
	switch p.next.Kind {
	case token.Text:
		p.advance()
		p.advance()
		return syntax.Text{}, true
	case token.Attr:
		p.advance()
		if !p.expect(token.LParen) {
			return nil, false
		}
		if !p.expect(token.String) {
			return nil, false
		}
		attribute := syntax.Attribute{Name: p.text()}
		if !p.expect(token.RParen) {
			return nil, false
		}
		p.advance()
		return attribute, true
	case token.Split:
		return p.parseSplit()
	default:
		p.errorf(
			"expected one of %v, got %s",
			[]token.Kind{token.Text, token.Attr, token.Split},
			p.next.Kind,
		)
		return nil, false
	}
}

// parseSplit parses a split value expression e.g. `split("a").split("-")[2]`.
//
// Chained calls are parsed left to right and the last delimiter wins, so for
// the canonical two call chain the second delimiter is the one kept. The
// index is the raw source text between the brackets, parsed as a signed
// integer with a fallback of -1 if it does not parse.
func (p *Parser) parseSplit() (syntax.ValueExpr, bool) {
	split := syntax.Split{}

	for {
		if !p.expect(token.Split) {
			return nil, false
		}
		if !p.expect(token.LParen) {
			return nil, false
		}
		if !p.expect(token.String) {
			return nil, false
		}
		split.Delimiter = p.text()
		if !p.expect(token.RParen) {
			return nil, false
		}

		if p.next.Kind != token.Dot {
			break
		}
		p.advance() // Consume the '.'
	}

	if !p.expect(token.LBracket) {
		return nil, false
	}
	openBracket := p.current

	// Consume up to the closing bracket, whatever was in between is the index
	for p.next.Kind != token.RBracket && p.next.Kind != token.EOF {
		p.advance()
	}

	if !p.expect(token.RBracket) {
		return nil, false
	}

	raw := strings.TrimSpace(string(p.src[openBracket.End:p.current.Start]))
	index, err := strconv.Atoi(raw)
	if err != nil {
		index = -1
	}
	split.Index = index

	p.advance()
	return split, true
}

// parseMedia parses a media command and its run of media blocks e.g.
//
//	media
//	  image
//	    where src ~ "cdn.example.com"
//	    extensions jpg, png
//
// Block members are insensitive to how far they are indented but must each
// start their own line. A `save to` line indented deeper than the media
// keyword belongs to the current block, one at or left of it is a save
// command for the enclosing scope.
func (p *Parser) parseMedia() (syntax.Command, bool) {
	mediaUnits, _ := p.indent(p.current)
	media := syntax.Media{}

	p.advance() // Move past the media keyword

	for token.IsMediaType(p.current.Kind) {
		block, ok := p.parseMediaBlock(mediaUnits)
		if !ok {
			return nil, false
		}
		media.Blocks = append(media.Blocks, block)
	}

	return media, true
}

// parseMediaBlock parses a single media block: its type, any filters, and an
// optional trailing save path.
func (p *Parser) parseMediaBlock(mediaUnits int) (syntax.MediaBlock, bool) {
	if _, initial := p.indent(p.current); !initial {
		p.errorf("%s must start its own line", p.current.Kind)
		return syntax.MediaBlock{}, false
	}

	block := syntax.MediaBlock{Kind: mediaKind(p.current.Kind)}
	p.advance() // Move past the media type

	for !p.hadErrors {
		switch p.current.Kind {
		case token.Where:
			if _, initial := p.indent(p.current); !initial {
				p.errorf("%s must start its own line", p.current.Kind)
				return syntax.MediaBlock{}, false
			}
			filter, ok := p.parseWhere()
			if !ok {
				return syntax.MediaBlock{}, false
			}
			block.Filters = append(block.Filters, filter)
		case token.Extensions:
			if _, initial := p.indent(p.current); !initial {
				p.errorf("%s must start its own line", p.current.Kind)
				return syntax.MediaBlock{}, false
			}
			filter, ok := p.parseExtensions()
			if !ok {
				return syntax.MediaBlock{}, false
			}
			block.Filters = append(block.Filters, filter)
		case token.Save:
			units, initial := p.indent(p.current)
			if !initial || units <= mediaUnits {
				// A save command for the enclosing scope, not this block
				return block, true
			}
			if !p.expect(token.To) {
				return syntax.MediaBlock{}, false
			}
			if !p.expect(token.String) {
				return syntax.MediaBlock{}, false
			}
			block.SavePath = p.text()
			p.advance()
			return block, true
		default:
			// Either the next block or the end of the media command, the
			// caller figures out which
			return block, true
		}
	}

	return syntax.MediaBlock{}, false
}

// parseWhere parses a where filter e.g. `where src ~ "cdn.example.com"`.
func (p *Parser) parseWhere() (syntax.MediaFilter, bool) {
	if !p.expectIdent() {
		return nil, false
	}

	where := syntax.Where{Field: p.text()}

	if !p.expect(token.Tilde, token.Eq, token.BangEq) {
		return nil, false
	}

	switch p.current.Kind {
	case token.Tilde:
		where.Op = syntax.Contains
	case token.Eq:
		where.Op = syntax.Equals
	case token.BangEq:
		where.Op = syntax.NotEquals
	}

	if !p.expect(token.String) {
		return nil, false
	}

	where.Value = p.text()
	p.advance()
	return where, true
}

// parseExtensions parses an extensions filter e.g. `extensions jpg, png`.
//
// The whole list must fit on the extensions line.
func (p *Parser) parseExtensions() (syntax.MediaFilter, bool) {
	extensions := syntax.Extensions{}
	keyword := p.current

	for {
		if p.next.Kind != token.Ident && !token.IsKeyword(p.next.Kind) {
			p.errorf("expected %s, got %s", token.Ident, p.next.Kind)
			return nil, false
		}
		if !p.sameLine(keyword, p.next) {
			p.errorf("extensions list must be on one line")
			return nil, false
		}
		p.advance()
		extensions.List = append(extensions.List, p.text())

		if p.next.Kind != token.Comma || !p.sameLine(keyword, p.next) {
			break
		}
		p.advance() // Consume the ','
	}

	p.advance()
	return extensions, true
}

// parseSave parses a save command e.g. `save to "./page.html"`.
func (p *Parser) parseSave() (syntax.Command, bool) {
	if !p.expect(token.To) {
		return nil, false
	}
	if !p.expect(token.String) {
		return nil, false
	}

	save := syntax.Save{Path: p.text()}
	p.advance()
	return save, true
}

// parseWait parses a wait command e.g. `wait 3`.
//
// The duration argument is lenient: a same line numeral that fails to parse
// means 1 second, as does a missing numeral.
func (p *Parser) parseWait() (syntax.Command, bool) {
	wait := syntax.Wait{Seconds: 1}

	if (p.next.Kind == token.Number || p.next.Kind == token.Ident) && p.sameLine(p.current, p.next) {
		p.advance()
		if seconds, err := strconv.ParseUint(p.text(), 10, 64); err == nil {
			wait.Seconds = seconds
		}
	}

	p.advance()
	return wait, true
}

// mediaKind converts a media type token to its [syntax.MediaKind]. The token
// is known to pass [token.IsMediaType].
func mediaKind(kind token.Kind) syntax.MediaKind {
	switch kind {
	case token.Video:
		return syntax.Video
	case token.Audio:
		return syntax.Audio
	default:
		return syntax.Image
	}
}
