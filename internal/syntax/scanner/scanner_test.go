package scanner_test

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"go.followtheprocess.codes/msl/internal/syntax"
	"go.followtheprocess.codes/msl/internal/syntax/scanner"
	"go.followtheprocess.codes/msl/internal/syntax/token"
	"go.followtheprocess.codes/test"
	"go.uber.org/goleak"
)

func TestScan(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name string        // Name of the test case
		src  string        // Source text to scan
		want []token.Token // Expected tokens
	}{
		{
			name: "empty",
			src:  "",
			want: []token.Token{
				{Kind: token.EOF, Start: 0, End: 0},
			},
		},
		{
			name: "whitespace only",
			src:  "  \t\n\n  ",
			want: []token.Token{
				{Kind: token.EOF, Start: 7, End: 7},
			},
		},
		{
			name: "open",
			src:  `open "https://example.com"`,
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.String, Start: 6, End: 25},
				{Kind: token.EOF, Start: 26, End: 26},
			},
		},
		{
			name: "keywords",
			src:  "open click set media save wait to where extensions image video audio text attr split",
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.Click, Start: 5, End: 10},
				{Kind: token.Set, Start: 11, End: 14},
				{Kind: token.Media, Start: 15, End: 20},
				{Kind: token.Save, Start: 21, End: 25},
				{Kind: token.Wait, Start: 26, End: 30},
				{Kind: token.To, Start: 31, End: 33},
				{Kind: token.Where, Start: 34, End: 39},
				{Kind: token.Extensions, Start: 40, End: 50},
				{Kind: token.Image, Start: 51, End: 56},
				{Kind: token.Video, Start: 57, End: 62},
				{Kind: token.Audio, Start: 63, End: 68},
				{Kind: token.Text, Start: 69, End: 73},
				{Kind: token.Attr, Start: 74, End: 78},
				{Kind: token.Split, Start: 79, End: 84},
				{Kind: token.EOF, Start: 84, End: 84},
			},
		},
		{
			name: "set attr",
			src:  `set link = attr("href")`,
			want: []token.Token{
				{Kind: token.Set, Start: 0, End: 3},
				{Kind: token.Ident, Start: 4, End: 8},
				{Kind: token.Eq, Start: 9, End: 10},
				{Kind: token.Attr, Start: 11, End: 15},
				{Kind: token.LParen, Start: 15, End: 16},
				{Kind: token.String, Start: 17, End: 21},
				{Kind: token.RParen, Start: 22, End: 23},
				{Kind: token.EOF, Start: 23, End: 23},
			},
		},
		{
			name: "set split",
			src:  `set part = split("a").split("-")[-1]`,
			want: []token.Token{
				{Kind: token.Set, Start: 0, End: 3},
				{Kind: token.Ident, Start: 4, End: 8},
				{Kind: token.Eq, Start: 9, End: 10},
				{Kind: token.Split, Start: 11, End: 16},
				{Kind: token.LParen, Start: 16, End: 17},
				{Kind: token.String, Start: 18, End: 19},
				{Kind: token.RParen, Start: 20, End: 21},
				{Kind: token.Dot, Start: 21, End: 22},
				{Kind: token.Split, Start: 22, End: 27},
				{Kind: token.LParen, Start: 27, End: 28},
				{Kind: token.String, Start: 29, End: 30},
				{Kind: token.RParen, Start: 31, End: 32},
				{Kind: token.LBracket, Start: 32, End: 33},
				{Kind: token.Number, Start: 33, End: 35},
				{Kind: token.RBracket, Start: 35, End: 36},
				{Kind: token.EOF, Start: 36, End: 36},
			},
		},
		{
			name: "where operators",
			src:  "where src ~ \"cdn\"\nwhere src != \"x\"\nwhere src = \"y\"",
			want: []token.Token{
				{Kind: token.Where, Start: 0, End: 5},
				{Kind: token.Ident, Start: 6, End: 9},
				{Kind: token.Tilde, Start: 10, End: 11},
				{Kind: token.String, Start: 13, End: 16},
				{Kind: token.Where, Start: 18, End: 23},
				{Kind: token.Ident, Start: 24, End: 27},
				{Kind: token.BangEq, Start: 28, End: 30},
				{Kind: token.String, Start: 32, End: 33},
				{Kind: token.Where, Start: 35, End: 40},
				{Kind: token.Ident, Start: 41, End: 44},
				{Kind: token.Eq, Start: 45, End: 46},
				{Kind: token.String, Start: 48, End: 49},
				{Kind: token.EOF, Start: 50, End: 50},
			},
		},
		{
			name: "extensions",
			src:  "extensions jpg, png, 3gp",
			want: []token.Token{
				{Kind: token.Extensions, Start: 0, End: 10},
				{Kind: token.Ident, Start: 11, End: 14},
				{Kind: token.Comma, Start: 14, End: 15},
				{Kind: token.Ident, Start: 16, End: 19},
				{Kind: token.Comma, Start: 19, End: 20},
				{Kind: token.Ident, Start: 21, End: 24},
				{Kind: token.EOF, Start: 24, End: 24},
			},
		},
		{
			name: "wait",
			src:  "wait 10",
			want: []token.Token{
				{Kind: token.Wait, Start: 0, End: 4},
				{Kind: token.Number, Start: 5, End: 7},
				{Kind: token.EOF, Start: 7, End: 7},
			},
		},
		{
			name: "click nested",
			src:  "click \"a\"\n  wait 1",
			want: []token.Token{
				{Kind: token.Click, Start: 0, End: 5},
				{Kind: token.String, Start: 7, End: 8},
				{Kind: token.Wait, Start: 12, End: 16},
				{Kind: token.Number, Start: 17, End: 18},
				{Kind: token.EOF, Start: 18, End: 18},
			},
		},
		{
			name: "empty string literal",
			src:  `open ""`,
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.String, Start: 6, End: 6},
				{Kind: token.EOF, Start: 7, End: 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := scanner.New(tt.name, []byte(tt.src), testFailHandler(t))

			var tokens []token.Token
			for {
				tok := scanner.Scan()
				tokens = append(tokens, tok)
				if tok.Kind == token.EOF {
					break
				}
			}

			test.EqualFunc(t, tokens, tt.want, slices.Equal, test.Context("token stream mismatch"))
		})
	}
}

func TestScanErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name     string        // Name of the test case
		src      string        // Source text to scan
		want     []token.Token // Expected tokens
		wantErrs string        // Expected collected error output
	}{
		{
			name: "unterminated string",
			src:  `open "oops`,
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.Error, Start: 6, End: 10},
				{Kind: token.EOF, Start: 10, End: 10},
			},
			wantErrs: "unterminated string:1:7-11: unterminated string\n",
		},
		{
			name: "unexpected character",
			src:  "open $",
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.Error, Start: 5, End: 5},
				{Kind: token.EOF, Start: 5, End: 5},
			},
			wantErrs: "unexpected character:1:6: unexpected token \"$\"\n",
		},
		{
			name: "bang without equals",
			src:  "open !x",
			want: []token.Token{
				{Kind: token.Open, Start: 0, End: 4},
				{Kind: token.Error, Start: 5, End: 6},
				{Kind: token.EOF, Start: 6, End: 6},
			},
			wantErrs: "bang without equals:1:6-7: unexpected token \"!\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &errorCollector{}
			scanner := scanner.New(tt.name, []byte(tt.src), collector.handler())

			var tokens []token.Token
			for {
				tok := scanner.Scan()
				tokens = append(tokens, tok)
				if tok.Kind == token.EOF {
					break
				}
			}

			test.EqualFunc(t, tokens, tt.want, slices.Equal, test.Context("token stream mismatch"))
			test.Equal(t, collector.String(), tt.wantErrs, test.Context("error output mismatch"))
		})
	}
}

// testFailHandler returns a [syntax.ErrorHandler] that handles scanning errors by failing
// the enclosing test.
func testFailHandler(tb testing.TB) syntax.ErrorHandler {
	tb.Helper()

	return func(pos syntax.Position, msg string) {
		tb.Fatalf("%s: %s", pos, msg)
	}
}

type errorCollector struct {
	errs []string
	mu   sync.Mutex
}

func (e *errorCollector) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s strings.Builder
	for _, err := range e.errs {
		s.WriteString(err)
	}

	return s.String()
}

func (e *errorCollector) handler() syntax.ErrorHandler {
	return func(pos syntax.Position, msg string) {
		// The scanner runs in its own goroutine and also makes use of the handler
		e.mu.Lock()
		defer e.mu.Unlock()

		e.errs = append(e.errs, fmt.Sprintf("%s: %s\n", pos, msg))
	}
}
