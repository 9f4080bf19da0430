// Package token provides the set of lexical tokens for an MSL script.
package token

import "fmt"

// Kind is the kind of a token.
type Kind int

//go:generate stringer -type Kind -linecomment
const (
	EOF        Kind = iota // EOF
	Error                  // Error
	String                 // String
	Number                 // Number
	Ident                  // Ident
	Eq                     // Eq
	Tilde                  // Tilde
	BangEq                 // BangEq
	Comma                  // Comma
	Dot                    // Dot
	LParen                 // LParen
	RParen                 // RParen
	LBracket               // LBracket
	RBracket               // RBracket
	Open                   // Open
	Click                  // Click
	Set                    // Set
	Media                  // Media
	Save                   // Save
	Wait                   // Wait
	To                     // To
	Where                  // Where
	Extensions             // Extensions
	Image                  // Image
	Video                  // Video
	Audio                  // Audio
	Text                   // Text
	Attr                   // Attr
	Split                  // Split
)

// Token is a lexical token in an MSL script.
type Token struct {
	Kind  Kind // The kind of token this is
	Start int  // Byte offset from the start of the file to the start of this token
	End   int  // Byte offset from the start of the file to the end of this token
}

// String returns a string representation of a [Token].
func (t Token) String() string {
	return fmt.Sprintf("<Token::%s start=%d, end=%d>", t.Kind, t.Start, t.End)
}

// Keyword reports whether a string refers to an MSL keyword, returning its
// [Kind] and true if it is. Otherwise [Ident] and false are returned.
//
// Keywords are case sensitive so e.g. "OPEN" is an identifier, not a keyword.
func Keyword(text string) (kind Kind, ok bool) {
	switch text {
	case "open":
		return Open, true
	case "click":
		return Click, true
	case "set":
		return Set, true
	case "media":
		return Media, true
	case "save":
		return Save, true
	case "wait":
		return Wait, true
	case "to":
		return To, true
	case "where":
		return Where, true
	case "extensions":
		return Extensions, true
	case "image":
		return Image, true
	case "video":
		return Video, true
	case "audio":
		return Audio, true
	case "text":
		return Text, true
	case "attr":
		return Attr, true
	case "split":
		return Split, true
	default:
		return Ident, false
	}
}

// IsKeyword reports whether the given kind is an MSL keyword.
func IsKeyword(kind Kind) bool {
	return kind >= Open && kind <= Split
}

// IsMediaType reports whether the given kind names a type of media block.
func IsMediaType(kind Kind) bool {
	return kind == Image || kind == Video || kind == Audio
}

// IsCommand reports whether the given kind starts an MSL command.
func IsCommand(kind Kind) bool {
	return kind >= Open && kind <= Wait
}
