// Package lexer converts pipeline script text into tokens.
//
// The token sequence is produced lazily by Next and can be restarted with
// Reset. Whitespace and '#' comments separate tokens and are never emitted.
package lexer

import "fmt"

// Kind represents the kind of token.
type Kind int

const (
	EOF Kind = iota
	Keyword
	Ident
	Number
	String
	Operator // = + - * /
	Punct    // ( ) { } [ ] ,
)

var kindNames = [...]string{
	EOF:      "end of input",
	Keyword:  "keyword",
	Ident:    "identifier",
	Number:   "number",
	String:   "string",
	Operator: "operator",
	Punct:    "punctuation",
}

// String returns a readable kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// String returns "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a lexical token.
//
// For String tokens Text is the unquoted, unescaped value; for every other
// kind it is the source spelling.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos
}

// String describes the token for error messages.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case String:
		return fmt.Sprintf("string %q", t.Text)
	default:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	}
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// keywords start statements.
var keywords = map[string]bool{
	"load":       true,
	"create":     true,
	"train":      true,
	"evaluate":   true,
	"save":       true,
	"visualize":  true,
	"split":      true,
	"preprocess": true,
	"augment":    true,
	"print":      true,
	"list":       true,
	"clear":      true,
	"exit":       true,
	"help":       true,
}

// IsKeyword reports whether word is a statement keyword.
func IsKeyword(word string) bool {
	return keywords[word]
}

// LexError reports a character that cannot start a token.
type LexError struct {
	Char rune
	Pos  Pos
	Msg  string // Overrides the default "unexpected character" message
}

// Error implements the error interface.
func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("LexError at %s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("LexError at %s: unexpected character %q", e.Pos, e.Char)
}
