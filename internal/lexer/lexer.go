package lexer

import (
	"strings"
	"unicode/utf8"
)

// Lexer scans a script into tokens on demand.
type Lexer struct {
	src  string
	cur  int // current byte index
	line int // 1-based
	col  int // 1-based column of src[cur]
}

// New creates a lexer for src.
func New(src string) *Lexer {
	l := &Lexer{src: src}
	l.Reset()
	return l
}

// Reset restarts scanning from the beginning of the source.
func (l *Lexer) Reset() {
	l.cur = 0
	l.line = 1
	l.col = 1
}

// Tokenize scans all of src. The result ends with an EOF token.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else if ch < utf8.RuneSelf || utf8.RuneStart(ch) {
		l.col++
	}
	return ch
}

func (l *Lexer) pos() Pos {
	return Pos{Line: l.line, Col: l.col}
}

// skipSpace consumes whitespace and comments.
func (l *Lexer) skipSpace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '#':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// Next returns the next token. After the end of input it keeps returning
// EOF.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	start := l.pos()
	if l.isAtEnd() {
		return Token{Kind: EOF, Pos: start}, nil
	}

	ch := l.peek()
	switch {
	case isAlpha(ch):
		begin := l.cur
		for !l.isAtEnd() && isAlphaNum(l.peek()) {
			l.advance()
		}
		word := l.src[begin:l.cur]
		if IsKeyword(word) {
			return Token{Kind: Keyword, Text: word, Pos: start}, nil
		}
		return Token{Kind: Ident, Text: word, Pos: start}, nil

	case isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))):
		return l.scanNumber(start), nil

	case ch == '"' || ch == '\'':
		return l.scanString(start)

	case strings.IndexByte("=+-*/", ch) >= 0:
		l.advance()
		return Token{Kind: Operator, Text: string(ch), Pos: start}, nil

	case strings.IndexByte("(){}[],", ch) >= 0:
		l.advance()
		return Token{Kind: Punct, Text: string(ch), Pos: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.cur:])
	return Token{}, &LexError{Char: r, Pos: start}
}

// scanNumber scans digits [. digits] [(e|E) [+-] digits].
func (l *Lexer) scanNumber(start Pos) Token {
	begin := l.cur
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekN(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		n := 1
		if s := l.peekN(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekN(n)) {
			for range n {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return Token{Kind: Number, Text: l.src[begin:l.cur], Pos: start}
}

// scanString scans a single- or double-quoted string with \" \' \\ \n \t
// escapes.
func (l *Lexer) scanString(start Pos) (Token, error) {
	quote := l.advance()
	var b strings.Builder
	for !l.isAtEnd() {
		ch := l.advance()
		switch ch {
		case quote:
			return Token{Kind: String, Text: b.String(), Pos: start}, nil
		case '\n':
			return Token{}, &LexError{Char: rune(quote), Pos: start, Msg: "unterminated string"}
		case '\\':
			if l.isAtEnd() {
				return Token{}, &LexError{Char: rune(quote), Pos: start, Msg: "unterminated string"}
			}
			escPos := l.pos()
			switch esc := l.advance(); esc {
			case '"', '\'', '\\':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				return Token{}, &LexError{Char: rune(esc), Pos: escPos, Msg: "unknown escape sequence \\" + string(rune(esc))}
			}
		default:
			b.WriteByte(ch)
		}
	}
	return Token{}, &LexError{Char: rune(quote), Pos: start, Msg: "unterminated string"}
}
