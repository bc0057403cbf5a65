package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Kind)
	}
	return out
}

func texts(toks []Token) []string {
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind != EOF {
			out = append(out, tok.Text)
		}
	}
	return out
}

func TestTokenize_Statement(t *testing.T) {
	toks, err := Tokenize(`train model net on iris with epochs=50 learning_rate=0.05`)
	require.NoError(t, err)

	assert.Equal(t, []Kind{
		Keyword, Ident, Ident, Ident, Ident, Ident,
		Ident, Operator, Number, Ident, Operator, Number, EOF,
	}, kinds(toks))
	assert.Equal(t, []string{
		"train", "model", "net", "on", "iris", "with",
		"epochs", "=", "50", "learning_rate", "=", "0.05",
	}, texts(toks))
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"3", []string{"3"}},
		{"0.1", []string{"0.1"}},
		{".5", []string{".5"}},
		{"1e-3", []string{"1e-3"}},
		{"2.5E+10", []string{"2.5E+10"}},
		{"7e", []string{"7", "e"}}, // exponent needs digits
		{"1.", []string{"1"}},      // trailing dot is not part of the number
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := Tokenize(tt.src)
			if tt.src == "1." {
				// A lone '.' cannot start a token.
				var lexErr *LexError
				require.True(t, errors.As(err, &lexErr))
				assert.Equal(t, '.', lexErr.Char)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(toks))
			assert.Equal(t, Number, toks[0].Kind)
		})
	}
}

func TestTokenize_Strings(t *testing.T) {
	toks, err := Tokenize(`"iris data.csv" 'it\'s' "a\tb\nc\\d\"e"`)
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, "iris data.csv", toks[0].Text)
	assert.Equal(t, "it's", toks[1].Text)
	assert.Equal(t, "a\tb\nc\\d\"e", toks[2].Text)
	for _, tok := range toks[:3] {
		assert.Equal(t, String, tok.Kind)
	}
}

func TestTokenize_OperatorsAndPunct(t *testing.T) {
	toks, err := Tokenize(`=+-*/(){}[],`)
	require.NoError(t, err)
	assert.Equal(t, []string{"=", "+", "-", "*", "/", "(", ")", "{", "}", "[", "]", ","}, texts(toks))
	for _, tok := range toks[:5] {
		assert.Equal(t, Operator, tok.Kind)
	}
	for _, tok := range toks[5:12] {
		assert.Equal(t, Punct, tok.Kind)
	}
}

func TestTokenize_CommentsAndPositions(t *testing.T) {
	src := "# header\nload dataset \"d.csv\" as d # trailing\n  split d ratio=0.8\n"
	toks, err := Tokenize(src)
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "dataset", "d.csv", "as", "d", "split", "d", "ratio", "=", "0.8"}, texts(toks))
	assert.Equal(t, Pos{Line: 2, Col: 1}, toks[0].Pos)
	assert.Equal(t, Pos{Line: 2, Col: 14}, toks[2].Pos)
	assert.Equal(t, Pos{Line: 3, Col: 3}, toks[5].Pos)
	assert.Equal(t, Pos{Line: 3, Col: 17}, toks[9].Pos)
	assert.Equal(t, Pos{Line: 4, Col: 1}, toks[len(toks)-1].Pos)
}

func TestTokenize_Empty(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "# only a comment"} {
		toks, err := Tokenize(src)
		require.NoError(t, err)
		require.Len(t, toks, 1)
		assert.Equal(t, EOF, toks[0].Kind)
	}
}

func TestLexError(t *testing.T) {
	_, err := Tokenize("print a\nprint b $ c")
	require.Error(t, err)

	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, '$', lexErr.Char)
	assert.Equal(t, Pos{Line: 2, Col: 9}, lexErr.Pos)
	assert.Equal(t, "LexError at 2:9: unexpected character '$'", err.Error())
}

func TestLexError_NonASCII(t *testing.T) {
	_, err := Tokenize("print é")
	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 'é', lexErr.Char)
	assert.Equal(t, Pos{Line: 1, Col: 7}, lexErr.Pos)

	// Non-ASCII text is fine inside strings and counts as one column.
	toks, err := Tokenize(`"é" x`)
	require.NoError(t, err)
	assert.Equal(t, "é", toks[0].Text)
	assert.Equal(t, Pos{Line: 1, Col: 5}, toks[1].Pos)
}

func TestLexError_UnterminatedString(t *testing.T) {
	for _, src := range []string{`load dataset "iris.csv`, "x = 'a\nb'", `"abc\`} {
		_, err := Tokenize(src)
		var lexErr *LexError
		require.True(t, errors.As(err, &lexErr), src)
		assert.Contains(t, lexErr.Error(), "unterminated string")
	}

	_, err := Tokenize(`load dataset "iris.csv`)
	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, '"', lexErr.Char)
	assert.Equal(t, Pos{Line: 1, Col: 14}, lexErr.Pos)
}

func TestLexError_UnknownEscape(t *testing.T) {
	_, err := Tokenize(`"a\qb"`)
	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 'q', lexErr.Char)
	assert.Equal(t, Pos{Line: 1, Col: 4}, lexErr.Pos)
}

func TestLexer_LazyAndRestartable(t *testing.T) {
	l := New("list clear x")

	first, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, Token{Kind: Keyword, Text: "list", Pos: Pos{1, 1}}, first)

	for range 2 {
		_, err = l.Next()
		require.NoError(t, err)
	}
	for range 3 {
		tok, err := l.Next()
		require.NoError(t, err)
		assert.Equal(t, EOF, tok.Kind)
	}

	l.Reset()
	again, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestIsKeyword(t *testing.T) {
	for _, kw := range []string{"load", "create", "train", "evaluate", "save", "visualize",
		"split", "preprocess", "augment", "print", "list", "clear", "exit", "help"} {
		assert.True(t, IsKeyword(kw), kw)
	}
	for _, word := range []string{"dataset", "model", "as", "on", "with", "true", "Load"} {
		assert.False(t, IsKeyword(word), word)
	}
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "end of input", Token{Kind: EOF}.String())
	assert.Equal(t, `identifier "net"`, Token{Kind: Ident, Text: "net"}.String())
	assert.Equal(t, `string "a b"`, Token{Kind: String, Text: "a b"}.String())
	assert.True(t, Token{Kind: Punct, Text: "{"}.Is(Punct, "{"))
}
