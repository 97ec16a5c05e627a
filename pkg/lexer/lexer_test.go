package lexer

import (
	"testing"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(t *testing.T, src string, opts ...func(*config.Config)) ([]token.Token, *diag.Sink) {
	t.Helper()

	cfg := config.NewConfig()
	for _, o := range opts {
		o(cfg)
	}
	diags := diag.NewSink(cfg, diag.SourceFileRecord{Name: "test.gone", Content: []rune(src)})

	toks := NewLexer([]rune(src), 0, cfg, diags).Tokenize()
	require.NotEmpty(t, toks)
	require.Equal(t, token.EOF, toks[len(toks)-1].Type)

	return toks, diags
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestStatements(t *testing.T) {
	toks, diags := lex(t, "var a int = (1 + 2) * -3;\nprint a / 4;\nconst b = 'x';")
	require.False(t, diags.HasErrors())

	assert.Equal(t, []token.Type{
		token.Var, token.Ident, token.Ident, token.Assign, token.LParen, token.Integer, token.Plus, token.Integer,
		token.RParen, token.Star, token.Minus, token.Integer, token.Semi,
		token.Print, token.Ident, token.Slash, token.Integer, token.Semi,
		token.Const, token.Ident, token.Assign, token.Char, token.Semi,
		token.EOF,
	}, types(toks))

	assert.Equal(t, "a", toks[1].Value)
	assert.Equal(t, "int", toks[2].Value)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[13].Line)
	assert.Equal(t, 3, toks[18].Line)
	assert.Equal(t, "120", toks[21].Value)
}

func TestPositions(t *testing.T) {
	toks, _ := lex(t, "  print   abc;")

	assert.Equal(t, 3, toks[0].Column)
	assert.Equal(t, 5, toks[0].Len)
	assert.Equal(t, 11, toks[1].Column)
	assert.Equal(t, 3, toks[1].Len)
}

func TestNumbers(t *testing.T) {
	for _, tc := range []struct {
		src  string
		typ  token.Type
		want string
	}{
		{"42", token.Integer, "42"},
		{"007", token.Integer, "7"},
		{"0x1F", token.Integer, "31"},
		{"0o17", token.Integer, "15"},
		{"3.14", token.Float, "3.14"},
		{".5", token.Float, ".5"},
		{"1e3", token.Float, "1e3"},
		{"2.5E-2", token.Float, "2.5E-2"},
	} {
		toks, diags := lex(t, tc.src)
		require.False(t, diags.HasErrors(), tc.src)
		require.Len(t, toks, 2, tc.src)
		assert.Equal(t, tc.typ, toks[0].Type, tc.src)
		assert.Equal(t, tc.want, toks[0].Value, tc.src)
	}
}

func TestIntegerOverflow(t *testing.T) {
	toks, diags := lex(t, "2147483648")

	require.False(t, diags.HasErrors())
	require.Len(t, diags.Warnings(), 1)
	assert.Equal(t, "overflow", diags.Warnings()[0].Warning)
	assert.Equal(t, "-2147483648", toks[0].Value)

	_, diags = lex(t, "2147483648", func(c *config.Config) { c.SetWarning(config.WarnOverflow, false) })
	assert.Empty(t, diags.All())
}

func TestMalformedExponent(t *testing.T) {
	_, diags := lex(t, "1e+;")

	require.Equal(t, 1, diags.ErrorCount())
	assert.Contains(t, diags.Errors()[0].Message, "exponent has no digits")
}

func TestCharLiterals(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want string
	}{
		{`'a'`, "97"},
		{`'\n'`, "10"},
		{`'\t'`, "9"},
		{`'\0'`, "0"},
		{`'\''`, "39"},
		{`'\\'`, "92"},
		{`'\x41'`, "65"},
	} {
		toks, diags := lex(t, tc.src)
		require.False(t, diags.HasErrors(), tc.src)
		assert.Equal(t, token.Char, toks[0].Type, tc.src)
		assert.Equal(t, tc.want, toks[0].Value, tc.src)
	}
}

func TestCharLiteralErrors(t *testing.T) {
	for _, tc := range []struct {
		src string
		msg string
	}{
		{`''`, "Empty character literal"},
		{`'a`, "Unterminated character literal"},
		{"'a\n'", "Unterminated character literal"},
		{`'ab'`, "Character literal holds more than one character"},
		{`'\xZ1'`, "Invalid hex digit 'Z' in escape sequence"},
	} {
		_, diags := lex(t, tc.src)
		require.NotEmpty(t, diags.Errors(), tc.src)
		assert.Equal(t, tc.msg, diags.Errors()[0].Message, tc.src)
	}
}

func TestUnknownEscape(t *testing.T) {
	toks, diags := lex(t, `'\q'`)

	require.False(t, diags.HasErrors())
	require.Len(t, diags.Warnings(), 1)
	assert.Equal(t, "u-esc", diags.Warnings()[0].Warning)
	assert.Equal(t, "113", toks[0].Value)
}

func TestComments(t *testing.T) {
	toks, diags := lex(t, "/* block\ncomment */ print 1; // trailing\nprint 2;")
	require.False(t, diags.HasErrors())
	assert.Equal(t, []token.Type{token.Print, token.Integer, token.Semi, token.Print, token.Integer, token.Semi, token.EOF}, types(toks))
	assert.Equal(t, 2, toks[0].Line)
	assert.Equal(t, 3, toks[3].Line)

	toks, _ = lex(t, "print 1; // no", func(c *config.Config) { c.SetFeature(config.FeatCComments, false) })
	assert.Equal(t, []token.Type{token.Print, token.Integer, token.Semi, token.Slash, token.Slash, token.Ident, token.EOF}, types(toks))

	_, diags = lex(t, "print 1; /* open")
	require.Equal(t, 1, diags.ErrorCount())
	assert.Equal(t, "Unterminated comment", diags.Errors()[0].Message)
}

func TestIllegalCharacter(t *testing.T) {
	toks, diags := lex(t, "print 1 $ 2;")

	require.Equal(t, 1, diags.ErrorCount())
	assert.Equal(t, "Illegal character '$'", diags.Errors()[0].Message)
	assert.Equal(t, 9, diags.Errors()[0].Column)
	assert.Equal(t, []token.Type{token.Print, token.Integer, token.Integer, token.Semi, token.EOF}, types(toks))
}

func TestCharLiteralRange(t *testing.T) {
	toks, diags := lex(t, `'ÿ'`)
	require.False(t, diags.HasErrors())
	assert.Equal(t, "255", toks[0].Value)

	for _, src := range []string{`'中'`, `'\中'`} {
		toks, diags = lex(t, src)
		require.Equal(t, 1, diags.ErrorCount(), src)
		assert.Equal(t, "Character literal out of range", diags.Errors()[0].Message, src)
		assert.Equal(t, token.Char, toks[0].Type, src)
		assert.Equal(t, "0", toks[0].Value, src)
	}
}

func TestASCIIIdentifiers(t *testing.T) {
	toks, diags := lex(t, "var é int = 1;")

	require.Equal(t, 1, diags.ErrorCount())
	assert.Equal(t, "Illegal character 'é'", diags.Errors()[0].Message)
	assert.Equal(t, 5, diags.Errors()[0].Column)
	assert.Equal(t, []token.Type{token.Var, token.Ident, token.Assign, token.Integer, token.Semi, token.EOF}, types(toks))

	toks, diags = lex(t, "x٣ = 1;")
	require.Equal(t, 1, diags.ErrorCount())
	assert.Equal(t, "x", toks[0].Value)
	assert.Equal(t, []token.Type{token.Ident, token.Assign, token.Integer, token.Semi, token.EOF}, types(toks))

	toks, diags = lex(t, "_a9Z")
	require.False(t, diags.HasErrors())
	assert.Equal(t, "_a9Z", toks[0].Value)
}
