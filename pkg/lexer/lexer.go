package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/token"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	diags     *diag.Sink
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config, diags *diag.Sink) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg, diags: diags,
	}
}

// Tokenize scans the whole input. The result always ends with an EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		ch := l.peek()
		if isIdentStart(ch) {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if isDigit(ch) || (ch == '.' && isDigit(l.peekNext())) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case '=': return l.makeToken(token.Assign, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case '\'':
			return l.charLiteral(startPos, startCol, startLine)
		}

		l.diags.Errorf(l.makeToken(token.Ident, string(ch), startPos, startCol, startLine), "Illegal character '%c'", ch)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			switch {
			case l.peekNext() == '*':
				l.blockComment()
			case l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments):
				l.lineComment()
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	startTok := l.makeToken(token.Slash, "/*", l.pos, l.column, l.line)
	startTok.Len = 2
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.diags.Errorf(startTok, "Unterminated comment")
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isIdentStart(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

// Identifiers and numbers are ASCII only; other runes are illegal characters.
func isIdentStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isHexDigit(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	isFloat := false
	radixPrefix := l.peek() == '0' && strings.ContainsRune("xXoO", l.peekNext())

	if radixPrefix {
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for isDigit(l.peek()) {
			l.advance()
		}
		if l.peek() == '.' {
			isFloat = true
			l.advance()
			for isDigit(l.peek()) {
				l.advance()
			}
		}
		if l.peek() == 'e' || l.peek() == 'E' {
			isFloat = true
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			if !isDigit(l.peek()) {
				tok := l.makeToken(token.Float, "0.0", startPos, startCol, startLine)
				l.diags.Errorf(tok, "Malformed floating-point literal: exponent has no digits")
				return tok
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	valueStr := string(l.source[startPos:l.pos])
	if isFloat {
		tok := l.makeToken(token.Float, valueStr, startPos, startCol, startLine)
		if _, err := strconv.ParseFloat(valueStr, 64); err != nil {
			l.diags.Errorf(tok, "Invalid floating-point literal: %s", valueStr)
			tok.Value = "0.0"
		}
		return tok
	}

	tok := l.makeToken(token.Integer, "", startPos, startCol, startLine)
	base := 10
	if radixPrefix {
		base = 0
	}
	val, err := strconv.ParseUint(valueStr, base, 64)
	if err != nil {
		if e, ok := err.(*strconv.NumError); ok && e.Err == strconv.ErrRange {
			l.diags.Warnf(config.WarnOverflow, tok, "Integer literal %s overflows int", valueStr)
			tok.Value = "0"
			return tok
		}
		l.diags.Errorf(tok, "Invalid number literal: %s", valueStr)
		tok.Value = "0"
		return tok
	}
	if val > math.MaxInt32 {
		l.diags.Warnf(config.WarnOverflow, tok, "Integer literal %s overflows int", valueStr)
		tok.Value = strconv.FormatInt(int64(int32(val)), 10)
		return tok
	}
	tok.Value = strconv.FormatUint(val, 10)
	return tok
}

// charLiteral leaves the code point of the character, in decimal, as the
// token value.
func (l *Lexer) charLiteral(startPos, startCol, startLine int) token.Token {
	var val int64
	switch c := l.peek(); {
	case c == '\'':
		l.advance()
		l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Empty character literal")
		return l.makeToken(token.Char, "0", startPos, startCol, startLine)
	case c == '\n' || l.isAtEnd():
		l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Unterminated character literal")
		return l.makeToken(token.Char, "0", startPos, startCol, startLine)
	case c == '\\' && l.cfg.IsFeatureEnabled(config.FeatCEsc):
		l.advance()
		val = l.decodeEscape(startPos, startCol, startLine)
	default:
		l.advance()
		val = int64(c)
	}

	// char is 8 bits wide all the way down to the runtime.
	if val > 0xFF {
		l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Character literal out of range")
		val = 0
	}

	if !l.match('\'') {
		for !l.isAtEnd() && l.peek() != '\'' && l.peek() != '\n' {
			l.advance()
		}
		if l.match('\'') {
			l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Character literal holds more than one character")
		} else {
			l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Unterminated character literal")
		}
	}

	tok := l.makeToken(token.Char, "", startPos, startCol, startLine)
	tok.Value = strconv.FormatInt(val, 10)
	return tok
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) int64 {
	if l.isAtEnd() {
		l.diags.Errorf(l.makeToken(token.EOF, "", l.pos, l.column, l.line), "Unterminated escape sequence")
		return 0
	}
	c := l.advance()

	if c == 'x' {
		var val int64
		for i := 0; i < 2; i++ {
			d := l.peek()
			if !isHexDigit(d) {
				l.diags.Errorf(l.makeToken(token.Char, "", startPos, startCol, startLine), "Invalid hex digit '%c' in escape sequence", d)
				return val
			}
			digit, _ := strconv.ParseInt(string(d), 16, 64)
			val = val*16 + digit
			l.advance()
		}
		return val
	}

	escapes := map[rune]int64{
		'n': '\n', 't': '\t', 'r': '\r', '0': 0,
		'\\': '\\', '\'': '\'', '"': '"',
	}
	if val, ok := escapes[c]; ok {
		return val
	}
	l.diags.Warnf(config.WarnUnrecognizedEscape, l.makeToken(token.Char, "", startPos, startCol, startLine), "Unrecognized escape sequence '\\%c'", c)
	return int64(c)
}
