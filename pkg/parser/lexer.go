package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/flowkit/safeexpr/pkg/types"
)

const eof = -1

// Lexer converts a restricted C-family expression into a sequence of
// tokens. The implementation follows Rob Pike's "Lexical Scanning in Go"
// technique, the same structure the teacher's pkg/parser/lexer.go uses for
// JSONata: a rune-at-a-time scanner over start/current offsets with
// backup/ignore helpers, just retargeted at this language's token set.
type Lexer struct {
	input   string
	length  int
	start   int
	current int
	width   int
	err     *types.Error
}

// NewLexer creates a new lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, length: len(input)}
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() *types.Error {
	return l.err
}

// Next returns the next token. Once EOF is reached, Next keeps returning
// TokenEOF.
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	if l.err != nil {
		return l.errorTok(l.err.Message)
	}

	ch := l.nextRune()
	if ch == eof {
		return l.newToken(TokenEOF)
	}

	if tt, ok := l.tryTwoOrThreeCharSymbol(ch); ok {
		return l.newToken(tt)
	}
	if tt := lookupSymbol1(ch); tt != 0 {
		return l.newToken(tt)
	}

	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}
	if ch >= '0' && ch <= '9' {
		l.backup()
		return l.scanNumber()
	}
	if isIdentStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.errorTok("unexpected character " + string(ch))
}

func (l *Lexer) tryTwoOrThreeCharSymbol(ch rune) (TokenType, bool) {
	switch ch {
	case '=':
		if l.acceptRune('=') {
			if l.acceptRune('=') {
				return TokenEqEqEq, true
			}
			return TokenEqEq, true
		}
		if l.acceptRune('>') {
			return TokenArrow, true
		}
		return 0, false
	case '!':
		if l.acceptRune('=') {
			if l.acceptRune('=') {
				return TokenNotEqEq, true
			}
			return TokenNotEq, true
		}
		return TokenBang, true
	case '<':
		if l.acceptRune('=') {
			return TokenLessEq, true
		}
		return TokenLess, true
	case '>':
		if l.acceptRune('=') {
			return TokenGreaterEq, true
		}
		return TokenGreater, true
	case '&':
		if l.acceptRune('&') {
			return TokenAndAnd, true
		}
		return 0, false
	case '|':
		if l.acceptRune('|') {
			return TokenOrOr, true
		}
		return 0, false
	case '?':
		if l.acceptRune('?') {
			return TokenCoalesce, true
		}
		return TokenQuestion, true
	case '*':
		if l.acceptRune('*') {
			return TokenStarStar, true
		}
		return TokenStar, true
	default:
		return 0, false
	}
}

var symbols1 = map[rune]TokenType{
	'(': TokenParenOpen,
	')': TokenParenClose,
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'.': TokenDot,
	',': TokenComma,
	':': TokenColon,
	'+': TokenPlus,
	'-': TokenMinus,
	'/': TokenSlash,
	'%': TokenPercent,
}

func lookupSymbol1(r rune) TokenType {
	return symbols1[r]
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) scanName() Token {
	for {
		ch := l.nextRune()
		if ch == eof || !isIdentPart(ch) {
			l.backup()
			break
		}
	}
	text := l.input[l.start:l.current]
	if kw := lookupKeyword(text); kw != 0 {
		return l.newToken(kw)
	}
	return l.newToken(TokenName)
}

func (l *Lexer) scanNumber() Token {
	for {
		ch := l.nextRune()
		if ch < '0' || ch > '9' {
			l.backup()
			break
		}
	}
	if l.peek() == '.' {
		save := l.current
		l.nextRune()
		if d := l.peek(); d >= '0' && d <= '9' {
			for {
				ch := l.nextRune()
				if ch < '0' || ch > '9' {
					l.backup()
					break
				}
			}
		} else {
			l.current = save
		}
	}
	if p := l.peek(); p == 'e' || p == 'E' {
		save := l.current
		l.nextRune()
		if s := l.peek(); s == '+' || s == '-' {
			l.nextRune()
		}
		if d := l.peek(); d >= '0' && d <= '9' {
			for {
				ch := l.nextRune()
				if ch < '0' || ch > '9' {
					l.backup()
					break
				}
			}
		} else {
			l.current = save
		}
	}
	return l.newToken(TokenNumber)
}

func (l *Lexer) scanString(delim rune) Token {
	var sb strings.Builder
	for {
		ch := l.nextRune()
		switch ch {
		case eof:
			l.err = types.NewError(types.ErrUnterminatedString, "string literal not closed", l.start)
			return l.errorTok(l.err.Message)
		case delim:
			tok := Token{Type: TokenString, Value: sb.String(), Pos: l.start}
			l.ignore()
			return tok
		case '\\':
			esc := l.nextRune()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '\'':
				sb.WriteRune(esc)
			case 'u':
				if r, ok := l.scanUnicodeEscape(); ok {
					sb.WriteRune(r)
				}
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(ch)
		}
	}
}

func (l *Lexer) scanUnicodeEscape() (rune, bool) {
	if l.current+4 > l.length {
		return 0, false
	}
	hex := l.input[l.current : l.current+4]
	var r rune
	for _, c := range hex {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		default:
			return 0, false
		}
	}
	l.current += 4
	return r, true
}

func (l *Lexer) skipWhitespace() {
	for {
		ch := l.nextRune()
		switch {
		case ch == eof:
			return
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			continue
		default:
			l.backup()
			l.ignore()
			return
		}
	}
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) peek() rune {
	r := l.nextRune()
	l.backup()
	return r
}

func (l *Lexer) acceptRune(want rune) bool {
	if l.peek() == want {
		l.nextRune()
		return true
	}
	return false
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) newToken(tt TokenType) Token {
	tok := Token{Type: tt, Value: l.input[l.start:l.current], Pos: l.start}
	l.start = l.current
	return tok
}

func (l *Lexer) errorTok(msg string) Token {
	tok := Token{Type: TokenError, Value: msg, Pos: l.start}
	l.start = l.current
	return tok
}
