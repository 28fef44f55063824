package expr

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/stcorp/muninn/internal/apperrors"
)

// ErrLex is the root of lexical scanning failures.
var ErrLex apperrors.Error = apperrors.ErrExpression.Msg("lexical error")

var (
	uuidRe      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}(\.\d+)?)?`)
	realRe      = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?`)
	hexIntRe    = regexp.MustCompile(`^0[xX][0-9a-fA-F]+`)
	octIntRe    = regexp.MustCompile(`^0[oO][0-7]+`)
	binIntRe    = regexp.MustCompile(`^0[bB][01]+`)
	decIntRe    = regexp.MustCompile(`^[0-9]+`)
)

var wktPrefixes = []string{"MULTIPOLYGON", "MULTILINESTRING", "MULTIPOINT", "POLYGON", "LINESTRING", "POINT"}

// Lexer tokenizes an expression source string. Whitespace (including
// trailing) is skipped silently, matching spec §4.4.
type Lexer struct {
	src string
	pos int
}

func NewLexer(src string) *Lexer { return &Lexer{src: src} }

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

// Next returns the next token, or a TokEOF token once the input is
// exhausted (including when only trailing whitespace remains).
func (l *Lexer) Next() (Token, apperrors.Error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}
	c := l.src[l.pos]

	switch {
	case c == '@':
		l.pos++
		identStart := l.pos
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == identStart {
			return Token{}, ErrLex.Msg("expected identifier after '@'")
		}
		return Token{Kind: TokParam, Lit: l.src[identStart:l.pos], Pos: start}, nil

	case c == '"':
		return l.lexText(start)

	case isAlpha(c):
		return l.lexIdentOrKeywordOrWKT(start)

	case isDigit(c):
		return l.lexNumberOrDateOrUUID(start)

	default:
		return l.lexOperator(start)
	}
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

func (l *Lexer) lexText(start int) (Token, apperrors.Error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			return Token{Kind: TokText, Lit: sb.String(), Pos: start}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			sb.WriteByte(c)
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{}, ErrLex.Msg("unterminated text literal")
}

func (l *Lexer) lexIdentOrKeywordOrWKT(start int) (Token, apperrors.Error) {
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]

	upper := strings.ToUpper(word)
	for _, prefix := range wktPrefixes {
		if upper == prefix {
			if lit, ok := l.tryConsumeWKTBody(start, word); ok {
				return Token{Kind: TokWKT, Lit: lit, Pos: start}, nil
			}
		}
	}

	if kind, ok := keywords[word]; ok {
		return Token{Kind: kind, Lit: word, Pos: start}, nil
	}
	return Token{Kind: TokIdent, Lit: word, Pos: start}, nil
}

// tryConsumeWKTBody looks ahead (skipping whitespace) for "EMPTY" or a
// balanced-paren coordinate body following a WKT type keyword, and if found
// consumes it and returns the full literal text.
func (l *Lexer) tryConsumeWKTBody(start int, head string) (string, bool) {
	save := l.pos
	l.skipWhitespace()
	if strings.HasPrefix(strings.ToUpper(l.src[l.pos:]), "EMPTY") {
		l.pos += len("EMPTY")
		return l.src[start:l.pos], true
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '(' {
		l.pos = save
		return "", false
	}
	depth := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		l.pos++
		if depth == 0 {
			return l.src[start:l.pos], true
		}
	}
	l.pos = save
	return "", false
}

func (l *Lexer) lexNumberOrDateOrUUID(start int) (Token, apperrors.Error) {
	rest := l.src[start:]
	if m := uuidRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokUUID, Lit: m, Pos: start}, nil
	}
	if m := timestampRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokTimestamp, Lit: m, Pos: start}, nil
	}
	if m := hexIntRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokInteger, Lit: m, Pos: start}, nil
	}
	if m := octIntRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokInteger, Lit: m, Pos: start}, nil
	}
	if m := binIntRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokInteger, Lit: m, Pos: start}, nil
	}
	if m := realRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		if strings.ContainsAny(m, ".eE") {
			return Token{Kind: TokReal, Lit: m, Pos: start}, nil
		}
		return Token{Kind: TokInteger, Lit: m, Pos: start}, nil
	}
	if m := decIntRe.FindString(rest); m != "" {
		l.pos = start + len(m)
		return Token{Kind: TokInteger, Lit: m, Pos: start}, nil
	}
	return Token{}, ErrLex.Msg("invalid numeric literal")
}

func (l *Lexer) lexOperator(start int) (Token, apperrors.Error) {
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "==":
		l.pos += 2
		return Token{Kind: TokEq, Lit: two, Pos: start}, nil
	case "!=":
		l.pos += 2
		return Token{Kind: TokNeq, Lit: two, Pos: start}, nil
	case "<=":
		l.pos += 2
		return Token{Kind: TokLte, Lit: two, Pos: start}, nil
	case ">=":
		l.pos += 2
		return Token{Kind: TokGte, Lit: two, Pos: start}, nil
	case "~=":
		l.pos += 2
		return Token{Kind: TokMatch, Lit: two, Pos: start}, nil
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case '<':
		return Token{Kind: TokLt, Lit: "<", Pos: start}, nil
	case '>':
		return Token{Kind: TokGt, Lit: ">", Pos: start}, nil
	case '+':
		return Token{Kind: TokPlus, Lit: "+", Pos: start}, nil
	case '-':
		return Token{Kind: TokMinus, Lit: "-", Pos: start}, nil
	case '*':
		return Token{Kind: TokStar, Lit: "*", Pos: start}, nil
	case '/':
		return Token{Kind: TokSlash, Lit: "/", Pos: start}, nil
	case '[':
		return Token{Kind: TokLBracket, Lit: "[", Pos: start}, nil
	case ']':
		return Token{Kind: TokRBracket, Lit: "]", Pos: start}, nil
	case '(':
		return Token{Kind: TokLParen, Lit: "(", Pos: start}, nil
	case ')':
		return Token{Kind: TokRParen, Lit: ")", Pos: start}, nil
	case ',':
		return Token{Kind: TokComma, Lit: ",", Pos: start}, nil
	case '.':
		return Token{Kind: TokDot, Lit: ".", Pos: start}, nil
	default:
		return Token{}, ErrLex.Msg("unexpected character " + string(c))
	}
}

// Tokenize scans the whole source into a token slice, stopping after (and
// including) the terminal TokEOF. Used by the parser, which wants
// lookahead rather than a streaming interface.
func Tokenize(src string) ([]Token, apperrors.Error) {
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}
