package values

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
)

// ErrLiteral is the root of literal-parsing failures raised by this package;
// the expression lexer/parser wrap it into apperrors.ErrExpression.
var ErrLiteral apperrors.Error = apperrors.ErrSchema.Msg("invalid literal")

// ParseInteger parses an integer literal, accepting 0x/0o/0b prefixes as the
// lexical grammar requires. Returns an Integer32 value unless the literal
// overflows 32 bits, in which case it returns a Long64 value — the lexer
// decides on Kind by range, not by suffix, since the grammar has none.
func ParseInteger(lit string) (Value, apperrors.Error) {
	neg := false
	s := lit
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0o"), strings.HasPrefix(s, "0O"):
		base, s = 8, s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return Value{}, ErrLiteral.Msg(fmt.Sprintf("invalid integer literal %q", lit))
	}
	if neg {
		n = -n
	}
	if n >= -(1<<31) && n <= (1<<31)-1 {
		return NewInteger32(int32(n)), nil
	}
	return NewLong64(n), nil
}

// ParseReal parses a decimal-point or exponent real literal.
func ParseReal(lit string) (Value, apperrors.Error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, ErrLiteral.Msg(fmt.Sprintf("invalid real literal %q", lit))
	}
	return NewReal(f), nil
}

// UnescapeText unescapes a double-quoted text literal body (quotes already
// stripped) honoring \" \\ \n \t \r.
func UnescapeText(body string) (string, apperrors.Error) {
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", ErrLiteral.Msg("dangling escape in text literal")
		}
		switch body[i] {
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			return "", ErrLiteral.Msg(fmt.Sprintf("unknown escape sequence \\%c", body[i]))
		}
	}
	return sb.String(), nil
}

// timestamp layouts the lexical grammar accepts, longest-first so parsing
// doesn't truncate a fractional-seconds suffix.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Sentinel forms: a literal starting with "9999-99-99" means "max", one
// starting with "0000-00-00" means "min".
var (
	minTimestamp = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)
)

// ParseTimestamp parses a YYYY-MM-DD[THH:MM:SS[.ffffff]] literal, including
// the 99.. / 00.. min/max sentinel forms.
func ParseTimestamp(lit string) (Value, apperrors.Error) {
	if strings.HasPrefix(lit, "9999-99-99") {
		return NewTimestamp(maxTimestamp), nil
	}
	if strings.HasPrefix(lit, "0000-00-00") {
		return NewTimestamp(minTimestamp), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, lit); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Value{}, ErrLiteral.Msg(fmt.Sprintf("invalid timestamp literal %q", lit))
}

// FormatTimestamp renders the canonical literal form of a timestamp value,
// including microseconds only when non-zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Equal(maxTimestamp) {
		return "9999-99-99T99:99:99"
	}
	if t.Equal(minTimestamp) {
		return "0000-00-00T00:00:00"
	}
	if t.Nanosecond() == 0 {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

// ParseUUID parses a UUID literal.
func ParseUUID(lit string) (Value, apperrors.Error) {
	u, err := uuid.Parse(lit)
	if err != nil {
		return Value{}, ErrLiteral.Msg(fmt.Sprintf("invalid uuid literal %q", lit))
	}
	return NewUUID(u), nil
}

// ParseHash splits a content hash of the form "<algorithm>:<hex>", defaulting
// legacy bare hex (no colon) to the sha1 algorithm per the product data
// model's hash field rule.
func ParseHash(s string) (algorithm, hex string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "sha1", s
}

// FormatHash renders a content hash in canonical "<algorithm>:<hex>" form.
func FormatHash(algorithm, hex string) string {
	return algorithm + ":" + hex
}
