package formula

import (
	"fmt"
	"strings"

	formulaerrors "go-twk/internal/formula/errors"

	"github.com/shopspring/decimal"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokTrue
	tokFalse

	tokPlus    // +
	tokMinus   // -
	tokStar    // *
	tokSlash   // /
	tokPercent // %
	tokLT      // <
	tokLTE     // <=
	tokGT      // >
	tokGTE     // >=
	tokEQ      // ==
	tokNEQ     // !=
	tokAnd     // &&
	tokOr      // ||
	tokNot     // !
	tokQuestion
	tokColon
	tokLParen
	tokRParen
	tokComma
)

var tokenNames = map[tokenKind]string{
	tokEOF: "end of expression", tokNumber: "number", tokString: "string", tokIdent: "identifier",
	tokTrue: "true", tokFalse: "false",
	tokPlus: "+", tokMinus: "-", tokStar: "*", tokSlash: "/", tokPercent: "%",
	tokLT: "<", tokLTE: "<=", tokGT: ">", tokGTE: ">=", tokEQ: "==", tokNEQ: "!=",
	tokAnd: "&&", tokOr: "||", tokNot: "!", tokQuestion: "?", tokColon: ":",
	tokLParen: "(", tokRParen: ")", tokComma: ",",
}

func (k tokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	num  decimal.Decimal
	pos  int
}

func syntaxError(pos int, format string, args ...any) error {
	return formulaerrors.ErrSyntax.WithDetails(map[string]any{
		"position": pos,
		"reason":   fmt.Sprintf(format, args...),
	})
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// lex splits src into tokens. Positions are byte offsets.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			n, err := decimal.NewFromString(text)
			if err != nil {
				return nil, syntaxError(start, "invalid number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: n, pos: start})

		case isLetter(c):
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
				i++
			}
			// dotted namespace segments, e.g. components.BASIC
			for i+1 < len(src) && src[i] == '.' && (isLetter(src[i+1]) || isDigit(src[i+1])) {
				i++
				for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
					i++
				}
			}
			text := src[start:i]
			switch text {
			case "true":
				toks = append(toks, token{kind: tokTrue, text: text, pos: start})
			case "false":
				toks = append(toks, token{kind: tokFalse, text: text, pos: start})
			default:
				toks = append(toks, token{kind: tokIdent, text: text, pos: start})
			}

		case c == '"' || c == '\'':
			start := i
			quote := c
			i++
			var sb strings.Builder
			closed := false
			for i < len(src) {
				ch := src[i]
				if ch == '\\' && i+1 < len(src) {
					sb.WriteByte(src[i+1])
					i += 2
					continue
				}
				if ch == quote {
					closed = true
					i++
					break
				}
				sb.WriteByte(ch)
				i++
			}
			if !closed {
				return nil, syntaxError(start, "unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: start})

		default:
			kind, width := operator(src, i)
			if width == 0 {
				return nil, syntaxError(i, "unexpected character %q", c)
			}
			toks = append(toks, token{kind: kind, text: src[i : i+width], pos: i})
			i += width
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func operator(src string, i int) (tokenKind, int) {
	two := ""
	if i+1 < len(src) {
		two = src[i : i+2]
	}
	switch two {
	case "<=":
		return tokLTE, 2
	case ">=":
		return tokGTE, 2
	case "==":
		return tokEQ, 2
	case "!=":
		return tokNEQ, 2
	case "&&":
		return tokAnd, 2
	case "||":
		return tokOr, 2
	}
	switch src[i] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		return tokStar, 1
	case '/':
		return tokSlash, 1
	case '%':
		return tokPercent, 1
	case '<':
		return tokLT, 1
	case '>':
		return tokGT, 1
	case '!':
		return tokNot, 1
	case '?':
		return tokQuestion, 1
	case ':':
		return tokColon, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	case ',':
		return tokComma, 1
	}
	return tokEOF, 0
}
