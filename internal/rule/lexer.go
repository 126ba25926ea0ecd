package rule

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokOp     // == != < <= > >=
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokCross
	tokFrom
	tokTo
	tokRising
	tokFalling
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywords = map[string]tokenKind{
	"and":     tokAnd,
	"or":      tokOr,
	"not":     tokNot,
	"cross":   tokCross,
	"from":    tokFrom,
	"to":      tokTo,
	"rising":  tokRising,
	"falling": tokFalling,
}

// lex splits an expression into tokens. Numbers may carry a leading
// minus sign: the grammar has no arithmetic, so "-1" is always a literal.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++

		case c == '=' || c == '!':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, fmt.Errorf("position %d: unexpected %q", i, string(c))
			}
			toks = append(toks, token{tokOp, input[i : i+2], i})
			i += 2
		case c == '<' || c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{tokOp, input[i : i+2], i})
				i += 2
			} else {
				toks = append(toks, token{tokOp, string(c), i})
				i++
			}

		case c == '-' || isDigit(c):
			start := i
			if c == '-' {
				i++
				if i >= len(input) || !isDigit(input[i]) {
					return nil, fmt.Errorf("position %d: dangling minus", start)
				}
			}
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, input[start:i], start})

		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			if kind, ok := keywords[word]; ok {
				toks = append(toks, token{kind, word, start})
			} else {
				toks = append(toks, token{tokIdent, word, start})
			}

		default:
			return nil, fmt.Errorf("position %d: unexpected character %q", i, string(c))
		}
	}
	toks = append(toks, token{tokEOF, "", len(input)})
	return toks, nil
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
