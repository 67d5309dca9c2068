package expr

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number"
	case tokName:
		return "name"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokCaret:
		return "'^'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	pos  int
	num  float64
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			end := scanNumber(src, i)
			v, err := strconv.ParseFloat(src[i:end], 64)
			if err != nil {
				return nil, &SyntaxError{Expr: src, Pos: i, Msg: fmt.Sprintf("malformed number %q", src[i:end])}
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:end], pos: i, num: v})
			i = end
		case isNameStart(c):
			end := i + 1
			for end < len(src) && (isNameStart(src[end]) || isDigit(src[end])) {
				end++
			}
			toks = append(toks, token{kind: tokName, text: src[i:end], pos: i})
			i = end
		default:
			kind, width := operator(src, i)
			if kind == tokEOF {
				return nil, &SyntaxError{Expr: src, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind: kind, text: src[i : i+width], pos: i})
			i += width
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func scanNumber(src string, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	// Exponent only when digits follow, so "2e" before a name stays "2" "e...".
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func operator(src string, i int) (tokenKind, int) {
	switch src[i] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		if i+1 < len(src) && src[i+1] == '*' {
			return tokCaret, 2
		}
		return tokStar, 1
	case '/':
		return tokSlash, 1
	case '^':
		return tokCaret, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	case ',':
		return tokComma, 1
	}
	return tokEOF, 0
}

// resolver expands every name run into declared symbols, constants,
// function names and digit groups, using greedy longest-first matching
// with backtracking.
type resolver struct {
	src     string
	symbols map[string]int
}

func (r *resolver) resolve(toks []token) ([]token, error) {
	out := make([]token, 0, len(toks))
	for i, t := range toks {
		if t.kind != tokName {
			out = append(out, t)
			continue
		}
		callFollows := toks[i+1].kind == tokLParen
		pieces, err := r.split(t, callFollows)
		if err != nil {
			return nil, err
		}
		out = append(out, pieces...)
	}
	return out, nil
}

func (r *resolver) split(t token, callFollows bool) ([]token, error) {
	run := t.text
	if _, ok := r.symbols[run]; ok {
		return []token{t}, nil
	}

	failed := make(map[int]bool)
	var walk func(i int) []token
	walk = func(i int) []token {
		if i == len(run) {
			return []token{}
		}
		if failed[i] {
			return nil
		}
		for l := len(run) - i; l > 0; l-- {
			sub := run[i : i+l]
			end := i+l == len(run)
			if !r.acceptable(sub, i, end, callFollows) {
				continue
			}
			rest := walk(i + l)
			if rest == nil {
				continue
			}
			piece := token{kind: tokName, text: sub, pos: t.pos + i}
			if isDigit(sub[0]) {
				v, _ := strconv.ParseFloat(sub, 64)
				piece = token{kind: tokNumber, text: sub, pos: t.pos + i, num: v}
			}
			return append([]token{piece}, rest...)
		}
		failed[i] = true
		return nil
	}

	if pieces := walk(0); pieces != nil {
		return pieces, nil
	}

	if IsFunction(run) {
		return nil, &SyntaxError{Expr: r.src, Pos: t.pos, Msg: fmt.Sprintf("function %q requires a parenthesized argument", run)}
	}
	for l := len(run); l > 0; l-- {
		if r.acceptable(run[:l], 0, true, true) {
			return nil, &SyntaxError{Expr: r.src, Pos: t.pos,
				Msg: fmt.Sprintf("cannot split %q into declared symbols", run)}
		}
	}
	return nil, &UnknownSymbolError{Expr: r.src, Symbol: run, Pos: t.pos}
}

func (r *resolver) acceptable(sub string, at int, end, callFollows bool) bool {
	if _, ok := r.symbols[sub]; ok {
		return true
	}
	if _, ok := constants[sub]; ok {
		return true
	}
	if IsFunction(sub) {
		return end && callFollows
	}
	if at > 0 && allDigits(sub) {
		return true
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
