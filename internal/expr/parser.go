package expr

import "fmt"

// Grammar, lowest to highest precedence:
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary | <implicit> power)*
//	unary   := ('-' | '+') unary | power
//	power   := primary (('^' | '**') unary)?
//	primary := number | symbol | constant | func '(' args ')' | '(' expr ')'
//
// Implicit multiplication binds like '*' and applies whenever a name,
// a number or '(' directly follows a complete factor.
type parser struct {
	src     string
	toks    []token
	i       int
	symbols map[string]int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (Node, error) {
	if p.peek().kind == tokEOF {
		return nil, p.errorf(0, "empty expression")
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t.pos, "unexpected %s", describe(t))
	}
	return n, nil
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := byte('+')
		if t.kind == tokMinus {
			op = '-'
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tokStar, tokSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			op := byte('*')
			if t.kind == tokSlash {
				op = '/'
			}
			left = &Binary{Op: op, L: left, R: right}
		case tokName, tokNumber, tokLParen:
			if t.kind == tokNumber && p.toks[p.i-1].kind == tokNumber {
				return nil, p.errorf(t.pos, "missing operator between numbers")
			}
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: '*', L: left, R: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch p.peek().kind {
	case tokMinus:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Neg{X: x}, nil
	case tokPlus:
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: '^', L: base, R: exp}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &Num{Value: t.num}, nil
	case tokLParen:
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errorf(c.pos, "expected ')' but found %s", describe(c))
		}
		return n, nil
	case tokName:
		if slot, ok := p.symbols[t.text]; ok {
			return &Sym{Name: t.text, Slot: slot}, nil
		}
		if v, ok := constants[t.text]; ok {
			return &Const{Name: t.text, Value: v}, nil
		}
		if IsFunction(t.text) {
			return p.parseCall(t)
		}
		return nil, &UnknownSymbolError{Expr: p.src, Symbol: t.text, Pos: t.pos}
	}
	return nil, p.errorf(t.pos, "unexpected %s", describe(t))
}

func (p *parser) parseCall(name token) (Node, error) {
	if t := p.next(); t.kind != tokLParen {
		return nil, p.errorf(t.pos, "function %q requires a parenthesized argument", name.text)
	}
	var args []Node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t := p.next()
		if t.kind == tokRParen {
			break
		}
		if t.kind != tokComma {
			return nil, p.errorf(t.pos, "expected ',' or ')' but found %s", describe(t))
		}
	}
	def := functions[name.text]
	if len(args) != def.arity {
		return nil, p.errorf(name.pos, "function %q takes %d argument(s), got %d", name.text, def.arity, len(args))
	}
	return &Call{Func: name.text, Args: args}, nil
}

func describe(t token) string {
	if t.text == "" {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}
