package expr

import (
	"fmt"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

// SyntaxError reports an expression that cannot be parsed. Pos is the
// byte offset into Expr where the problem was detected.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return dynamo.ErrSyntax }

// UnknownSymbolError reports a name that is neither declared nor part of
// the function vocabulary.
type UnknownSymbolError struct {
	Expr   string
	Symbol string
	Pos    int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q in %q at offset %d", e.Symbol, e.Expr, e.Pos)
}

func (e *UnknownSymbolError) Unwrap() error { return dynamo.ErrUnknownSymbol }
