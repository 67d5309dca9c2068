package expr

import (
	"math"
	"sort"
)

type funcDef struct {
	arity  int
	unary  func(float64) float64
	binary func(float64, float64) float64
}

var functions = map[string]funcDef{
	"sin":   {arity: 1, unary: math.Sin},
	"cos":   {arity: 1, unary: math.Cos},
	"tan":   {arity: 1, unary: math.Tan},
	"sec":   {arity: 1, unary: func(x float64) float64 { return 1 / math.Cos(x) }},
	"csc":   {arity: 1, unary: func(x float64) float64 { return 1 / math.Sin(x) }},
	"cot":   {arity: 1, unary: func(x float64) float64 { return 1 / math.Tan(x) }},
	"asin":  {arity: 1, unary: math.Asin},
	"acos":  {arity: 1, unary: math.Acos},
	"atan":  {arity: 1, unary: math.Atan},
	"sinh":  {arity: 1, unary: math.Sinh},
	"cosh":  {arity: 1, unary: math.Cosh},
	"tanh":  {arity: 1, unary: math.Tanh},
	"exp":   {arity: 1, unary: math.Exp},
	"log":   {arity: 1, unary: math.Log},
	"ln":    {arity: 1, unary: math.Log},
	"log10": {arity: 1, unary: math.Log10},
	"log2":  {arity: 1, unary: math.Log2},
	"sqrt":  {arity: 1, unary: math.Sqrt},
	"cbrt":  {arity: 1, unary: math.Cbrt},
	"abs":   {arity: 1, unary: math.Abs},
	"sign":  {arity: 1, unary: sign},
	"floor": {arity: 1, unary: math.Floor},
	"ceil":  {arity: 1, unary: math.Ceil},
	"atan2": {arity: 2, binary: math.Atan2},
	"min":   {arity: 2, binary: math.Min},
	"max":   {arity: 2, binary: math.Max},
	"pow":   {arity: 2, binary: math.Pow},
}

var constants = map[string]float64{
	"pi": math.Pi,
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	}
	return math.NaN()
}

// IsFunction reports whether name belongs to the fixed function vocabulary.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

// Functions lists the function vocabulary in sorted order.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsIdentifier reports whether s is usable as a coordinate or parameter
// name: a letter or underscore followed by letters, digits or underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isNameStart(c) || (i > 0 && isDigit(c)) {
			continue
		}
		return false
	}
	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
