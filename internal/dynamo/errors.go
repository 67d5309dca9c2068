package dynamo

import (
	"errors"
	"fmt"
)

// Configuration errors. Every failure of a construction or update
// operation wraps exactly one of these.
var (
	// ErrSyntax indicates an expression that cannot be parsed.
	ErrSyntax = errors.New("dynamo: syntax error")

	// ErrUnknownSymbol indicates an expression referencing an undeclared symbol.
	ErrUnknownSymbol = errors.New("dynamo: unknown symbol")

	// ErrParameterType indicates a parameter value that is not numeric.
	ErrParameterType = errors.New("dynamo: parameter value is not numeric")

	// ErrParameterValidity indicates an invalid or colliding parameter name.
	ErrParameterValidity = errors.New("dynamo: invalid parameter name")

	// ErrLimitType indicates an axis or time bound that is not numeric.
	ErrLimitType = errors.New("dynamo: limit is not numeric")

	// ErrLimitMagnitude indicates min >= max on an axis or a time bound with the wrong sign.
	ErrLimitMagnitude = errors.New("dynamo: limit has invalid magnitude")

	// ErrInvalidCoordinates indicates an empty, duplicated or reserved coordinate list.
	ErrInvalidCoordinates = errors.New("dynamo: invalid phase coordinates")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidResolution indicates a sampling grid with fewer than two points per axis.
	ErrInvalidResolution = errors.New("dynamo: grid resolution must be at least 2x2")

	// ErrNotReady indicates an operation attempted while the model is not Ready.
	ErrNotReady = errors.New("dynamo: phase space model is not ready")
)

// ErrDomain names the runtime condition where an evaluation yields NaN or
// Inf. It is never returned by the core: the non-finite value itself is
// the signal, and samplers and integrators check for it.
var ErrDomain = errors.New("dynamo: evaluation produced a non-finite value")

// ConfigError wraps a taxonomy sentinel with the offending field.
type ConfigError struct {
	Kind  error
	Field string
	Value any
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%v: %s = %v", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Kind
}
