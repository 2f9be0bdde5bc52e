package entities

import (
	"errors"
	"fmt"
	"math/big"
)

// Sentinel errors for swap validation. Callers match them with errors.Is;
// call sites add context with fmt.Errorf("...: %w", err).
var (
	// ErrExplicitFeeTierRequired is returned when a v3 operation is invoked
	// without a fee tier. v3 deploys one pool per tier, so there is no
	// meaningful default to fall back to.
	ErrExplicitFeeTierRequired = errors.New("fee tier must be set explicitly for v3")

	// ErrInvalidFeeTier is returned for fee values outside the deployed tier
	// set, or for explicit non-default tiers on v1/v2.
	ErrInvalidFeeTier = errors.New("invalid fee tier")

	// ErrInvalidTokenArgument is returned when the token arguments cannot
	// describe a swap (same token on both sides, unset addresses).
	ErrInvalidTokenArgument = errors.New("invalid token arguments")

	// ErrInsufficientBalance is returned when the trader cannot cover the
	// input side of a trade. The typed InsufficientBalanceError carries the
	// amounts.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientLiquidity is returned when a pool cannot serve the
	// requested amount: empty reserves, or an exact output that meets or
	// exceeds the output reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrUnsupportedRoute is returned when a caller supplies a custom path
	// on a version that cannot execute one.
	ErrUnsupportedRoute = errors.New("custom routes not supported on this version")

	// ErrNoPoolFound is returned when the factory has no pool for the pair
	// (and tier, on v3).
	ErrNoPoolFound = errors.New("no pool found for token pair")

	// ErrUnsupportedOperation is returned when an operation exists in the
	// API surface but the targeted protocol version cannot perform it.
	ErrUnsupportedOperation = errors.New("operation not supported by this protocol version")
)

// InsufficientBalanceError reports how much the trader holds versus what the
// trade requires, both in base units of the input asset.
type InsufficientBalanceError struct {
	Have *big.Int
	Need *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Have, e.Need)
}

// Is makes the typed error match the ErrInsufficientBalance sentinel.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// NewInsufficientBalanceError copies both amounts so later mutation of the
// caller's values cannot change the report.
func NewInsufficientBalanceError(have, need *big.Int) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Have: new(big.Int).Set(have),
		Need: new(big.Int).Set(need),
	}
}

// UnsupportedOperationError names the operation and the version that rejected
// it, e.g. token-to-token pricing on v1.
type UnsupportedOperationError struct {
	Version   Version
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s not supported on %s", e.Operation, e.Version)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}
