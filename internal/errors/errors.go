// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrPaused             = errors.New("engine is paused")
	ErrNoExpiries         = errors.New("no expiries configured")
	ErrNoLegs             = errors.New("no legs selected")
	ErrEmptyChain         = errors.New("option chain is empty")
	ErrNoLiveQuotes       = errors.New("no live quotes available")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrNotForceExited     = errors.New("engine is not in FORCE_EXITED state")
)

// LegExecutionError reports a broker order failure for a single leg of the
// basket. Legs placed before the failure are left in place.
type LegExecutionError struct {
	Symbol string
	Side   string
	Placed int
	Err    error
}

func (e *LegExecutionError) Error() string {
	return fmt.Sprintf("leg execution failed [%s %s] after %d fills: %v", e.Side, e.Symbol, e.Placed, e.Err)
}

func (e *LegExecutionError) Unwrap() error {
	return e.Err
}

// NewLegExecutionError creates a new LegExecutionError.
func NewLegExecutionError(symbol, side string, placed int, err error) *LegExecutionError {
	return &LegExecutionError{
		Symbol: symbol,
		Side:   side,
		Placed: placed,
		Err:    err,
	}
}

// DataError represents a market-data availability error (empty chain,
// missing quotes, malformed responses).
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// PersistenceError represents a store write failure. The engine treats these
// as non-fatal: it continues with in-memory state as authoritative.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// BrokerError represents an error from the broker API.
type BrokerError struct {
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code, message string, err error) *BrokerError {
	return &BrokerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
