// Package store provides crash-safe persistence for engine state, positions
// and operational logs.
package store

import (
	"context"

	"condor-trader/internal/models"
)

// Store is the persistence interface. The engine flushes its state through
// it after every mutation; on startup the store is the ground truth for
// resuming a basket.
type Store interface {
	// SaveEngineState writes the singleton engine state row.
	SaveEngineState(ctx context.Context, state *models.EngineState) error

	// GetEngineState reads the singleton engine state row. Returns a
	// default IDLE state when none has been written yet. Operator control
	// fields are not part of this row; see GetControlFlags.
	GetEngineState(ctx context.Context) (*models.EngineState, error)

	// SaveControlFlags writes the singleton operator control row.
	SaveControlFlags(ctx context.Context, flags *models.ControlFlags) error

	// GetControlFlags reads the singleton operator control row. Returns
	// nil when no control command has written it yet.
	GetControlFlags(ctx context.Context) (*models.ControlFlags, error)

	// ReplaceLegs atomically replaces the persisted leg set.
	ReplaceLegs(ctx context.Context, legs []models.Leg) error

	// GetLegs returns the persisted leg set in insertion order.
	GetLegs(ctx context.Context) ([]models.Leg, error)

	// AppendOrderLog appends one row to the order log.
	AppendOrderLog(ctx context.Context, entry *models.OrderLogEntry) error

	// GetOrderLog returns the most recent order log rows, newest first.
	GetOrderLog(ctx context.Context, limit int) ([]models.OrderLogEntry, error)

	// AppendSystemLog appends one row to the system log.
	AppendSystemLog(ctx context.Context, message string) error

	// GetSystemLog returns the most recent system log rows, newest first.
	GetSystemLog(ctx context.Context, limit int) ([]models.SystemLogEntry, error)

	// AddExpiry appends a manual expiry (DD-MMM-YYYY) to the ordered list.
	AddExpiry(ctx context.Context, expiry string) error

	// GetExpiries returns manual expiries in insertion order.
	GetExpiries(ctx context.Context) ([]string, error)

	// ClearExpiries removes all manual expiries.
	ClearExpiries(ctx context.Context) error

	Close() error
}
