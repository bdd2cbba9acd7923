// Package store defines the persistence interface for the treasury
// parameters the valuation runs against. Implementations include
// PostgreSQL (source of truth), Redis (read-through cache), and in-memory
// (for testing and single-instance runs).
//
// Only the current parameter set is kept. Valuation results are never
// stored.
package store

import (
	"context"
	"errors"

	"github.com/mnavtrack/nav-engine/internal/model"
)

// ErrNotFound is returned when no treasury parameters have been saved yet.
var ErrNotFound = errors.New("store: treasury parameters not found")

// Store is the persistence interface for treasury parameters.
type Store interface {
	// GetTreasury returns the current parameters, or ErrNotFound.
	GetTreasury(ctx context.Context) (*model.TreasuryParameters, error)

	// SaveTreasury replaces the current parameters.
	SaveTreasury(ctx context.Context, params *model.TreasuryParameters) error
}

// Seed saves params if the store is still empty and returns whatever the
// store holds afterwards. Used at startup so configured parameters do not
// overwrite ones that were hot-reloaded through the API.
func Seed(ctx context.Context, st Store, params *model.TreasuryParameters) (*model.TreasuryParameters, error) {
	current, err := st.GetTreasury(ctx)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := st.SaveTreasury(ctx, params); err != nil {
		return nil, err
	}
	return params, nil
}
