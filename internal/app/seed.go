package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/masterdata"
)

// Registry is the part of the store the starter seed writes through.
type Registry interface {
	Entities(kind masterdata.Kind) []masterdata.Entity
	AddEntity(ctx context.Context, e masterdata.Entity) (masterdata.Entity, error)
}

// StarterSafeBalance is the opening balance of the default safe.
var StarterSafeBalance = decimal.NewFromInt(100000)

// SeedStarterData registers a default warehouse, branch and safe for every
// one of those collections that is still empty.
func SeedStarterData(ctx context.Context, reg Registry) (int, error) {
	starters := []masterdata.Entity{
		masterdata.Warehouse{ID: "w1", Name: "Main Warehouse", Location: "Riyadh"},
		masterdata.Branch{ID: "b1", Name: "Central Branch", City: "Riyadh"},
		masterdata.Safe{ID: "s1", Name: "Main Safe", Balance: StarterSafeBalance},
	}
	added := 0
	for _, e := range starters {
		if len(reg.Entities(e.EntityKind())) > 0 {
			continue
		}
		if _, err := reg.AddEntity(ctx, e); err != nil {
			return added, fmt.Errorf("app: seed %s: %w", e.EntityKind(), err)
		}
		added++
	}
	return added, nil
}
