package outbound

import (
	"context"

	"github.com/greenpack/storefront/internal/domain/catalog"
)

// CatalogPort defines read access to varieties and plan tiers.
type CatalogPort interface {
	GetVariety(ctx context.Context, id string) (*catalog.Variety, error)
	GetPlanTier(ctx context.Context, id catalog.TierID) (*catalog.PlanTier, error)
	ListVarieties(ctx context.Context) ([]*catalog.Variety, error)
	ListPlanTiers(ctx context.Context) ([]*catalog.PlanTier, error)
}
