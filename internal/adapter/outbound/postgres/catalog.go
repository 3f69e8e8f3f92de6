package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/port/outbound"
)

// VarietyRecord is the varieties table row. Prices are stored in cents.
type VarietyRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:128;not null"`
	UnitPriceCents int64  `gorm:"not null"`
	Theme          string `gorm:"size:64"`
	Active         bool   `gorm:"not null;default:true"`
	DisplayOrder   int    `gorm:"not null;default:0"`
}

// TableName returns the table name for VarietyRecord.
func (VarietyRecord) TableName() string { return "varieties" }

// PlanTierRecord is the plan_tiers table row. The subscription discount is
// stored in basis points; RequiredPacks is NULL for open tiers.
type PlanTierRecord struct {
	ID                  string `gorm:"primaryKey;size:32"`
	Name                string `gorm:"size:64;not null"`
	RequiredPacks       *int
	DiscountBasisPoints int `gorm:"not null;default:0"`
}

// TableName returns the table name for PlanTierRecord.
func (PlanTierRecord) TableName() string { return "plan_tiers" }

var basisPoints = decimal.NewFromInt(10000)

func (r VarietyRecord) toDomain() (*catalog.Variety, error) {
	v := catalog.Variety{
		ID:        r.ID,
		Name:      r.Name,
		UnitPrice: money.FromCents(r.UnitPriceCents),
		Theme:     r.Theme,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r PlanTierRecord) toDomain() (*catalog.PlanTier, error) {
	t := catalog.PlanTier{
		ID:            catalog.TierID(r.ID),
		Name:          r.Name,
		RequiredPacks: r.RequiredPacks,
		DiscountRate:  decimal.NewFromInt(int64(r.DiscountBasisPoints)).Div(basisPoints),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// catalogAdapter implements outbound.CatalogPort.
type catalogAdapter struct {
	db *gorm.DB
}

// NewCatalogAdapter creates a new catalog database adapter.
func NewCatalogAdapter(db *gorm.DB) outbound.CatalogPort {
	return &catalogAdapter{db: db}
}

func (a *catalogAdapter) GetVariety(ctx context.Context, id string) (*catalog.Variety, error) {
	var rec VarietyRecord
	err := a.db.WithContext(ctx).First(&rec, "id = ? AND active = ?", id, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrVarietyNotFound, id)
		}
		return nil, err
	}
	return rec.toDomain()
}

func (a *catalogAdapter) GetPlanTier(ctx context.Context, id catalog.TierID) (*catalog.PlanTier, error) {
	var rec PlanTierRecord
	err := a.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrTierNotFound, id)
		}
		return nil, err
	}
	return rec.toDomain()
}

func (a *catalogAdapter) ListVarieties(ctx context.Context) ([]*catalog.Variety, error) {
	var recs []VarietyRecord
	err := a.db.WithContext(ctx).
		Where("active = ?", true).
		Order("display_order ASC").
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*catalog.Variety, 0, len(recs))
	for _, rec := range recs {
		v, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *catalogAdapter) ListPlanTiers(ctx context.Context) ([]*catalog.PlanTier, error) {
	var recs []PlanTierRecord
	// Open tiers (NULL packs) sort first, like the static catalog.
	err := a.db.WithContext(ctx).
		Order("CASE WHEN required_packs IS NULL THEN 0 ELSE 1 END").
		Order("required_packs ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*catalog.PlanTier, 0, len(recs))
	for _, rec := range recs {
		t, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Migrate creates or updates the catalog tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&VarietyRecord{}, &PlanTierRecord{})
}

// SeedCatalog upserts varieties and tiers, in the order given.
func SeedCatalog(ctx context.Context, db *gorm.DB, varieties []catalog.Variety, tiers []catalog.PlanTier) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, v := range varieties {
			if err := v.Validate(); err != nil {
				return err
			}
			rec := VarietyRecord{
				ID:             v.ID,
				Name:           v.Name,
				UnitPriceCents: v.UnitPrice.Cents(),
				Theme:          v.Theme,
				Active:         true,
				DisplayOrder:   i,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
				return fmt.Errorf("seed variety %s: %w", v.ID, err)
			}
		}
		for _, t := range tiers {
			if err := t.Validate(); err != nil {
				return err
			}
			rec := PlanTierRecord{
				ID:                  string(t.ID),
				Name:                t.Name,
				RequiredPacks:       t.RequiredPacks,
				DiscountBasisPoints: int(t.DiscountRate.Mul(basisPoints).IntPart()),
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
				return fmt.Errorf("seed plan tier %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// Compile-time check
var _ outbound.CatalogPort = (*catalogAdapter)(nil)
