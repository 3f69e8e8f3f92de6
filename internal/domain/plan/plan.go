package plan

import (
	"fmt"

	"github.com/greenpack/storefront/internal/domain/catalog"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Selection is the quantity chosen for one variety in a plan box.
type Selection struct {
	VarietyID string `json:"variety_id"`
	Quantity  int    `json:"quantity"`
}

// Result is the outcome of validating a plan configuration.
type Result struct {
	Valid      bool
	Errors     []string
	TotalPacks int
}

// Err returns a configuration error carrying every message, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfiguration, apperrors.Configuration(r.Errors))
}

// TotalPacks sums the quantities of a selection list. Negative quantities
// count as zero.
func TotalPacks(selections []Selection) int {
	total := 0
	for _, s := range selections {
		if s.Quantity > 0 {
			total += s.Quantity
		}
	}
	return total
}

// Validate checks a variety breakdown against a tier's pack requirement.
func Validate(tier catalog.PlanTier, selections []Selection) Result {
	var errs []string

	seen := make(map[string]struct{}, len(selections))
	for _, s := range selections {
		if s.VarietyID == "" {
			errs = append(errs, "variety id is required")
			continue
		}
		if _, dup := seen[s.VarietyID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate variety %s", s.VarietyID))
		}
		seen[s.VarietyID] = struct{}{}
	}

	total := TotalPacks(selections)
	if tier.IsFixed() {
		required := tier.Required()
		switch {
		case total < required:
			errs = append(errs, fmt.Sprintf("need %s", packCount(required-total, "more ")))
		case total > required:
			errs = append(errs, fmt.Sprintf("remove %s", packCount(total-required, "")))
		}
	} else if total <= 0 {
		errs = append(errs, "select at least 1 pack")
	}

	return Result{
		Valid:      len(errs) == 0,
		Errors:     errs,
		TotalPacks: total,
	}
}

func packCount(n int, qualifier string) string {
	if n == 1 {
		return fmt.Sprintf("1 %spack", qualifier)
	}
	return fmt.Sprintf("%d %spacks", n, qualifier)
}
