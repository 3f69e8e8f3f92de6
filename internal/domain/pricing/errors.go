package pricing

import (
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Domain errors for pricing.
var (
	ErrInvalidInput        = fmt.Errorf("%w: invalid pricing input", apperrors.ErrInvariantViolation)
	ErrUnknownDiscountKind = fmt.Errorf("%w: unknown discount kind", apperrors.ErrInvariantViolation)
)
