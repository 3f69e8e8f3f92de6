package cart

import (
	"errors"
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Domain errors for cart.
var (
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity out of range", apperrors.ErrValidation)
	ErrInvalidFrequency = fmt.Errorf("%w: unknown delivery frequency", apperrors.ErrValidation)
	ErrUnknownVariety   = errors.New("unknown variety")
	ErrNonPositivePrice = fmt.Errorf("%w: unit price must be positive", apperrors.ErrInvariantViolation)
	ErrInvalidSnapshot  = fmt.Errorf("%w: corrupt cart snapshot", apperrors.ErrInvariantViolation)
)
