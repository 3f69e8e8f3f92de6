package catalog

import (
	"errors"
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Domain errors for catalog.
var (
	ErrVarietyNotFound = errors.New("variety not found")
	ErrTierNotFound    = errors.New("plan tier not found")
	ErrInvalidVariety  = fmt.Errorf("%w: invalid variety", apperrors.ErrInvariantViolation)
	ErrInvalidTier     = fmt.Errorf("%w: invalid plan tier", apperrors.ErrInvariantViolation)
)
