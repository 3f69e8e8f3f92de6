package payment

import (
	"errors"
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Payment errors.
var (
	ErrUnsupportedMethod = fmt.Errorf("%w: unsupported payment method", apperrors.ErrValidation)
	ErrInvalidSubmission = fmt.Errorf("%w: invalid order submission", apperrors.ErrInvariantViolation)
	ErrPaymentDeclined   = errors.New("payment declined")
)
