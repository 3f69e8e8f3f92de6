package checkout

import (
	"errors"
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// Domain errors for checkout.
var (
	ErrInvalidTransition     = errors.New("invalid step transition")
	ErrStepInvalid           = fmt.Errorf("%w: step has invalid fields", apperrors.ErrValidation)
	ErrEmptyCart             = fmt.Errorf("%w: cart is empty", apperrors.ErrValidation)
	ErrNoShippingOption      = fmt.Errorf("%w: no shipping option selected", apperrors.ErrValidation)
	ErrUnknownShippingOption = fmt.Errorf("%w: unknown shipping option", apperrors.ErrValidation)
	ErrCheckoutClosed        = errors.New("checkout already placed")
	ErrPlacementInProgress   = errors.New("order placement in progress")
	ErrRequestPending        = fmt.Errorf("%w: discount or shipping update still pending", apperrors.ErrValidation)
	ErrPlacementFailed       = fmt.Errorf("%w: order placement failed", apperrors.ErrService)
)
