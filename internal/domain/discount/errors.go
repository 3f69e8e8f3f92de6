package discount

import (
	"fmt"

	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// ErrMalformedResponse is returned when the discount service accepts a
// code but describes it in a way pricing cannot use.
var ErrMalformedResponse = fmt.Errorf("%w: malformed discount response", apperrors.ErrService)
