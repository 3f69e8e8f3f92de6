package plan

import "errors"

// ErrInvalidConfiguration is returned when a plan box breaks its tier's
// pack requirement.
var ErrInvalidConfiguration = errors.New("invalid plan configuration")
