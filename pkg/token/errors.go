package token

import "errors"

// ErrInvalidIndex is returned when an index falls outside the known tables.
var ErrInvalidIndex = errors.New("token: index out of range")
