package factory

import "errors"

// ErrInvalidConfig is returned for documents that cannot be loaded.
// Messages wrap it with the offending field.
var ErrInvalidConfig = errors.New("invalid configuration")
