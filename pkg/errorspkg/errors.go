// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates internal server error.
//
// Infrastructure failures are logged where they happen and collapsed into
// ErrInternal before they reach the delivery layer.
var ErrInternal = errors.New("internal")
