// File: internal/kms/errors.go
package kms

import "errors"

// ErrAuth indicates a GCM tag mismatch or a wrap/unwrap failure at the
// provider boundary. It is the only error kind kms exposes; callers must
// not distinguish further (the taxonomy deliberately collapses "bad tag"
// and "provider refused to unwrap" into one opaque signal, so a caller
// can't use error text to probe which byte of a blob is wrong).
var ErrAuth = errors.New("kms: crypto auth failure")

// EOF: internal/kms/errors.go
