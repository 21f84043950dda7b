package repository

import "errors"

// ErrNotFound indicates the requested key or record does not exist, or its
// TTL has elapsed. Both KV backends report absence and expiry identically.
var ErrNotFound = errors.New("repository: not found")
