package store

import "errors"

// ErrNotFound is returned by repositories when a lookup matches no rows.
var ErrNotFound = errors.New("not found")
