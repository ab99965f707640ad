package repository

import "errors"

// ErrNotFound is returned by every repository when no row matches.
// The engine maps it to the appropriate protocol error; repositories
// never speak OAuth.
var ErrNotFound = errors.New("not found")
