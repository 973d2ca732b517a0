// Package sentinel holds infrastructure facts shared by storage layers.
package sentinel

import "errors"

// ErrNotFound reports that a cache backend holds no entry for a key. Backends
// return it unwrapped on a miss; any other error is a transport or decode
// failure and is wrapped with the key.
var ErrNotFound = errors.New("not found")
