package types

import "errors"

// ErrNotFound is returned by stores for operations on a wallet that is not in the list.
var ErrNotFound = errors.New("not found")
