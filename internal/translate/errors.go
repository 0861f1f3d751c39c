package translate

import "errors"

// Errors returned by ToBackendParams. The API maps ErrCollectionNotFound to
// 404 and the others to 400.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidGeometry    = errors.New("invalid bbox or intersects")
	ErrInvalidDateTime    = errors.New("invalid datetime")
)
