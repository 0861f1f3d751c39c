package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedName is returned when a product name has too few fields to be parsed.
	ErrMalformedName = errors.New("malformed product name")

	// ErrMissingFootprint is reported when a duplicate candidate has no geometry to compare.
	ErrMissingFootprint = errors.New("missing footprint")

	// ErrDegenerateFootprint is reported when a footprint cannot be used for overlap math.
	ErrDegenerateFootprint = errors.New("degenerate footprint")
)

// MalformedNameError describes a product name that could not be split into
// the expected number of fields.
type MalformedNameError struct {
	Name   string
	Fields int
	Want   int
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed product name %q: got %d fields, want at least %d", e.Name, e.Fields, e.Want)
}

// Is reports ErrMalformedName as a match.
func (e *MalformedNameError) Is(target error) bool {
	return target == ErrMalformedName
}

// MissingFootprintError is reported for a record that shares its identity key
// with other records but carries no geometry. Such records are always kept.
type MissingFootprintError struct {
	Name string
	Key  string
}

func (e *MissingFootprintError) Error() string {
	return fmt.Sprintf("record %q in group %q has no footprint", e.Name, e.Key)
}

// Is reports ErrMissingFootprint as a match.
func (e *MissingFootprintError) Is(target error) bool {
	return target == ErrMissingFootprint
}
