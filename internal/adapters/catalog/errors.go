package catalog

import (
	"errors"
	"fmt"
)

// Sentinel kinds for catalog errors.
var (
	ErrLoad  = errors.New("catalog unreadable")
	ErrParse = errors.New("catalog unparseable")
	ErrEmpty = errors.New("catalog contains no items")
)

// WrapLoad tags a read failure with the catalog path.
func WrapLoad(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
}

// WrapParse tags a decode failure with the catalog path.
func WrapParse(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrParse, path, err)
}

// NewEmpty reports a catalog that parsed but yielded no identifiers.
func NewEmpty(path string) error {
	return fmt.Errorf("%w: %s", ErrEmpty, path)
}
