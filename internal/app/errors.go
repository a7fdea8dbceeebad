package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds for service errors.
var (
	ErrUnknownItem = errors.New("item not found")
)

// NewUnknownItem reports a rank lookup for an item without a score.
func NewUnknownItem(image string) error {
	return fmt.Errorf("%w: %s", ErrUnknownItem, image)
}
