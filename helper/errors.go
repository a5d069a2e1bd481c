package helper

import "fmt"

// NewError wraps err with a short context label, the way the store/postgres
// operations in this module report failure.
func NewError(context string, err error) error {
	return fmt.Errorf("%s: %w", context, err)
}
