package irt

import (
	"github.com/pkg/errors"
)

//
// InvalidInputError is returned when there is nothing to calibrate:
// an empty observation collection, student set or item set.
//
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidInput(reason string) error {
	return &InvalidInputError{Reason: reason}
}

//
// IsInvalidInput reports whether err (or anything it wraps)
// is an InvalidInputError.
//
func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}
