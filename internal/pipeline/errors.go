package pipeline

import (
	"errors"
	"fmt"
)

// ErrInputNotFound is returned when the input CSV does not exist.
var ErrInputNotFound = errors.New("input file not found")

// ConnectivityError reports that the completion service could not be reached
// before any record was processed.
type ConnectivityError struct {
	Provider string
	Err      error
}

func (e *ConnectivityError) Error() string {
	if e == nil {
		return "connectivity error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s is not reachable", e.Provider)
	}
	return fmt.Sprintf("%s is not reachable: %v", e.Provider, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
