package card

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyID is returned by Register when the card id is blank.
	ErrEmptyID = errors.New("card: empty id")
	// ErrClosed is returned by Register after Close.
	ErrClosed = errors.New("card: registry closed")
)

// PanicError wraps a value recovered from a panicking update hook.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("card: update panicked: %v", e.Value)
}
