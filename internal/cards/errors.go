package cards

import "errors"

var (
	errNotMounted = errors.New("cards: pane not mounted")
	// ErrUnknownKind is returned by Build for an unrecognised card kind.
	ErrUnknownKind = errors.New("cards: unknown card kind")
)
