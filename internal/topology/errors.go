package topology

import "errors"

// Callers branch on these with errors.Is; call sites attach context with %w.
var (
	// ErrTooFewNodes indicates a node count below one.
	ErrTooFewNodes = errors.New("topology: node count too small")

	// ErrInvalidConnectivity indicates a connectivity outside [0,1].
	ErrInvalidConnectivity = errors.New("topology: connectivity out of range")

	// ErrUnknownMode indicates a topology mode other than chain, branch or random.
	ErrUnknownMode = errors.New("topology: unknown mode")

	// ErrNeedRand indicates a stochastic construction was requested without a
	// random source.
	ErrNeedRand = errors.New("topology: random source is required")
)
