package detect

import "errors"

// Sentinel errors identifying the fixed set of failure kinds a caller can
// check for with errors.Is, rather than parsing message text.
var (
	// ErrInvalidArgument marks a rejected parameter or an in-place
	// SetParams change that would require reallocating detector state.
	ErrInvalidArgument = errors.New("detect: invalid argument")

	// ErrUnsupportedMode marks a Mode value New or ExecFFT cannot act on.
	ErrUnsupportedMode = errors.New("detect: unsupported mode")
)
