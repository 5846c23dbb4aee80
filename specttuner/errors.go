package specttuner

import "errors"

// Sentinel errors identifying the fixed set of failure kinds a caller can
// check for with errors.Is, rather than parsing message text.
var (
	// ErrInvalidArgument marks a rejected parameter: a malformed window
	// size, an out-of-range channel frequency or bandwidth, and so on.
	ErrInvalidArgument = errors.New("specttuner: invalid argument")

	// ErrCallbackRejected marks a channel OnData callback returning false;
	// the remaining open channels are still fed for that window.
	ErrCallbackRejected = errors.New("specttuner: channel callback rejected data")
)
