package queue

import "errors"

// ErrClosed is returned for work enqueued on, or still queued in, a closed
// mutator.
var ErrClosed = errors.New("mutator closed")
