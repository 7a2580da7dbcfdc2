package delta

// CancelFunc is consulted at the suspension points enumerated in spec §5:
// before each target in a multi-target operation, before each replay
// revision, between editor calls inside the sync filter, and during long
// window loops. Returning a non-nil error (conventionally a Cancelled()
// error) aborts the enclosing edit.
type CancelFunc func() error

// Check invokes fn if it is non-nil, otherwise reports no cancellation.
func (fn CancelFunc) Check() error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Flag is a process-wide cancellation flag, e.g. set from a UNIX signal
// handler. The handler only ever calls Set(); everything else consults it
// through a CancelFunc returned by AsCancelFunc, keeping the actual
// cancellation path an ordinary error return rather than a panic or
// runtime.Goexit.
type Flag struct {
	cancelled chan struct{}
}

// NewFlag returns a ready-to-use cancellation flag.
func NewFlag() *Flag {
	return &Flag{cancelled: make(chan struct{})}
}

// Set flips the flag. Safe to call from a signal handler; safe to call
// more than once.
func (f *Flag) Set() {
	select {
	case <-f.cancelled:
	default:
		close(f.cancelled)
	}
}

// IsSet reports whether Set has been called.
func (f *Flag) IsSet() bool {
	select {
	case <-f.cancelled:
		return true
	default:
		return false
	}
}

// AsCancelFunc adapts the flag to a CancelFunc for use with combinator.Cancel.
func (f *Flag) AsCancelFunc() CancelFunc {
	return func() error {
		if f.IsSet() {
			return Cancelled()
		}
		return nil
	}
}
