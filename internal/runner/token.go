package runner

import "sync/atomic"

// Token is a cooperative cancellation token. It is checked at every snapshot call; it never
// interrupts an algorithm between checkpoints.
type Token struct {
	cancelled atomic.Bool
}

// Cancel flags the token. Safe to call multiple times and from any goroutine.
func (t *Token) Cancel() { t.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// Err returns the cancellation signal once the token is cancelled, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return errCancelled
	}
	return nil
}
