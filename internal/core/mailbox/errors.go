package mailbox

import (
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimedOut matches any *WaitTimedOutError via errors.Is
var ErrWaitTimedOut = errors.New("wait timed out")

// WaitTimedOutError is returned when a wait elapses without a message.
// It is an expected outcome, not a failure of the mailbox.
type WaitTimedOutError struct {
	Direction Direction
	Timeout   time.Duration
}

func (e *WaitTimedOutError) Error() string {
	return fmt.Sprintf("no %s message within %s", e.Direction, e.Timeout)
}

// Is reports whether target is ErrWaitTimedOut
func (e *WaitTimedOutError) Is(target error) bool {
	return target == ErrWaitTimedOut
}

// IsTimeout reports whether err is a wait timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimedOut)
}
