package worker

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"syscall"
	"time"
)

// IsTransient reports whether an error belongs to the fixed set of failure
// kinds eligible for automatic re-delivery: connection errors, timeouts and
// I/O errors. Everything else is a terminal outcome on first attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	for _, target := range []error{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EPIPE,
		syscall.ETIMEDOUT,
		io.ErrUnexpectedEOF,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

const maxBackoffShift = 20

// RetryDelay computes the delay before re-attempting a failed delivery:
// exponential backoff with jitter, capped at max. It is a pure function of
// the attempt count so it can be tested without a live broker.
func RetryDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}

	d := max
	if attempt >= 0 && attempt < maxBackoffShift {
		if scaled := base << uint(attempt); scaled > 0 && scaled < max {
			d = scaled
		}
	}

	// Jitter inside [d/2, d] so concurrent retries spread out.
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
