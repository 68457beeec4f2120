package core

import "context"

// Canceller is polled once per loop iteration, after the frame has been
// written. It must not block.
type Canceller interface {
	Cancelled(frame int, key int) bool
}

// CancelFunc adapts a function to Canceller
type CancelFunc func(frame int, key int) bool

func (f CancelFunc) Cancelled(frame int, key int) bool {
	return f(frame, key)
}

// KeyCanceller triggers when the display reports the given key
func KeyCanceller(key int) Canceller {
	return CancelFunc(func(_ int, pressed int) bool {
		return key >= 0 && pressed&0xFF == key
	})
}

// ContextCanceller triggers once ctx is done
func ContextCanceller(ctx context.Context) Canceller {
	return CancelFunc(func(int, int) bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	})
}

// AfterFrames triggers once n frames have been handled; n <= 0 never triggers
func AfterFrames(n int) Canceller {
	return CancelFunc(func(frame int, _ int) bool {
		return n > 0 && frame >= n
	})
}

// AnyCanceller triggers when any of cs triggers
func AnyCanceller(cs ...Canceller) Canceller {
	return CancelFunc(func(frame int, key int) bool {
		for _, c := range cs {
			if c != nil && c.Cancelled(frame, key) {
				return true
			}
		}
		return false
	})
}
