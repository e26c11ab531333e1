package runtime

import (
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

// ErrorHandler tolerates up to max subsequent errors of a recurring task. Handle returns nil while
// the task may keep going and the error itself once the limit is exceeded.
type ErrorHandler struct {
	max     int32
	counter *atomic.Int32
}

func NewErrorHandler(maxSubsequentErrors int) *ErrorHandler {
	return &ErrorHandler{
		max:     int32(maxSubsequentErrors),
		counter: atomic.NewInt32(0),
	}
}

func (h *ErrorHandler) Handle(err error) error {
	n := h.counter.Inc()
	if n > h.max {
		klog.ErrorS(err, "Reached maximum subsequent errors, refusing to handle", "max", h.max)
		return err
	}
	klog.ErrorS(err, "An error occurred", "count", n, "max", h.max)
	return nil
}

// Reset is called after every successful run.
func (h *ErrorHandler) Reset() {
	h.counter.Store(0)
}

func (h *ErrorHandler) Count() int {
	return int(h.counter.Load())
}
