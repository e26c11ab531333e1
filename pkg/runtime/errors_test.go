package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	errFoo := errors.New("foo")

	t.Run("single error", func(t *testing.T) {
		h := NewErrorHandler(1)
		assert.NoError(t, h.Handle(errFoo))
	})

	t.Run("subsequent errors up to the limit", func(t *testing.T) {
		h := NewErrorHandler(3)
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.Handle(errFoo))
		}
		assert.Equal(t, 3, h.Count())
	})

	t.Run("reset", func(t *testing.T) {
		h := NewErrorHandler(3)
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.Handle(errFoo))
		}
		h.Reset()
		assert.Zero(t, h.Count())
		assert.NoError(t, h.Handle(errors.New("bar")))
	})

	t.Run("too many errors", func(t *testing.T) {
		h := NewErrorHandler(3)
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.Handle(errFoo))
		}
		final := errors.New("final error")
		assert.Same(t, final, h.Handle(final))
	})
}
