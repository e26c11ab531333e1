package runtime

import (
	"context"
)

// LabeledCloser is a shutdown hook named after the dependency it stops.
type LabeledCloser struct {
	Label  string
	Closer func(context.Context) error
}
