package closer

import (
	"sync"

	"go.uber.org/multierr"
)

type (
	Closer interface {
		Close() error
	}

	// CloserFunc lets a plain function take part in a group
	CloserFunc func() error

	// CloserGroup releases resources in reverse order of registration
	CloserGroup struct {
		mu      sync.Mutex
		closers []Closer
	}
)

func (f CloserFunc) Close() error {
	return f()
}

func NewCloserGroup(closers ...Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

func (c *CloserGroup) Add(closers ...Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, closers...)
}

// Close closes every registered closer, even after a failure, and returns
// all errors combined. The group is empty afterwards.
func (c *CloserGroup) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var err error

	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}

	return err
}
