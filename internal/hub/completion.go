package hub

import (
	"context"
	"time"
)

// completion is the single outstanding command slot of a port. It is
// resolved exactly once: by hub feedback, by its timer, by a newer command
// on the same port, or by detach.
type completion struct {
	done     chan error
	timer    *time.Timer
	feedback bool // hub output feedback resolves it
}

func newCompletion(feedback bool) *completion {
	return &completion{done: make(chan error, 1), feedback: feedback}
}

// resolve stops the timer and delivers err. Caller must hold the hub lock
// and clear the port's slot.
func (c *completion) resolve(err error) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	select {
	case c.done <- err:
	default:
	}
}

// wait blocks until the completion resolves or ctx ends.
func (c *completion) wait(ctx context.Context) error {
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cancelPending resolves whatever command is outstanding on p with err.
// Caller must hold the hub lock.
func (p *port) cancelPending(err error) {
	if p.pending == nil {
		return
	}
	c := p.pending
	p.pending = nil
	c.resolve(err)
}
