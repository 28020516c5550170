package pin

import (
	"context"
	"time"
)

// startCountdownLocked supersedes any running countdown and starts one for
// c.session. The caller holds c.mu.
func (c *Controller) startCountdownLocked() {
	// The old goroutine may be blocked on c.mu; it sees the new generation
	// and exits on its own, so it is not waited for here.
	c.stopCountdownLocked()

	c.gen++
	c.remaining = SecondsLeft(c.session.ExpiresAt, c.now())
	if c.remaining == 0 {
		c.state = Expired
		return
	}
	c.state = Active

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.gen, c.session.ExpiresAt, c.done)
}

// stopCountdownLocked cancels the running countdown and returns the channel
// closed when its goroutine exits (nil when none runs). The generation is
// bumped so a tick already in flight is ignored. The caller holds c.mu and
// must not wait on the channel while holding it.
func (c *Controller) stopCountdownLocked() chan struct{} {
	if c.cancel == nil {
		return nil
	}
	c.gen++
	c.cancel()
	done := c.done
	c.cancel, c.done = nil, nil
	return done
}

func (c *Controller) run(ctx context.Context, gen uint64, expiresAt time.Time, done chan struct{}) {
	defer close(done)

	ticks, stop := c.newTicker(time.Second)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.remaining = SecondsLeft(expiresAt, c.now())
		finished := c.remaining == 0
		if finished {
			// A generation in flight owns the state until it completes.
			if c.state == Active {
				c.state = Expired
			}
			c.cancel()
			c.cancel, c.done = nil, nil
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		if c.notify != nil {
			c.notify(snap)
		}
		if finished {
			return
		}
	}
}
