package gallery

import (
	"context"
	"fmt"

	"lens/internal/posts"
)

// Mount subscribes to the change feed, performs the initial refresh and
// keeps the views in sync until Unmount, ctx cancellation or a feed
// disconnect. Mounting a mounted controller is a no-op.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if mounted {
		return nil
	}

	sub, err := c.feed.Subscribe(ctx)
	if err != nil {
		c.alert(err.Error())
		return fmt.Errorf("subscribe to post changes: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		cancel()
		_ = sub.Close()
		return nil
	}
	c.mounted = true
	c.cancel = cancel
	c.done = done
	c.changed()
	c.mu.Unlock()

	go c.listen(loopCtx, sub, done)

	return c.Refresh(ctx)
}

// Unmount stops live updates and releases the subscription. It blocks until
// the listener has exited and is safe to call at any time.
func (c *Controller) Unmount() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mounted = false
	c.cancel = nil
	c.done = nil
	c.changed()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Mounted reports whether live updates are active
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

func (c *Controller) listen(ctx context.Context, sub posts.Subscription, done chan struct{}) {
	defer close(done)
	defer c.detach(done)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				c.logger.Warn("Post change feed disconnected, live updates stopped")
				return
			}
			c.logger.Debug("Post changed, refreshing", "op", ev.Op, "id", ev.ID)
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("Live refresh failed", "error", err)
			}
		}
	}
}

// detach clears the mounted state when the loop ends on its own
func (c *Controller) detach(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return
	}
	c.cancel()
	c.mounted = false
	c.cancel = nil
	c.done = nil
	c.changed()
}
