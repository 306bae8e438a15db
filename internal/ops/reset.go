package ops

import "context"

// Reset returns to the welcome screen and detaches the active session.
// Its archive entry, if any, is kept. Results of any in-flight
// recommendation or round are discarded when they land.
func (c *Controller) Reset(ctx context.Context) *View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slot.Reset()
	c.persist(ctx)
	return c.view()
}
