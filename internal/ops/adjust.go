package ops

import "context"

// AdjustPanel returns from consultation to selection so the panel can be
// changed. The transcript is kept.
func (c *Controller) AdjustPanel(ctx context.Context) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.slot.Adjust(); err != nil {
		return nil, err
	}
	c.persist(ctx)
	return c.view(), nil
}
