package ops

import "context"

// ClearTranscript empties the active transcript on the consultation screen.
// The archived copy is left as it was: an empty transcript is never archived.
func (c *Controller) ClearTranscript(ctx context.Context) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.slot.Clear(); err != nil {
		return nil, err
	}
	c.persist(ctx)
	return c.view(), nil
}
