package ops

import (
	"context"
)

// BeginRoundTable moves selection -> consultation and runs the first round:
// every selected persona answers the problem with no prior history. It
// blocks until all personas have answered or timed out. The round is not
// bound to ctx: only the round timeout and Close cut it short.
func (c *Controller) BeginRoundTable(ctx context.Context) (*View, error) {
	c.mu.Lock()
	token, err := c.slot.Begin(c.slot.Stamp(c.now()))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	problem := c.slot.Problem()
	panel := c.panel()
	c.persist(ctx)
	c.syncArchive(ctx)
	c.mu.Unlock()

	tasks := make([]roundTask, len(panel))
	for i, p := range panel {
		tasks[i] = roundTask{persona: p, question: problem}
	}

	answers := c.runRound(c.baseCtx, tasks)
	return c.finishRound(ctx, token, tasks, answers)
}
