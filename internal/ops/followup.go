package ops

import (
	"context"

	"github.com/hpungsan/council/internal/session"
)

// FollowUpInput contains parameters for the FollowUp operation.
type FollowUpInput struct {
	Question string // required, non-blank
}

// FollowUp appends the question to the transcript and runs a round in which
// each selected persona sees its own private view of the history: its own
// answers as its own turns, and other personas' answers relayed as user
// turns attributed to the speaker. Like BeginRoundTable, the round outlives
// ctx.
func (c *Controller) FollowUp(ctx context.Context, input FollowUpInput) (*View, error) {
	c.mu.Lock()
	before, token, err := c.slot.StartFollowUp(input.Question, c.slot.Stamp(c.now()))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	panel := c.panel()
	c.persist(ctx)
	c.syncArchive(ctx)
	c.mu.Unlock()

	tasks := make([]roundTask, len(panel))
	for i, p := range panel {
		tasks[i] = roundTask{
			persona:  p,
			question: input.Question,
			prior:    session.PrivateHistory(before, p.ID, c.registry.Name),
		}
	}

	answers := c.runRound(c.baseCtx, tasks)
	return c.finishRound(ctx, token, tasks, answers)
}
