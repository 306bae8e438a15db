package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/errors"
)

// SubmitInput contains parameters for the SubmitProblem operation.
type SubmitInput struct {
	Problem string // required, non-blank
}

// SubmitProblem moves the slot from welcome to selection and starts the
// panel recommendation in the background. It returns as soon as the
// transition is persisted; use WaitRecommendation to block on the result.
func (c *Controller) SubmitProblem(ctx context.Context, input SubmitInput) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen, err := c.slot.Submit(input.Problem, c.newID())
	if err != nil {
		return nil, err
	}
	c.persist(ctx)

	done := make(chan struct{})
	c.pending = done
	problem := c.slot.Problem()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		c.recommend(gen, problem)
	}()

	return c.view(), nil
}

// recommend runs the classifier and applies its result if the slot is still
// on submission gen.
func (c *Controller) recommend(gen uint64, problem string) {
	rec := c.advisor.Recommend(c.baseCtx, problem)

	ids := make([]string, 0, len(rec.IDs))
	for _, id := range rec.IDs {
		if c.registry.Has(id) {
			ids = append(ids, id)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.slot.ApplyRecommendation(gen, ids) {
		c.logger.Debug("discarding stale recommendation", zap.Uint64("generation", gen))
		return
	}
	if rec.Fallback {
		c.logger.Info("using default panel", zap.Strings("ids", ids), zap.Error(rec.Err))
	}
	c.persist(c.baseCtx)
}

// WaitRecommendation blocks until the most recent recommendation has landed
// or ctx is done. It returns immediately when none is pending.
func (c *Controller) WaitRecommendation(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending == nil {
		return nil
	}
	select {
	case <-pending:
		return nil
	case <-ctx.Done():
		return errors.NewCancelled("wait for recommendation")
	}
}
