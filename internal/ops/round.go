package ops

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/council/internal/advisor"
	"github.com/hpungsan/council/internal/persona"
	"github.com/hpungsan/council/internal/session"
)

// roundTask is one persona call within a round.
type roundTask struct {
	persona  persona.Persona
	question string
	prior    []session.Turn
}

// runRound dispatches every task concurrently and returns their answers in
// task order once all have finished. Each task is bounded by the round
// timeout; a task that exceeds it yields advisor.TimeoutText. Tasks never
// fail the group. Callers pass c.baseCtx, so only Close ends a round early.
func (c *Controller) runRound(ctx context.Context, tasks []roundTask) []advisor.Advice {
	results := make([]advisor.Advice, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if c.maxParallel > 0 {
		g.SetLimit(c.maxParallel)
	}

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = c.adviseWithTimeout(gctx, task)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if r.Fallback {
			c.logger.Warn("persona answered with placeholder",
				zap.String("persona", tasks[i].persona.ID),
				zap.Error(r.Err))
		}
	}
	return results
}

// adviseWithTimeout runs one advice call under the round timeout. The call
// runs on its own goroutine so a provider that ignores cancellation cannot
// hold the round past the deadline.
func (c *Controller) adviseWithTimeout(ctx context.Context, task roundTask) advisor.Advice {
	if c.roundTimeout <= 0 {
		return c.advisor.Advise(ctx, task.persona, task.question, task.prior)
	}

	tctx, cancel := context.WithTimeout(ctx, c.roundTimeout)
	defer cancel()

	ch := make(chan advisor.Advice, 1)
	go func() {
		ch <- c.advisor.Advise(tctx, task.persona, task.question, task.prior)
	}()

	select {
	case a := <-ch:
		return a
	case <-tctx.Done():
		err := tctx.Err()
		if stderrors.Is(err, context.DeadlineExceeded) {
			return advisor.Advice{Text: advisor.TimeoutText, Fallback: true, Err: err}
		}
		return advisor.Advice{Text: advisor.ErrorText, Fallback: true, Err: err}
	}
}

// finishRound stamps the answers and appends them to the transcript if the
// slot has not been re-targeted since token was issued.
func (c *Controller) finishRound(ctx context.Context, token uint64, tasks []roundTask, answers []advisor.Advice) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.slot.Stamp(c.now())
	msgs := make([]session.Message, len(tasks))
	for i, task := range tasks {
		msgs[i] = session.PersonaMessage(task.persona.ID, answers[i].Text, at)
	}

	if !c.slot.FinishRound(token, msgs) {
		c.logger.Info("discarding round results for an abandoned session")
		return c.view(), nil
	}
	c.persist(ctx)
	c.syncArchive(ctx)
	return c.view(), nil
}

// panel resolves the selected ids to personas, in selection order. Must hold c.mu.
func (c *Controller) panel() []persona.Persona {
	ids := c.slot.Selected()
	out := make([]persona.Persona, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.registry.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}
