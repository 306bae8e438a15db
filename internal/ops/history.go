package ops

import (
	"context"

	"github.com/hpungsan/council/internal/session"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []session.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	ActiveID   string            `json:"active_id,omitempty"`
	Sort       string            `json:"sort"`
}

// History lists archived sessions, most recently touched first.
func (c *Controller) History(ctx context.Context, input HistoryInput) *HistoryOutput {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	c.mu.Lock()
	defer c.mu.Unlock()

	total := len(c.archive)
	start := min(offset, total)
	end := min(start+limit, total)

	items := make([]session.Summary, 0, end-start)
	for _, s := range c.archive[start:end] {
		items = append(items, session.Summarize(s))
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
		ActiveID: c.slot.SessionID(),
		Sort:     "touched_desc",
	}
}
