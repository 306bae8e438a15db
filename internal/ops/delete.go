package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// DeleteInput contains parameters for the DeleteSession operation.
type DeleteInput struct {
	ID string // required
}

// DeleteOutput contains the result of the DeleteSession operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`

	// ActiveReset is true when the deleted session was the active one and the
	// slot was reset to the welcome screen.
	ActiveReset bool `json:"active_reset"`
}

// DeleteSession removes an archived session. Deleting the active session
// also resets the slot.
func (c *Controller) DeleteSession(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("session id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	archive, ok := session.RemoveFromArchive(c.archive, id)
	if !ok {
		return nil, errors.NewNotFound("session", id)
	}
	c.archive = archive
	c.saveArchive(ctx)

	out := &DeleteOutput{Deleted: true, ID: id}
	if c.slot.SessionID() == id {
		c.slot.Reset()
		c.persist(ctx)
		out.ActiveReset = true
	}
	return out, nil
}
