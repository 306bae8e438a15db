package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// OpenInput contains parameters for the OpenSession operation.
type OpenInput struct {
	ID string // required
}

// OpenSession loads an archived session into the active slot on the
// consultation screen. Personas no longer in the registry are dropped from
// its panel.
func (c *Controller) OpenSession(ctx context.Context, input OpenInput) (*View, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("session id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := session.FindInArchive(c.archive, id)
	if !ok {
		return nil, errors.NewNotFound("session", id)
	}

	c.slot.Load(sess)
	c.slot.Retain(c.registry.Has)
	c.persist(ctx)
	return c.view(), nil
}
