package ops

import (
	"context"

	"github.com/hpungsan/council/internal/errors"
)

// ToggleInput contains parameters for the Toggle operation.
type ToggleInput struct {
	PersonaID string // required
}

// ToggleOutput contains the result of the Toggle operation.
type ToggleOutput struct {
	// Changed is false when adding to a full panel (a no-op).
	Changed bool  `json:"changed"`
	View    *View `json:"view"`
}

// Toggle adds or removes a persona from the panel on the selection screen.
func (c *Controller) Toggle(ctx context.Context, input ToggleInput) (*ToggleOutput, error) {
	if input.PersonaID == "" {
		return nil, errors.NewInvalidRequest("persona id is required")
	}
	if !c.registry.Has(input.PersonaID) {
		return nil, errors.NewNotFound("persona", input.PersonaID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed, err := c.slot.Toggle(input.PersonaID)
	if err != nil {
		return nil, err
	}
	if changed {
		c.persist(ctx)
	}
	return &ToggleOutput{Changed: changed, View: c.view()}, nil
}
