package ops

import (
	"context"
	"slices"

	"github.com/hpungsan/council/internal/persona"
)

// AdvisorItem is a registry persona with its panel state.
type AdvisorItem struct {
	persona.Persona
	Recommended bool `json:"recommended"`
	Selected    bool `json:"selected"`
}

// AdvisorsOutput contains the result of the Advisors operation.
type AdvisorsOutput struct {
	Items     []AdvisorItem `json:"items"`
	Analyzing bool          `json:"analyzing"`
	PanelSize int           `json:"panel_size"`
}

// Advisors lists all personas in registry order, marking the recommended
// and selected ones.
func (c *Controller) Advisors(ctx context.Context) *AdvisorsOutput {
	c.mu.Lock()
	defer c.mu.Unlock()

	recommended := c.slot.Recommended()
	selected := c.slot.Selected()

	all := c.registry.All()
	items := make([]AdvisorItem, len(all))
	for i, p := range all {
		items[i] = AdvisorItem{
			Persona:     p,
			Recommended: slices.Contains(recommended, p.ID),
			Selected:    slices.Contains(selected, p.ID),
		}
	}
	return &AdvisorsOutput{
		Items:     items,
		Analyzing: c.slot.Analyzing(),
		PanelSize: persona.PanelSize,
	}
}
