package ops

import (
	"context"
	"time"

	"github.com/hpungsan/council/internal/session"
)

// View is the presentation state of the active slot.
type View struct {
	Screen         session.Screen `json:"screen"`
	SessionID      string         `json:"session_id,omitempty"`
	Problem        string         `json:"problem"`
	Analyzing      bool           `json:"analyzing"`
	Consulting     bool           `json:"consulting"`
	RecommendedIDs []string       `json:"recommended_ids"`
	SelectedIDs    []string       `json:"selected_ids"`
	Transcript     []MessageView  `json:"transcript"`
}

// MessageView is a transcript entry with its display author resolved.
type MessageView struct {
	Role      session.Role `json:"role"`
	Author    string       `json:"author"`
	PersonaID string       `json:"persona_id,omitempty"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created_at"`
}

// Status returns the current view of the active slot.
func (c *Controller) Status(ctx context.Context) *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// view builds the View. Must hold c.mu.
func (c *Controller) view() *View {
	snap := c.slot.Snapshot()
	return &View{
		Screen:         snap.Screen,
		SessionID:      snap.SessionID,
		Problem:        snap.Problem,
		Analyzing:      c.slot.Analyzing(),
		Consulting:     c.slot.Consulting(),
		RecommendedIDs: snap.RecommendedIDs,
		SelectedIDs:    snap.SelectedIDs,
		Transcript:     c.messageViews(snap.Transcript),
	}
}

func (c *Controller) messageViews(msgs []session.Message) []MessageView {
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		out[i] = MessageView{
			Role:      m.Role,
			Author:    session.AuthorName(m, c.registry.Name),
			PersonaID: m.PersonaID,
			Text:      m.Text,
			CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
		}
	}
	return out
}
