package session

import (
	"strings"
	"time"
	"unicode/utf8"
)

// PreviewRunes is the maximum length of a problem preview.
const PreviewRunes = 80

// UntitledProblem is shown for sessions with a blank problem.
const UntitledProblem = "未命名咨询"

// Summary is a compact view of an archived session for history listings.
type Summary struct {
	ID           string    `json:"id"`
	Preview      string    `json:"preview"`
	UpdatedAt    time.Time `json:"updated_at"`
	SelectedIDs  []string  `json:"selected_ids"`
	MessageCount int       `json:"message_count"`
}

// Summarize builds the listing view of s.
func Summarize(s Session) Summary {
	return Summary{
		ID:           s.ID,
		Preview:      Preview(s.Problem),
		UpdatedAt:    time.UnixMilli(s.UpdatedAt).UTC(),
		SelectedIDs:  nonNil(s.SelectedIDs),
		MessageCount: len(s.Transcript),
	}
}

// Preview collapses whitespace and truncates problem to PreviewRunes runes.
func Preview(problem string) string {
	p := strings.Join(strings.Fields(problem), " ")
	if p == "" {
		return UntitledProblem
	}
	if utf8.RuneCountInString(p) <= PreviewRunes {
		return p
	}
	r := []rune(p)
	return string(r[:PreviewRunes]) + "…"
}
