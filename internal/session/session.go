// Package session models the consultation state: transcript messages,
// archived sessions and the single active slot with its screen state machine.
package session

import (
	"fmt"
	"slices"
)

// Screen is a state of the consultation flow.
type Screen string

const (
	ScreenWelcome      Screen = "welcome"
	ScreenSelection    Screen = "selection"
	ScreenConsultation Screen = "consultation"
)

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenWelcome, ScreenSelection, ScreenConsultation:
		return true
	}
	return false
}

// Role identifies the author kind of a transcript message.
type Role string

const (
	RoleUser    Role = "user"
	RolePersona Role = "persona"
)

// Message is one transcript entry.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`

	// PersonaID is set only for persona messages
	PersonaID string `json:"persona_id,omitempty"`

	// CreatedAt is a unix millisecond timestamp, non-decreasing within a slot.
	// Display only; transcript order is insertion order.
	CreatedAt int64 `json:"created_at"`
}

// UserMessage builds a user transcript entry.
func UserMessage(text string, at int64) Message {
	return Message{Role: RoleUser, Text: text, CreatedAt: at}
}

// PersonaMessage builds a persona transcript entry.
func PersonaMessage(personaID, text string, at int64) Message {
	return Message{Role: RolePersona, Text: text, PersonaID: personaID, CreatedAt: at}
}

// Session is the unit of persistence and resumption.
type Session struct {
	// ID is a ULID assigned on first problem submission and never regenerated
	ID string `json:"id"`

	// UpdatedAt is the unix millisecond timestamp of the last archive write
	UpdatedAt int64 `json:"updated_at"`

	// Problem is the original problem statement
	Problem string `json:"problem"`

	// SelectedIDs is the ordered panel, at most 3 unique persona IDs
	SelectedIDs []string `json:"selected_ids"`

	// Transcript is the ordered message sequence
	Transcript []Message `json:"transcript"`
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.SelectedIDs = slices.Clone(s.SelectedIDs)
	s.Transcript = slices.Clone(s.Transcript)
	return s
}

// Validate checks the structural invariants of an archived session.
func (s Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if len(s.Transcript) == 0 {
		return fmt.Errorf("session %s has an empty transcript", s.ID)
	}
	if err := validatePanel(s.SelectedIDs); err != nil {
		return fmt.Errorf("session %s: %w", s.ID, err)
	}
	return validateTranscript(s.Transcript)
}

// Snapshot is the persisted form of the active slot.
type Snapshot struct {
	Screen         Screen    `json:"screen"`
	SessionID      string    `json:"session_id,omitempty"`
	Problem        string    `json:"problem"`
	RecommendedIDs []string  `json:"recommended_ids"`
	SelectedIDs    []string  `json:"selected_ids"`
	Transcript     []Message `json:"transcript"`
}

// Validate checks that a stored snapshot is structurally sound.
func (s *Snapshot) Validate() error {
	if !s.Screen.Valid() {
		return fmt.Errorf("unknown screen %q", s.Screen)
	}
	if err := validatePanel(s.SelectedIDs); err != nil {
		return err
	}
	return validateTranscript(s.Transcript)
}

func validatePanel(ids []string) error {
	if len(ids) > MaxPanel {
		return fmt.Errorf("panel has %d personas (max %d)", len(ids), MaxPanel)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("panel lists %q twice", id)
		}
		seen[id] = true
	}
	return nil
}

func validateTranscript(msgs []Message) error {
	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
			if m.PersonaID != "" {
				return fmt.Errorf("message %d: user message carries persona id", i)
			}
		case RolePersona:
			if m.PersonaID == "" {
				return fmt.Errorf("message %d: persona message without persona id", i)
			}
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}
