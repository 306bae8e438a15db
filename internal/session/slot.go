package session

import (
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/persona"
)

// MaxPanel is the maximum number of selected personas.
const MaxPanel = persona.PanelSize

// Slot is the single active consultation. It owns the screen pointer and is
// not safe for concurrent use; callers serialize access.
type Slot struct {
	screen      Screen
	sessionID   string
	problem     string
	recommended []string
	selected    []string
	transcript  []Message

	// process-local, never persisted
	analyzing  bool
	consulting bool

	// generation changes whenever the slot is re-targeted (submit, reset, load)
	// so that late provider results for an abandoned state can be dropped.
	generation uint64

	lastStamp int64
}

// NewSlot returns an empty slot on the welcome screen.
func NewSlot() *Slot {
	return &Slot{screen: ScreenWelcome}
}

// Restore rebuilds a slot from a persisted snapshot. A nil snapshot yields NewSlot.
func Restore(snap *Snapshot) *Slot {
	if snap == nil {
		return NewSlot()
	}
	s := &Slot{
		screen:      snap.Screen,
		sessionID:   snap.SessionID,
		problem:     snap.Problem,
		recommended: slices.Clone(snap.RecommendedIDs),
		selected:    slices.Clone(snap.SelectedIDs),
		transcript:  slices.Clone(snap.Transcript),
	}
	if !s.screen.Valid() {
		s.screen = ScreenWelcome
	}
	for _, m := range s.transcript {
		s.lastStamp = max(s.lastStamp, m.CreatedAt)
	}
	return s
}

// Snapshot returns the persisted view of the slot.
func (s *Slot) Snapshot() Snapshot {
	return Snapshot{
		Screen:         s.screen,
		SessionID:      s.sessionID,
		Problem:        s.problem,
		RecommendedIDs: nonNil(s.recommended),
		SelectedIDs:    nonNil(s.selected),
		Transcript:     nonNilMessages(s.transcript),
	}
}

// Accessors. Slices are returned as copies.

// Screen returns the current screen.
func (s *Slot) Screen() Screen { return s.screen }

// SessionID returns the attached session id, or "" when detached.
func (s *Slot) SessionID() string { return s.sessionID }

// Problem returns the submitted problem.
func (s *Slot) Problem() string { return s.problem }

// Recommended returns the recommended persona ids.
func (s *Slot) Recommended() []string { return slices.Clone(s.recommended) }

// Selected returns the panel in selection order.
func (s *Slot) Selected() []string { return slices.Clone(s.selected) }

// Transcript returns the messages in insertion order.
func (s *Slot) Transcript() []Message { return slices.Clone(s.transcript) }

// Analyzing reports whether a recommendation is pending.
func (s *Slot) Analyzing() bool { return s.analyzing }

// Consulting reports whether a round is in flight.
func (s *Slot) Consulting() bool { return s.consulting }

// Generation returns the token pending recommendations and rounds must match.
func (s *Slot) Generation() uint64 { return s.generation }

// IsSelected reports whether id is on the panel.
func (s *Slot) IsSelected(id string) bool { return slices.Contains(s.selected, id) }

// Stamp converts t to unix milliseconds, never going backwards within the slot.
func (s *Slot) Stamp(t time.Time) int64 {
	ms := t.UnixMilli()
	if ms < s.lastStamp {
		ms = s.lastStamp
	}
	s.lastStamp = ms
	return ms
}

// Submit moves welcome -> selection with a new problem. newID is attached only
// if the slot has no session yet. Returns the generation the pending
// recommendation must match to be applied.
func (s *Slot) Submit(problem, newID string) (uint64, error) {
	if s.screen != ScreenWelcome {
		return 0, errors.NewInvalidTransition("submit a problem", string(s.screen))
	}
	if strings.TrimSpace(problem) == "" {
		return 0, errors.NewInvalidRequest("problem must not be blank")
	}

	if s.sessionID == "" {
		s.sessionID = newID
	}
	s.problem = problem
	s.screen = ScreenSelection
	s.recommended = nil
	s.selected = nil
	s.analyzing = true
	s.generation++
	return s.generation, nil
}

// ApplyRecommendation installs ids as both recommended and selected panel.
// It is ignored (returns false) when the slot moved on since generation gen.
func (s *Slot) ApplyRecommendation(gen uint64, ids []string) bool {
	if gen != s.generation || !s.analyzing {
		return false
	}
	s.analyzing = false
	s.recommended = slices.Clone(ids)
	s.selected = slices.Clone(ids)
	return true
}

// Toggle adds or removes id from the panel on the selection screen.
// Adding to a full panel is a no-op. Reports whether the panel changed.
func (s *Slot) Toggle(id string) (bool, error) {
	if s.screen != ScreenSelection {
		return false, errors.NewInvalidTransition("change the panel", string(s.screen))
	}
	if i := slices.Index(s.selected, id); i >= 0 {
		s.selected = slices.Delete(slices.Clone(s.selected), i, i+1)
		return true, nil
	}
	if len(s.selected) >= MaxPanel {
		return false, nil
	}
	s.selected = append(slices.Clone(s.selected), id)
	return true, nil
}

// Begin moves selection -> consultation and resets the transcript to the
// problem statement. Returns the round token for FinishRound.
func (s *Slot) Begin(at int64) (uint64, error) {
	if s.consulting {
		return 0, errors.NewBusy()
	}
	if s.screen != ScreenSelection {
		return 0, errors.NewInvalidTransition("begin the round table", string(s.screen))
	}
	if len(s.selected) == 0 {
		return 0, errors.NewInvalidRequest("select at least one advisor")
	}

	s.screen = ScreenConsultation
	s.transcript = []Message{UserMessage(s.problem, at)}
	s.consulting = true
	return s.generation, nil
}

// StartFollowUp appends a user question on the consultation screen. It returns
// the transcript as it was before the question and the round token.
func (s *Slot) StartFollowUp(question string, at int64) ([]Message, uint64, error) {
	if s.consulting {
		return nil, 0, errors.NewBusy()
	}
	if s.screen != ScreenConsultation {
		return nil, 0, errors.NewInvalidTransition("ask a follow-up", string(s.screen))
	}
	if strings.TrimSpace(question) == "" {
		return nil, 0, errors.NewInvalidRequest("question must not be blank")
	}
	if len(s.selected) == 0 {
		return nil, 0, errors.NewInvalidRequest("select at least one advisor")
	}

	before := slices.Clone(s.transcript)
	s.transcript = append(slices.Clone(s.transcript), UserMessage(question, at))
	s.consulting = true
	return before, s.generation, nil
}

// FinishRound appends the round's persona messages and clears the consulting
// flag. Results for a round whose slot was reset or reloaded are dropped.
func (s *Slot) FinishRound(token uint64, msgs []Message) bool {
	if token != s.generation {
		return false
	}
	s.transcript = append(slices.Clone(s.transcript), msgs...)
	s.consulting = false
	return true
}

// Adjust moves consultation -> selection keeping the transcript.
func (s *Slot) Adjust() error {
	if s.consulting {
		return errors.NewBusy()
	}
	if s.screen != ScreenConsultation {
		return errors.NewInvalidTransition("adjust the panel", string(s.screen))
	}
	s.screen = ScreenSelection
	return nil
}

// Clear empties the transcript on the consultation screen.
func (s *Slot) Clear() error {
	if s.consulting {
		return errors.NewBusy()
	}
	if s.screen != ScreenConsultation {
		return errors.NewInvalidTransition("clear the transcript", string(s.screen))
	}
	s.transcript = nil
	return nil
}

// Reset returns to the welcome screen and detaches the session.
func (s *Slot) Reset() {
	s.screen = ScreenWelcome
	s.sessionID = ""
	s.problem = ""
	s.recommended = nil
	s.selected = nil
	s.transcript = nil
	s.analyzing = false
	s.consulting = false
	s.generation++
}

// Load replaces the slot with an archived session on the consultation screen.
func (s *Slot) Load(sess Session) {
	s.screen = ScreenConsultation
	s.sessionID = sess.ID
	s.problem = sess.Problem
	s.selected = slices.Clone(sess.SelectedIDs)
	s.transcript = slices.Clone(sess.Transcript)
	s.recommended = nil
	s.analyzing = false
	s.consulting = false
	s.generation++
	for _, m := range s.transcript {
		s.lastStamp = max(s.lastStamp, m.CreatedAt)
	}
}

// Archivable returns the archive copy of the slot, stamped at. It reports false
// when there is no session id or the transcript is empty.
func (s *Slot) Archivable(at int64) (Session, bool) {
	if s.sessionID == "" || len(s.transcript) == 0 {
		return Session{}, false
	}
	return Session{
		ID:          s.sessionID,
		UpdatedAt:   at,
		Problem:     s.problem,
		SelectedIDs: nonNil(s.selected),
		Transcript:  slices.Clone(s.transcript),
	}, true
}

// Retain drops selected and recommended ids for which keep returns false.
// Used after restoring a snapshot written against a different registry.
func (s *Slot) Retain(keep func(id string) bool) {
	s.selected = slices.DeleteFunc(slices.Clone(s.selected), func(id string) bool { return !keep(id) })
	s.recommended = slices.DeleteFunc(slices.Clone(s.recommended), func(id string) bool { return !keep(id) })
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}

func nonNilMessages(msgs []Message) []Message {
	if msgs == nil {
		return []Message{}
	}
	return slices.Clone(msgs)
}
