package ops

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/advisor"
	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/db"
	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/persona"
	"github.com/hpungsan/council/internal/session"
)

// fakeAdvisor answers "answer from <id>" after a per-persona delay.
type fakeAdvisor struct {
	mu sync.Mutex

	panel  []string
	delays map[string]time.Duration

	// gate, when set, blocks Advise until it is closed
	gate chan struct{}

	// recommendGate blocks Recommend for the given problem until closed
	recommendGate map[string]chan struct{}
	panels        map[string][]string

	priors map[string][]session.Turn
	calls  int
}

func newFakeAdvisor() *fakeAdvisor {
	return &fakeAdvisor{
		panel:         []string{"buffett", "munger", "naval"},
		delays:        map[string]time.Duration{},
		recommendGate: map[string]chan struct{}{},
		panels:        map[string][]string{},
		priors:        map[string][]session.Turn{},
	}
}

func (f *fakeAdvisor) Recommend(ctx context.Context, problem string) advisor.Recommendation {
	f.mu.Lock()
	gate := f.recommendGate[problem]
	ids, ok := f.panels[problem]
	if !ok {
		ids = f.panel
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return advisor.Recommendation{Fallback: true, Err: ctx.Err()}
		}
	}
	return advisor.Recommendation{IDs: ids}
}

func (f *fakeAdvisor) Advise(ctx context.Context, p persona.Persona, question string, prior []session.Turn) advisor.Advice {
	f.mu.Lock()
	f.calls++
	f.priors[p.ID] = prior
	delay := f.delays[p.ID]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return advisor.Advice{Text: advisor.ErrorText, Fallback: true, Err: ctx.Err()}
		}
	}

	select {
	case <-time.After(delay):
		return advisor.Advice{Text: "answer from " + p.ID}
	case <-ctx.Done():
		return advisor.Advice{Text: advisor.ErrorText, Fallback: true, Err: ctx.Err()}
	}
}

func (f *fakeAdvisor) prior(id string) []session.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priors[id]
}

// stepClock returns strictly increasing times one second apart.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewStore(database, zap.NewNop())
}

func newTestController(t *testing.T, store Store, adv Advisor) *Controller {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	c := New(context.Background(), Deps{
		Store:    store,
		Advisor:  adv,
		Registry: persona.Builtin(),
		Config:   cfg,
		Logger:   zap.NewNop(),
	})
	c.now = stepClock()
	t.Cleanup(c.Close)
	return c
}

func seedSession(id, problem string, updatedAt int64, selected ...string) session.Session {
	msgs := []session.Message{session.UserMessage(problem, updatedAt-10)}
	for _, p := range selected {
		msgs = append(msgs, session.PersonaMessage(p, "answer from "+p, updatedAt))
	}
	return session.Session{
		ID:          id,
		UpdatedAt:   updatedAt,
		Problem:     problem,
		SelectedIDs: selected,
		Transcript:  msgs,
	}
}

// submitAndWait submits a problem and blocks until the panel is recommended.
func submitAndWait(t *testing.T, c *Controller, problem string) *View {
	t.Helper()
	ctx := context.Background()
	_, err := c.SubmitProblem(ctx, SubmitInput{Problem: problem})
	require.NoError(t, err)
	require.NoError(t, c.WaitRecommendation(ctx))
	return c.Status(ctx)
}

func TestFullConsultation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	adv := newFakeAdvisor()
	// Reverse completion order: the first persona on the panel finishes last
	adv.delays = map[string]time.Duration{"buffett": 60 * time.Millisecond, "munger": 30 * time.Millisecond}
	c := newTestController(t, store, adv)

	// 1. Submit
	view, err := c.SubmitProblem(ctx, SubmitInput{Problem: "要不要辞职创业？"})
	require.NoError(t, err)
	require.Equal(t, session.ScreenSelection, view.Screen)
	require.NotEmpty(t, view.SessionID)
	sessionID := view.SessionID

	require.NoError(t, c.WaitRecommendation(ctx))
	view = c.Status(ctx)
	require.False(t, view.Analyzing)
	require.Equal(t, []string{"buffett", "munger", "naval"}, view.RecommendedIDs)
	require.Equal(t, view.RecommendedIDs, view.SelectedIDs)

	// 2. Begin: answers follow panel order regardless of latency
	view, err = c.BeginRoundTable(ctx)
	require.NoError(t, err)
	require.Equal(t, session.ScreenConsultation, view.Screen)
	require.False(t, view.Consulting)
	require.Len(t, view.Transcript, 4)
	require.Equal(t, session.RoleUser, view.Transcript[0].Role)
	require.Equal(t, "要不要辞职创业？", view.Transcript[0].Text)
	for i, id := range []string{"buffett", "munger", "naval"} {
		require.Equal(t, id, view.Transcript[i+1].PersonaID)
		require.Equal(t, "answer from "+id, view.Transcript[i+1].Text)
	}
	require.Equal(t, "巴菲特", view.Transcript[1].Author)
	require.Empty(t, adv.prior("buffett"), "first round has no prior history")

	// 3. Follow-up: each persona sees its own private history
	view, err = c.FollowUp(ctx, FollowUpInput{Question: "资金从哪里来？"})
	require.NoError(t, err)
	require.Len(t, view.Transcript, 8)
	require.Equal(t, "资金从哪里来？", view.Transcript[4].Text)

	prior := adv.prior("munger")
	require.Len(t, prior, 4)
	require.Equal(t, session.Turn{Author: session.AuthorUser, Text: "要不要辞职创业？"}, prior[0])
	require.Equal(t, session.Turn{Author: session.AuthorUser, Text: "[背景: 巴菲特 说]: answer from buffett"}, prior[1])
	require.Equal(t, session.Turn{Author: session.AuthorSelf, Text: "answer from munger"}, prior[2])

	// 4. Archived
	hist := c.History(ctx, HistoryInput{})
	require.Equal(t, 1, hist.Pagination.Total)
	require.Equal(t, sessionID, hist.Items[0].ID)
	require.Equal(t, 8, hist.Items[0].MessageCount)
	require.Equal(t, sessionID, hist.ActiveID)

	// 5. Restart restores the slot and archive
	restarted := newTestController(t, store, adv)
	view = restarted.Status(ctx)
	require.Equal(t, session.ScreenConsultation, view.Screen)
	require.Equal(t, sessionID, view.SessionID)
	require.Len(t, view.Transcript, 8)
	require.Equal(t, 1, restarted.History(ctx, HistoryInput{}).Pagination.Total)
}

func TestSubmitProblem_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), newFakeAdvisor())

	_, err := c.SubmitProblem(ctx, SubmitInput{Problem: "   "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	submitAndWait(t, c, "第一个问题")
	_, err = c.SubmitProblem(ctx, SubmitInput{Problem: "第二个问题"})
	require.True(t, errors.Is(err, errors.ErrInvalidTransition), "got %v", err)
}

func TestSubmitProblem_StaleRecommendationDiscarded(t *testing.T) {
	ctx := context.Background()
	adv := newFakeAdvisor()
	release := make(chan struct{})
	adv.recommendGate["slow"] = release
	adv.panels["fast"] = []string{"socrates"}
	c := newTestController(t, newTestStore(t), adv)

	_, err := c.SubmitProblem(ctx, SubmitInput{Problem: "slow"})
	require.NoError(t, err)
	c.Reset(ctx)
	view := submitAndWait(t, c, "fast")
	require.Equal(t, []string{"socrates"}, view.SelectedIDs)

	// Let the first recommendation land after the slot moved on
	close(release)
	c.wg.Wait()

	view = c.Status(ctx)
	require.Equal(t, "fast", view.Problem)
	require.Equal(t, []string{"socrates"}, view.SelectedIDs)
}

func TestWaitRecommendation_Cancelled(t *testing.T) {
	adv := newFakeAdvisor()
	release := make(chan struct{})
	adv.recommendGate["slow"] = release
	c := newTestController(t, newTestStore(t), adv)
	defer close(release)

	_, err := c.SubmitProblem(context.Background(), SubmitInput{Problem: "slow"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = c.WaitRecommendation(ctx)
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)
	require.True(t, c.Status(context.Background()).Analyzing)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), newFakeAdvisor())

	_, err := c.Toggle(ctx, ToggleInput{PersonaID: "buffett"})
	require.True(t, errors.Is(err, errors.ErrInvalidTransition), "toggle on welcome: %v", err)

	submitAndWait(t, c, "问题")

	tests := []struct {
		name        string
		id          string
		wantChanged bool
		wantErr     errors.ErrorCode
		wantPanel   []string
	}{
		{"full panel add is a no-op", "socrates", false, "", []string{"buffett", "munger", "naval"}},
		{"remove", "munger", true, "", []string{"buffett", "naval"}},
		{"add appends", "socrates", true, "", []string{"buffett", "naval", "socrates"}},
		{"unknown persona", "nobody", false, errors.ErrNotFound, nil},
		{"empty id", "", false, errors.ErrInvalidRequest, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := c.Toggle(ctx, ToggleInput{PersonaID: tc.id})
			if tc.wantErr != "" {
				require.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantChanged, out.Changed)
			require.Equal(t, tc.wantPanel, out.View.SelectedIDs)
		})
	}
}

func TestBeginRoundTable_EmptyPanel(t *testing.T) {
	ctx := context.Background()
	adv := newFakeAdvisor()
	adv.panels["问题"] = []string{"buffett"}
	c := newTestController(t, newTestStore(t), adv)

	submitAndWait(t, c, "问题")
	_, err := c.Toggle(ctx, ToggleInput{PersonaID: "buffett"})
	require.NoError(t, err)

	_, err = c.BeginRoundTable(ctx)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	require.Equal(t, session.ScreenSelection, c.Status(ctx).Screen)
}

func TestBeginRoundTable_TimeoutPlaceholder(t *testing.T) {
	ctx := context.Background()
	adv := newFakeAdvisor()
	adv.delays["munger"] = 5 * time.Second
	c := newTestController(t, newTestStore(t), adv)
	c.roundTimeout = 50 * time.Millisecond

	submitAndWait(t, c, "问题")

	start := time.Now()
	view, err := c.BeginRoundTable(ctx)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second, "a slow persona must not stall the round")

	require.Len(t, view.Transcript, 4)
	require.Equal(t, "answer from buffett", view.Transcript[1].Text)
	require.Equal(t, advisor.TimeoutText, view.Transcript[2].Text)
	require.Equal(t, "munger", view.Transcript[2].PersonaID)
	require.Equal(t, "answer from naval", view.Transcript[3].Text)
}

func TestBeginRoundTable_CallerDeadlineDoesNotCutRound(t *testing.T) {
	store := newTestStore(t)
	adv := newFakeAdvisor()
	for _, id := range adv.panel {
		adv.delays[id] = 200 * time.Millisecond
	}
	c := newTestController(t, store, adv)
	submitAndWait(t, c, "问题")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	view, err := c.BeginRoundTable(ctx)
	require.NoError(t, err)
	require.Error(t, ctx.Err(), "caller deadline should have passed during the round")

	require.Len(t, view.Transcript, 4)
	for i, id := range adv.panel {
		require.Equal(t, "answer from "+id, view.Transcript[i+1].Text)
	}

	archive, err := store.LoadArchive(context.Background())
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Len(t, archive[0].Transcript, 4)
	for _, m := range archive[0].Transcript[1:] {
		require.NotEqual(t, advisor.ErrorText, m.Text)
	}
}

func TestFollowUp_CallerCancelDoesNotCutRound(t *testing.T) {
	store := newTestStore(t)
	adv := newFakeAdvisor()
	c := newTestController(t, store, adv)
	submitAndWait(t, c, "问题")
	_, err := c.BeginRoundTable(context.Background())
	require.NoError(t, err)

	for _, id := range adv.panel {
		adv.delays[id] = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	view, err := c.FollowUp(ctx, FollowUpInput{Question: "追问"})
	require.NoError(t, err)

	require.Len(t, view.Transcript, 8)
	for i, id := range adv.panel {
		require.Equal(t, "answer from "+id, view.Transcript[i+5].Text)
	}

	archive, err := store.LoadArchive(context.Background())
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Equal(t, "answer from naval", archive[0].Transcript[7].Text)
}

func TestBusyDuringRound(t *testing.T) {
	ctx := context.Background()
	adv := newFakeAdvisor()
	c := newTestController(t, newTestStore(t), adv)
	submitAndWait(t, c, "问题")

	gate := make(chan struct{})
	adv.mu.Lock()
	adv.gate = gate
	adv.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.BeginRoundTable(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Status(ctx).Consulting }, time.Second, 5*time.Millisecond)

	_, err := c.FollowUp(ctx, FollowUpInput{Question: "还有呢？"})
	require.True(t, errors.Is(err, errors.ErrBusy), "follow-up: %v", err)
	_, err = c.AdjustPanel(ctx)
	require.True(t, errors.Is(err, errors.ErrBusy), "adjust: %v", err)
	_, err = c.ClearTranscript(ctx)
	require.True(t, errors.Is(err, errors.ErrBusy), "clear: %v", err)

	close(gate)
	require.NoError(t, <-done)
	require.False(t, c.Status(ctx).Consulting)
}

func TestReset_DuringRoundDropsResults(t *testing.T) {
	ctx := context.Background()
	adv := newFakeAdvisor()
	c := newTestController(t, newTestStore(t), adv)
	submitAndWait(t, c, "问题")

	gate := make(chan struct{})
	adv.mu.Lock()
	adv.gate = gate
	adv.mu.Unlock()

	done := make(chan *View, 1)
	go func() {
		view, _ := c.BeginRoundTable(ctx)
		done <- view
	}()
	require.Eventually(t, func() bool { return c.Status(ctx).Consulting }, time.Second, 5*time.Millisecond)

	view := c.Reset(ctx)
	require.Equal(t, session.ScreenWelcome, view.Screen)

	close(gate)
	view = <-done
	require.Equal(t, session.ScreenWelcome, view.Screen)
	require.Empty(t, view.Transcript)

	// The archive keeps the transcript as it was when the round began
	hist := c.History(ctx, HistoryInput{})
	require.Equal(t, 1, hist.Pagination.Total)
	require.Equal(t, 1, hist.Items[0].MessageCount)
}

func TestAdjustAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), newFakeAdvisor())

	_, err := c.AdjustPanel(ctx)
	require.True(t, errors.Is(err, errors.ErrInvalidTransition), "got %v", err)

	submitAndWait(t, c, "问题")
	_, err = c.BeginRoundTable(ctx)
	require.NoError(t, err)

	view, err := c.AdjustPanel(ctx)
	require.NoError(t, err)
	require.Equal(t, session.ScreenSelection, view.Screen)
	require.Len(t, view.Transcript, 4, "adjust keeps the transcript")

	view, err = c.BeginRoundTable(ctx)
	require.NoError(t, err)
	require.Len(t, view.Transcript, 4, "begin restarts from the problem")

	view, err = c.ClearTranscript(ctx)
	require.NoError(t, err)
	require.Empty(t, view.Transcript)
	require.Equal(t, session.ScreenConsultation, view.Screen)

	// The archive still holds the last non-empty transcript
	require.Equal(t, 4, c.History(ctx, HistoryInput{}).Items[0].MessageCount)
}

func TestOpenSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	archived := seedSession("01OLD", "旧问题", 1000, "buffett", "retired")
	require.NoError(t, store.SaveArchive(ctx, []session.Session{archived}))
	c := newTestController(t, store, newFakeAdvisor())

	_, err := c.OpenSession(ctx, OpenInput{ID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	view, err := c.OpenSession(ctx, OpenInput{ID: "01OLD"})
	require.NoError(t, err)
	require.Equal(t, session.ScreenConsultation, view.Screen)
	require.Equal(t, "01OLD", view.SessionID)
	require.Equal(t, []string{"buffett"}, view.SelectedIDs, "unknown personas are dropped")
	require.Len(t, view.Transcript, 3)
	require.Equal(t, "大师", view.Transcript[2].Author, "unknown personas get the generic author")

	// Follow-up on a reopened session extends the same archive entry
	_, err = c.FollowUp(ctx, FollowUpInput{Question: "然后呢？"})
	require.NoError(t, err)
	hist := c.History(ctx, HistoryInput{})
	require.Equal(t, 1, hist.Pagination.Total)
	require.Equal(t, 5, hist.Items[0].MessageCount)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveArchive(ctx, []session.Session{
		seedSession("01B", "b", 2000, "naval"),
		seedSession("01A", "a", 1000, "buffett"),
	}))
	c := newTestController(t, store, newFakeAdvisor())

	_, err := c.OpenSession(ctx, OpenInput{ID: "01B"})
	require.NoError(t, err)

	out, err := c.DeleteSession(ctx, DeleteInput{ID: "01A"})
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.False(t, out.ActiveReset)
	require.Equal(t, session.ScreenConsultation, c.Status(ctx).Screen)

	out, err = c.DeleteSession(ctx, DeleteInput{ID: "01B"})
	require.NoError(t, err)
	require.True(t, out.ActiveReset)
	require.Equal(t, session.ScreenWelcome, c.Status(ctx).Screen)

	_, err = c.DeleteSession(ctx, DeleteInput{ID: "01B"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	archive, err := store.LoadArchive(ctx)
	require.NoError(t, err)
	require.Empty(t, archive)
}

func TestHistory_Pagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var seeded []session.Session
	for i := 5; i >= 1; i-- {
		seeded = append(seeded, seedSession(fmt.Sprintf("01S%d", i), fmt.Sprintf("问题 %d", i), int64(i*1000), "buffett"))
	}
	require.NoError(t, store.SaveArchive(ctx, seeded))
	c := newTestController(t, store, newFakeAdvisor())

	tests := []struct {
		name        string
		input       HistoryInput
		wantIDs     []string
		wantLimit   int
		wantHasMore bool
	}{
		{"defaults", HistoryInput{}, []string{"01S5", "01S4", "01S3", "01S2", "01S1"}, DefaultHistoryLimit, false},
		{"page", HistoryInput{Limit: 2, Offset: 1}, []string{"01S4", "01S3"}, 2, true},
		{"last page", HistoryInput{Limit: 2, Offset: 4}, []string{"01S1"}, 2, false},
		{"offset past end", HistoryInput{Limit: 2, Offset: 10}, []string{}, 2, false},
		{"limit clamped", HistoryInput{Limit: 1000, Offset: -3}, []string{"01S5", "01S4", "01S3", "01S2", "01S1"}, MaxHistoryLimit, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := c.History(ctx, tc.input)
			ids := make([]string, 0, len(out.Items))
			for _, item := range out.Items {
				ids = append(ids, item.ID)
			}
			require.Equal(t, tc.wantIDs, ids)
			require.Equal(t, tc.wantLimit, out.Pagination.Limit)
			require.Equal(t, tc.wantHasMore, out.Pagination.HasMore)
			require.Equal(t, 5, out.Pagination.Total)
			require.Equal(t, "touched_desc", out.Sort)
		})
	}
}

func TestAdvisors(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), newFakeAdvisor())
	submitAndWait(t, c, "问题")
	_, err := c.Toggle(ctx, ToggleInput{PersonaID: "munger"})
	require.NoError(t, err)

	out := c.Advisors(ctx)
	require.Equal(t, persona.PanelSize, out.PanelSize)
	require.Len(t, out.Items, persona.Builtin().Len())

	byID := map[string]AdvisorItem{}
	for _, item := range out.Items {
		byID[item.ID] = item
	}
	require.True(t, byID["munger"].Recommended)
	require.False(t, byID["munger"].Selected)
	require.True(t, byID["buffett"].Selected)
	require.False(t, byID["socrates"].Recommended)
}

// failingStore loads nothing and fails every write.
type failingStore struct{}

func (failingStore) LoadActive(context.Context) (*session.Snapshot, error) {
	return nil, fmt.Errorf("disk on fire")
}
func (failingStore) SaveActive(context.Context, *session.Snapshot) error {
	return fmt.Errorf("disk on fire")
}
func (failingStore) LoadArchive(context.Context) ([]session.Session, error) {
	return nil, fmt.Errorf("disk on fire")
}
func (failingStore) SaveArchive(context.Context, []session.Session) error {
	return fmt.Errorf("disk on fire")
}

func TestPersistenceFailuresDoNotBlockConsultation(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, failingStore{}, newFakeAdvisor())
	require.Equal(t, session.ScreenWelcome, c.Status(ctx).Screen)

	submitAndWait(t, c, "问题")
	view, err := c.BeginRoundTable(ctx)
	require.NoError(t, err)
	require.Len(t, view.Transcript, 4)

	// The in-memory archive is still updated
	require.Equal(t, 1, c.History(ctx, HistoryInput{}).Pagination.Total)
}

func TestRoundTimestampsNonDecreasing(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), newFakeAdvisor())
	submitAndWait(t, c, "问题")
	_, err := c.BeginRoundTable(ctx)
	require.NoError(t, err)
	view, err := c.FollowUp(ctx, FollowUpInput{Question: strings.Repeat("问", 3)})
	require.NoError(t, err)

	for i := 1; i < len(view.Transcript); i++ {
		require.False(t, view.Transcript[i].CreatedAt.Before(view.Transcript[i-1].CreatedAt),
			"message %d goes back in time", i)
	}
}
