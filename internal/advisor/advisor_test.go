package advisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/council/internal/persona"
	"github.com/hpungsan/council/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	reply    string
	classify string
	err      error
	failures int // fail this many calls before succeeding
	delay    time.Duration
	calls    int
	lastReq  GenerateRequest
}

func (f *fakeBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return f.reply, f.err
}

func (f *fakeBackend) ClassifyIDs(ctx context.Context, prompt string) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.classify, f.err
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestService(b Backend, opts Options) *Service {
	s := NewService(b, persona.Builtin(), opts)
	s.backoff = time.Millisecond
	return s
}

func TestAdvise(t *testing.T) {
	b := &fakeBackend{reply: "长期主义。"}
	s := newTestService(b, Options{AdviceContext: "CTX"})
	p, _ := persona.Builtin().Get("buffett")

	prior := []session.Turn{
		{Author: session.AuthorUser, Text: "problem"},
		{Author: session.AuthorSelf, Text: "earlier"},
	}
	got := s.Advise(context.Background(), p, "why?", prior)
	if got.Text != "长期主义。" || got.Fallback || got.Err != nil {
		t.Fatalf("Advise() = %+v", got)
	}

	if !strings.HasPrefix(b.lastReq.System, p.Instruction) || !strings.HasSuffix(b.lastReq.System, "\n\nCTX") {
		t.Errorf("System = %q", b.lastReq.System)
	}
	turns := b.lastReq.Turns
	if len(turns) != 3 || turns[2] != (session.Turn{Author: session.AuthorUser, Text: "why?"}) {
		t.Errorf("Turns = %+v", turns)
	}
}

func TestAdvise_QuestionIsFinalTurn(t *testing.T) {
	b := &fakeBackend{reply: "ok"}
	s := newTestService(b, Options{})
	p, _ := persona.Builtin().Get("munger")

	s.Advise(context.Background(), p, "first?", nil)
	if got := b.lastReq.Turns; len(got) != 1 || got[0] != (session.Turn{Author: session.AuthorUser, Text: "first?"}) {
		t.Errorf("Turns with no prior = %+v", got)
	}

	prior := make([]session.Turn, 1, 4)
	prior[0] = session.Turn{Author: session.AuthorSelf, Text: "earlier"}
	s.Advise(context.Background(), p, "again?", prior)
	if len(prior) != 1 || prior[:2][1] != (session.Turn{}) {
		t.Errorf("prior was modified: %+v", prior[:2])
	}
	if got := b.lastReq.Turns; len(got) != 2 || got[1].Text != "again?" {
		t.Errorf("Turns = %+v", got)
	}
}

func TestAdvise_Placeholders(t *testing.T) {
	p, _ := persona.Builtin().Get("naval")

	tests := []struct {
		name    string
		backend *fakeBackend
		timeout time.Duration
		want    string
	}{
		{"error", &fakeBackend{err: errors.New("boom")}, 0, ErrorText},
		{"empty", &fakeBackend{reply: "  \n"}, 0, EmptyText},
		{"timeout", &fakeBackend{reply: "late", delay: time.Second}, 10 * time.Millisecond, TimeoutText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}
			got := newTestService(tt.backend, Options{}).Advise(ctx, p, "q", nil)
			if got.Text != tt.want || !got.Fallback {
				t.Errorf("Advise() = %+v, want placeholder %q", got, tt.want)
			}
		})
	}
}

func TestAdvise_Retries(t *testing.T) {
	p, _ := persona.Builtin().Get("musk")

	b := &fakeBackend{reply: "ok", failures: 2}
	got := newTestService(b, Options{MaxRetries: 2}).Advise(context.Background(), p, "q", nil)
	if got.Text != "ok" {
		t.Fatalf("Advise() = %+v, want ok after retries", got)
	}
	if b.calls != 3 {
		t.Errorf("calls = %d, want 3", b.calls)
	}

	b = &fakeBackend{reply: "ok", failures: 1}
	got = newTestService(b, Options{}).Advise(context.Background(), p, "q", nil)
	if got.Text != ErrorText {
		t.Errorf("without retries the first failure should surface: %+v", got)
	}
	if b.calls != 1 {
		t.Errorf("calls = %d, want 1", b.calls)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name         string
		classify     string
		err          error
		want         []string
		wantFallback bool
	}{
		{"valid", `["buffett","naval","socrates"]`, nil, []string{"buffett", "naval", "socrates"}, false},
		{"code fence", "```json\n[\"jung\",\"dalio\",\"zeng\"]\n```", nil, []string{"jung", "dalio", "zeng"}, false},
		{"surplus truncated", `["musk","jung","zeng","dalio"]`, nil, []string{"musk", "jung", "zeng"}, false},
		{"duplicates collapse", `["musk","musk","jung","zeng"]`, nil, []string{"musk", "jung", "zeng"}, false},
		{"unknown id", `["buffett","elvis","naval"]`, nil, []string{"buffett", "munger", "inamori"}, true},
		{"too few", `["naval"]`, nil, []string{"buffett", "munger", "inamori"}, true},
		{"malformed", `not json`, nil, []string{"buffett", "munger", "inamori"}, true},
		{"provider error", "", errors.New("down"), []string{"buffett", "munger", "inamori"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(&fakeBackend{classify: tt.classify, err: tt.err}, Options{})
			got := s.Recommend(context.Background(), "如何平衡工作与生活？")

			if got.Fallback != tt.wantFallback {
				t.Errorf("Fallback = %v, want %v (err %v)", got.Fallback, tt.wantFallback, got.Err)
			}
			if len(got.IDs) != len(tt.want) {
				t.Fatalf("IDs = %v, want %v", got.IDs, tt.want)
			}
			for i := range tt.want {
				if got.IDs[i] != tt.want[i] {
					t.Errorf("IDs = %v, want %v", got.IDs, tt.want)
					break
				}
			}
		})
	}
}

func TestRecommend_Timeout(t *testing.T) {
	b := &fakeBackend{classify: `["buffett","naval","socrates"]`, delay: time.Second}
	s := newTestService(b, Options{ClassifyTimeout: 10 * time.Millisecond})

	got := s.Recommend(context.Background(), "problem")
	if !got.Fallback {
		t.Fatalf("expected fallback on timeout, got %+v", got)
	}
	if !errors.Is(got.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", got.Err)
	}
}

func TestParseRecommendation_SmallRegistry(t *testing.T) {
	reg, err := persona.New([]persona.Persona{
		{ID: "a", Instruction: "x"},
		{ID: "b", Instruction: "y"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids, err := ParseRecommendation(`["b","a"]`, reg)
	if err != nil {
		t.Fatalf("ParseRecommendation() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" {
		t.Errorf("ids = %v", ids)
	}
	if _, err := ParseRecommendation(`["a"]`, reg); err == nil {
		t.Error("one id from a two-persona registry should be rejected")
	}
}

func TestBuildClassifyPrompt(t *testing.T) {
	prompt := buildClassifyPrompt("换工作吗？", persona.Builtin().Catalog())
	for _, want := range []string{"换工作吗？", "buffett: ", "nietzsche: ", "JSON"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestUnavailable(t *testing.T) {
	p, _ := persona.Builtin().Get("zeng")
	s := newTestService(Unavailable(errors.New("no key")), Options{})

	if got := s.Advise(context.Background(), p, "q", nil); got.Text != ErrorText {
		t.Errorf("Advise() = %+v", got)
	}
	if got := s.Recommend(context.Background(), "q"); !got.Fallback {
		t.Errorf("Recommend() = %+v", got)
	}
}

func TestRateLimiter(t *testing.T) {
	b := &fakeBackend{reply: "ok"}
	s := newTestService(b, Options{RequestsPerSecond: 1000, Burst: 0})
	if s.limiter == nil || s.limiter.Burst() != 1 {
		t.Fatal("limiter should be configured with burst >= 1")
	}
	p, _ := persona.Builtin().Get("jung")
	for i := 0; i < 3; i++ {
		if got := s.Advise(context.Background(), p, "q", nil); got.Text != "ok" {
			t.Fatalf("Advise() = %+v", got)
		}
	}
}
