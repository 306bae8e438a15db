package advisor

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hpungsan/council/internal/persona"
	"github.com/hpungsan/council/internal/session"
)

// Fixed answers used when a persona cannot produce one.
const (
	ErrorText   = "我暂时无法思考您的问题，请重试。"
	EmptyText   = "大师正在沉思..."
	TimeoutText = "大师思考超时，请稍后重试。"
)

// Advice is the outcome of one persona call. Text is always usable.
type Advice struct {
	Text string

	// Fallback is true when Text is a placeholder rather than a model answer.
	Fallback bool

	// Err is the underlying failure, if any. Informational only.
	Err error
}

// Options configures a Service.
type Options struct {
	// AdviceContext is appended to every persona instruction.
	AdviceContext string

	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int

	// RequestsPerSecond throttles calls to the backend. 0 disables throttling.
	RequestsPerSecond float64
	Burst             int

	// ClassifyTimeout bounds Recommend. 0 means no extra deadline.
	ClassifyTimeout time.Duration

	Logger *zap.Logger
}

// Service implements the advice provider contract on top of a Backend.
type Service struct {
	backend  Backend
	registry *persona.Registry
	limiter  *rate.Limiter
	opts     Options
	logger   *zap.Logger

	// backoff is the first retry delay; it doubles per attempt.
	backoff time.Duration
}

// NewService wraps backend. registry is used to build recommendation prompts
// and validate the returned IDs.
func NewService(backend Backend, registry *persona.Registry, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Service{
		backend:  backend,
		registry: registry,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
		backoff:  time.Second,
	}
}

// Backend returns the wrapped backend.
func (s *Service) Backend() Backend {
	return s.backend
}

// Advise asks p to answer question given its private prior history. prior
// excludes question; Advise appends it as the final user turn.
// It never fails: errors become ErrorText (or TimeoutText when ctx expired)
// and an empty reply becomes EmptyText.
func (s *Service) Advise(ctx context.Context, p persona.Persona, question string, prior []session.Turn) Advice {
	turns := make([]session.Turn, 0, len(prior)+1)
	turns = append(turns, prior...)
	turns = append(turns, session.Turn{Author: session.AuthorUser, Text: question})

	req := GenerateRequest{
		System: s.systemPrompt(p),
		Turns:  turns,
	}

	var text string
	err := s.doWithRetry(ctx, func() error {
		var err error
		text, err = s.backend.Generate(ctx, req)
		return err
	})

	switch {
	case err != nil && stderrors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("advice timed out", zap.String("persona", p.ID), zap.Error(err))
		return Advice{Text: TimeoutText, Fallback: true, Err: err}
	case err != nil:
		s.logger.Error("advice failed", zap.String("persona", p.ID), zap.String("backend", s.backend.Name()), zap.Error(err))
		return Advice{Text: ErrorText, Fallback: true, Err: err}
	case strings.TrimSpace(text) == "":
		return Advice{Text: EmptyText, Fallback: true}
	}
	return Advice{Text: text}
}

func (s *Service) systemPrompt(p persona.Persona) string {
	if s.opts.AdviceContext == "" {
		return p.Instruction
	}
	return p.Instruction + "\n\n" + s.opts.AdviceContext
}

// doWithRetry executes fn with exponential backoff, waiting on the rate
// limiter before every attempt. Context errors are not retried.
func (s *Service) doWithRetry(ctx context.Context, fn func() error) error {
	attempts := max(s.opts.MaxRetries, 0) + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < attempts-1 {
			wait := time.Duration(math.Pow(2, float64(attempt))) * s.backoff
			s.logger.Debug("provider call failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// Registry returns the registry recommendations are drawn from.
func (s *Service) Registry() *persona.Registry {
	return s.registry
}

// Names resolves persona display names; used for relay attribution.
func (s *Service) Names() func(string) string {
	return s.registry.Name
}
