package ops

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/advisor"
	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/persona"
	"github.com/hpungsan/council/internal/session"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Store is the session persistence the controller mirrors into.
type Store interface {
	LoadActive(ctx context.Context) (*session.Snapshot, error)
	SaveActive(ctx context.Context, snap *session.Snapshot) error
	LoadArchive(ctx context.Context) ([]session.Session, error)
	SaveArchive(ctx context.Context, archive []session.Session) error
}

// Advisor produces panel recommendations and persona answers. Neither call fails.
// Advise receives prior without question; question becomes the final user turn.
type Advisor interface {
	Recommend(ctx context.Context, problem string) advisor.Recommendation
	Advise(ctx context.Context, p persona.Persona, question string, prior []session.Turn) advisor.Advice
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store    Store
	Advisor  Advisor
	Registry *persona.Registry
	Config   *config.Config
	Logger   *zap.Logger
}

// Controller owns the active slot and the archive and runs every
// user-triggered operation. All state changes happen under mu; provider
// calls run outside it.
type Controller struct {
	mu      sync.Mutex
	slot    *session.Slot
	archive []session.Session

	// pending is closed when the in-flight recommendation has landed.
	pending chan struct{}

	store    Store
	advisor  Advisor
	registry *persona.Registry
	cfg      *config.Config
	logger   *zap.Logger

	roundTimeout time.Duration
	maxParallel  int

	// background work (recommendations) runs under baseCtx
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New restores the controller from the store. Load failures are logged and
// treated as an empty store.
func New(ctx context.Context, deps Deps) *Controller {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = persona.Builtin()
	}

	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		store:        deps.Store,
		advisor:      deps.Advisor,
		registry:     registry,
		cfg:          cfg,
		logger:       logger,
		roundTimeout: cfg.RoundTimeout(),
		maxParallel:  cfg.MaxParallel,
		baseCtx:      baseCtx,
		cancel:       cancel,
		now:          time.Now,
		newID:        generateULID,
	}

	snap, err := c.store.LoadActive(ctx)
	if err != nil {
		logger.Warn("failed to load active session, starting fresh", zap.Error(err))
		snap = nil
	}
	c.slot = session.Restore(snap)
	c.slot.Retain(registry.Has)

	archive, err := c.store.LoadArchive(ctx)
	if err != nil {
		logger.Warn("failed to load archive, starting empty", zap.Error(err))
		archive = nil
	}
	c.archive = archive

	return c
}

// Close cancels background work and waits for it to finish.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Registry returns the persona registry.
func (c *Controller) Registry() *persona.Registry {
	return c.registry
}

// Config returns the controller's configuration.
func (c *Controller) Config() *config.Config {
	return c.cfg
}

// persist mirrors the slot into the store. Must hold c.mu.
// Persistence failures are logged and otherwise ignored.
func (c *Controller) persist(ctx context.Context) {
	snap := c.slot.Snapshot()
	if err := c.store.SaveActive(context.WithoutCancel(ctx), &snap); err != nil {
		c.logger.Error("failed to save active session", zap.Error(err))
	}
}

// syncArchive upserts the slot's session into the archive and saves it.
// Called once at the end of every transcript-mutating operation. Must hold c.mu.
func (c *Controller) syncArchive(ctx context.Context) {
	sess, ok := c.slot.Archivable(c.now().UnixMilli())
	if !ok {
		return
	}
	c.archive = session.UpsertArchive(c.archive, sess)
	c.saveArchive(ctx)
}

func (c *Controller) saveArchive(ctx context.Context) {
	if err := c.store.SaveArchive(context.WithoutCancel(ctx), c.archive); err != nil {
		c.logger.Error("failed to save archive", zap.Error(err))
	}
}

// generateULID creates a new ULID for a session.
func generateULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
