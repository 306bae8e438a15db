// Package advisor talks to the generative-language provider on behalf of personas.
//
// A Backend is a thin adapter over one vendor SDK. Service layers the
// contract on top: persona instructions, retries, rate limiting and the
// conversion of every failure into a placeholder answer or default panel.
package advisor

import (
	"context"
	"fmt"

	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/session"
)

// GenerateRequest is one persona completion request.
type GenerateRequest struct {
	// System is the persona instruction plus the shared advice context.
	System string

	// Turns is the persona's private history ending with the current question.
	Turns []session.Turn
}

// Backend is a generative-language provider.
type Backend interface {
	// Generate returns the model's reply to req. An empty string is a valid reply.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// ClassifyIDs asks the model for a JSON array of persona IDs and returns
	// the raw JSON text.
	ClassifyIDs(ctx context.Context, prompt string) (string, error)

	// Name identifies the backend in logs, e.g. "gemini:gemini-2.5-flash".
	Name() string
}

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("no API key: set %s in the environment or a .env file", cfg.APIKeyEnv)
	}

	classifyModel := cfg.ClassifyModel
	if classifyModel == "" {
		classifyModel = cfg.Model
	}

	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiBackend(ctx, key, cfg.Model, classifyModel)
	case config.ProviderOpenAI:
		return NewOpenAIBackend(key, cfg.BaseURL, cfg.Model, classifyModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want %q or %q)", cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}

// Unavailable returns a backend whose every call fails with err.
// It lets the process run read-only operations without credentials while
// consultation rounds degrade to placeholder answers.
func Unavailable(err error) Backend {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Generate(context.Context, GenerateRequest) (string, error) { return "", u.err }
func (u unavailable) ClassifyIDs(context.Context, string) (string, error)       { return "", u.err }
func (u unavailable) Name() string                                              { return "unavailable" }
