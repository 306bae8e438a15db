package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hpungsan/council/internal/session"
)

// GeminiBackend calls Google's Gemini API.
type GeminiBackend struct {
	client        *genai.Client
	model         string
	classifyModel string
}

// NewGeminiBackend creates a Gemini client for the given models.
func NewGeminiBackend(ctx context.Context, apiKey, model, classifyModel string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if classifyModel == "" {
		classifyModel = model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiBackend{client: client, model: model, classifyModel: classifyModel}, nil
}

// Generate runs a persona completion with the instruction as system prompt.
func (g *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Author == session.AuthorSelf {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}

// ClassifyIDs requests a JSON array of strings via a response schema.
func (g *GeminiBackend) ClassifyIDs(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.classifyModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini classify failed: %w", err)
	}
	return resp.Text(), nil
}

// Name returns "gemini:<model>".
func (g *GeminiBackend) Name() string {
	return "gemini:" + g.model
}
