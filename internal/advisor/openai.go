package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/hpungsan/council/internal/session"
)

// OpenAIBackend calls any OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	client        *openai.Client
	model         string
	classifyModel string
}

// NewOpenAIBackend creates a client. An empty baseURL uses api.openai.com.
func NewOpenAIBackend(apiKey, baseURL, model, classifyModel string) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if classifyModel == "" {
		classifyModel = model
	}

	return &OpenAIBackend{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         model,
		classifyModel: classifyModel,
	}
}

// Generate runs a chat completion with the instruction as the system message.
func (o *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, t := range req.Turns {
		role := openai.ChatMessageRoleUser
		if t.Author == session.AuthorSelf {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ClassifyIDs requests {"ids": [...]} under a strict JSON schema and returns
// the ids array as JSON text. Strict mode requires an object at the root.
func (o *OpenAIBackend) ClassifyIDs(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.classifyModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "panel_recommendation",
				Strict: true,
				Schema: panelJSONSchema,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("classify request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from classifier")
	}

	content := resp.Choices[0].Message.Content
	var wrapped struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &wrapped); err != nil || wrapped.IDs == nil {
		// Some compatible servers ignore response_format; let the caller parse it.
		return content, nil
	}
	out, err := json.Marshal(wrapped.IDs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Name returns "openai:<model>".
func (o *OpenAIBackend) Name() string {
	return "openai:" + o.model
}

var panelJSONSchema = &jsonSchema{
	Type: "object",
	Properties: map[string]*jsonSchema{
		"ids": {
			Type:        "array",
			Items:       &jsonSchema{Type: "string"},
			Description: "Up to three persona ids, best match first",
		},
	},
	Required:             []string{"ids"},
	AdditionalProperties: false,
}

// jsonSchema implements json.Marshaler for OpenAI's JSON Schema format.
type jsonSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*jsonSchema `json:"properties,omitempty"`
	Items                *jsonSchema            `json:"items,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Description          string                 `json:"description,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func (s *jsonSchema) MarshalJSON() ([]byte, error) {
	type alias jsonSchema
	return json.Marshal((*alias)(s))
}
