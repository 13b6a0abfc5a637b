// Package vision adapts an OpenAI-compatible vision model into the
// analyze endpoint's prediction schema.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// Provider produces food predictions for one encoded image.
type Provider interface {
	Analyze(ctx context.Context, image string) ([]model.Prediction, error)
}

const systemPrompt = `You are an expert nutritionist AI.
Analyze the food in the image. Identify the items, estimate portion size in grams, and calculate calories.
Return ONLY a JSON object with this structure:
{
  "items": [
    { "name": "Food Name", "calories": 100, "portion_g": 100, "confidence": 0.9 }
  ]
}
Do not include markdown formatting. Just raw JSON.`

// OpenAIProvider forwards images to a chat-completions vision model.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewOpenAI builds a provider against the given API base URL and model.
func NewOpenAI(apiKey, baseURL, modelName string, log *zap.Logger) *OpenAIProvider {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
		log:    log,
	}
}

// Analyze sends the image to the model and parses its JSON answer.
func (p *OpenAIProvider) Analyze(ctx context.Context, image string) ([]model.Prediction, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Analyze this image for calorie content."},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: ToDataURI(image)},
					},
				},
			},
		},
		MaxTokens: 500,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision provider: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, apperror.ErrEmptyResponse
	}

	preds, err := ParseContent(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	p.log.Debug("vision analysis parsed", zap.Int("predictions", len(preds)))
	return preds, nil
}

// ToDataURI ensures the image is a data URI, wrapping bare base64 payloads.
func ToDataURI(image string) string {
	if strings.HasPrefix(image, "data:image") {
		return image
	}
	return "data:image/jpeg;base64," + image
}

// ParseContent extracts predictions from the model's text answer. Models
// sometimes wrap the JSON in markdown fences despite instructions, so the
// fences are stripped first. Server-side default policy: missing numeric
// fields become 0, matching the wire schema's non-null numbers.
func ParseContent(content string) ([]model.Prediction, error) {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var payload struct {
		Items       []rawItem `json:"items"`
		Predictions []rawItem `json:"predictions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrParse, err)
	}

	items := payload.Items
	if len(items) == 0 {
		items = payload.Predictions
	}

	preds := make([]model.Prediction, 0, len(items))
	for _, it := range items {
		name := it.Name
		if name == "" {
			name = "Unknown"
		}
		preds = append(preds, model.Prediction{
			Name:       name,
			Calories:   zeroDefault(it.Calories),
			Confidence: zeroDefault(it.Confidence),
			PortionG:   zeroDefault(it.PortionG),
		})
	}
	return preds, nil
}

type rawItem struct {
	Name       string   `json:"name"`
	Calories   *float64 `json:"calories"`
	Confidence *float64 `json:"confidence"`
	PortionG   *float64 `json:"portion_g"`
}

func zeroDefault(v *float64) *float64 {
	if v == nil {
		zero := 0.0
		return &zero
	}
	return v
}

// MockProvider returns a fixed canned prediction list without contacting
// any upstream, for testing and demos.
type MockProvider struct{}

func (MockProvider) Analyze(_ context.Context, _ string) ([]model.Prediction, error) {
	f := func(v float64) *float64 { return &v }
	return []model.Prediction{
		{Name: "Mock Apple", Calories: f(95), Confidence: f(0.99), PortionG: f(150)},
		{Name: "Mock Bread", Calories: f(200), Confidence: f(0.95), PortionG: f(80)},
	}, nil
}
