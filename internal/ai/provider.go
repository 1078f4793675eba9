package ai

import (
	"context"
	"time"

	"google.golang.org/genai"
)

const (
	// Per-attempt timeout on the outbound Gemini call. The upstream design
	// had no caller-imposed timeout at all; this is a deliberate deviation.
	generateTimeout = 60 * time.Second

	temperature     = float32(0.7)
	topP            = float32(0.95)
	topK            = float32(40)
	maxOutputTokens = int32(2048)
)

// Provider performs exactly one generation call with one API key. The key
// is a parameter, not client state, because it changes between attempts as
// the pool rotates.
type Provider interface {
	Generate(ctx context.Context, apiKey string, contents []*genai.Content) (string, error)
}

type geminiProvider struct {
	model string
}

// NewGeminiProvider returns the production Provider backed by the Gemini
// API.
func NewGeminiProvider(model string) Provider {
	return &geminiProvider{model: model}
}

func (p *geminiProvider) Generate(ctx context.Context, apiKey string, contents []*genai.Content) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		TopP:            genai.Ptr(topP),
		TopK:            genai.Ptr(topK),
		MaxOutputTokens: maxOutputTokens,
	}

	result, err := client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", err
	}

	if result == nil || len(result.Candidates) == 0 {
		return "", &ProviderError{Kind: KindMalformed, Message: "response has no candidates"}
	}
	text := result.Text()
	if text == "" {
		return "", &ProviderError{Kind: KindMalformed, Message: "candidate resolves to empty text"}
	}
	return text, nil
}
