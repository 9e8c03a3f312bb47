package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// Client wraps the Gemini API for text generation and vision calls.
// Images are sent inline; documents small enough to index are well under
// the inline payload limit.
type Client struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Generate(ctx context.Context, prompt string, cfg ports.GenerateConfig) (string, error) {
	model := c.configuredModel(cfg)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "gemini generate", err)
	}
	return responseText(resp)
}

func (c *Client) GenerateFromImage(ctx context.Context, prompt string, mimeType string, image []byte) (string, error) {
	model := c.configuredModel(ports.GenerateConfig{})
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(prompt),
	)
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "gemini vision", err)
	}
	return responseText(resp)
}

func (c *Client) configuredModel(cfg ports.GenerateConfig) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.model)
	if cfg.Temperature > 0 {
		model.SetTemperature(float32(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	return model
}

// imageFormat converts a media type like "image/png" to the bare format
// name the inline-data part expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if format == "" {
		return "png"
	}
	return format
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrProvider, "gemini response", errors.New("no text candidates"))
	}
	return text, nil
}
