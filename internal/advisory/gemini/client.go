// Package gemini adapts the Gemini API client to advisory.Model.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/MrJamesThe3rd/mlms/internal/advisory"
)

var ErrEmptyResponse = errors.New("gemini returned no content")

type Client struct {
	models *genai.Models
	model  string
}

type Option func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPClient = hc
	}
}

func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{models: c.Models, model: model}, nil
}

// GenerateContent sends one generateContent call and returns the text of the
// first candidate.
func (c *Client) GenerateContent(ctx context.Context, req advisory.Request) (string, error) {
	config, err := buildConfig(req)
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		contents = append(contents, genai.NewContentFromText(m.Text, genai.Role(m.Role)))
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}

	return text, nil
}

func buildConfig(req advisory.Request) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	if req.Schema != nil {
		schema, err := toSchema(req.Schema)
		if err != nil {
			return nil, err
		}

		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	return config, nil
}

// toSchema converts the OpenAPI-style map used by the prompts into the SDK
// type, which carries the same JSON field names.
func toSchema(m map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding response schema: %w", err)
	}

	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("decoding response schema: %w", err)
	}

	return &schema, nil
}
