package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const thinkingBudget int32 = 32768

// ErrUpstream is returned when the model endpoint rejects a request.
var ErrUpstream = errors.New("assistant: upstream request failed")

// GeminiConfig configures the Gemini client. BaseURL overrides the public
// endpoint.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ThinkModel string
	Timeout    time.Duration
}

// GeminiClient generates replies through the Gemini API.
type GeminiClient struct {
	config GeminiConfig
	models *genai.Models
}

// NewGeminiClient constructs a client bound to the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.ThinkModel == "" {
		cfg.ThinkModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: gemini client: %w", err)
	}
	return &GeminiClient{config: cfg, models: client.Models}, nil
}

// Generate sends p to the model that matches its mode.
func (c *GeminiClient) Generate(ctx context.Context, p Prompt) (Reply, error) {
	model := c.config.Model
	var gc *genai.GenerateContentConfig
	switch p.Mode {
	case ModeThink:
		model = c.config.ThinkModel
		budget := thinkingBudget
		gc = &genai.GenerateContentConfig{ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget}}
	case ModeSearch:
		gc = &genai.GenerateContentConfig{Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}}
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(p.Text), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return Reply{}, fmt.Errorf("%w: %s - %s", ErrUpstream, apiErr.Status, apiErr.Message)
		}
		return Reply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return Reply{}, nil
	}
	return replyFrom(resp.Candidates[0]), nil
}

func replyFrom(cand *genai.Candidate) Reply {
	var reply Reply
	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		reply.Text = text.String()
	}
	if cand.GroundingMetadata == nil {
		return reply
	}
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "link"
		}
		reply.GroundingURLs = append(reply.GroundingURLs, Link{Title: title, URI: chunk.Web.URI})
	}
	return reply
}
