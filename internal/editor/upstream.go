// internal/editor/upstream.go
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"imgedit/internal/models"
)

const (
	generationPath = "/services/aigc/multimodal-generation/generation"
	editModel      = "qwen-image-edit"
)

// ErrUpstream marks a generation failure reported by the model API itself,
// as opposed to a fault inside this service. The hosted edit function masks
// it as a null message rather than an HTTP error.
var ErrUpstream = errors.New("upstream generation failed")

// Generator calls the upstream multimodal generation API that produces the
// edited image. It backs the hosted edit function endpoint.
type Generator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewGenerator(cfg models.EditConfig, log *slog.Logger) *Generator {
	return &Generator{
		baseURL:    cfg.UpstreamURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:        log,
	}
}

type generationRequest struct {
	Model      string               `json:"model"`
	Input      generationInput      `json:"input"`
	Parameters generationParameters `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []map[string]string `json:"content"`
}

type generationParameters struct {
	NegativePrompt string `json:"negative_prompt"`
	Watermark      bool   `json:"watermark"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate runs one edit generation and returns the raw message content of
// the first choice, which the edit function passes through untouched.
func (g *Generator) Generate(ctx context.Context, imageURL, prompt string) (json.RawMessage, error) {
	reqBody := generationRequest{
		Model: editModel,
		Input: generationInput{
			Messages: []generationMessage{{
				Role: "user",
				Content: []map[string]string{
					{"image": imageURL},
					{"text": prompt},
				},
			}},
		},
		Parameters: generationParameters{NegativePrompt: "", Watermark: false},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+generationPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.WarnContext(ctx, "generation rejected",
			slog.Int("status", resp.StatusCode), slog.String("body", snippet(respBody)))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var gen generationResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return nil, fmt.Errorf("%w: bad response: %v", ErrUpstream, err)
	}
	if len(gen.Output.Choices) == 0 || len(gen.Output.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrUpstream)
	}
	return gen.Output.Choices[0].Message.Content, nil
}
