// internal/editor/editor.go
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
	"net/url"
	"strings"
	"time"

	"imgedit/internal/models"
)

// Client calls the edit function with an image reference and a prompt and
// normalizes whatever shape comes back into an edited-image URL.
//
// There is no retry at this layer: a remote edit is expensive and not known
// to be idempotent, so retrying is left to the caller's judgement.
type Client struct {
	functionURL string
	apiKey      string
	httpClient  *http.Client
	log         *slog.Logger
}

func New(cfg models.EditConfig, log *slog.Logger) *Client {
	return &Client{
		functionURL: cfg.FunctionURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:         log,
	}
}

type editRequest struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
}

// Invoke submits a single edit request and returns the edited-image URL.
func (c *Client) Invoke(ctx context.Context, imageURL, prompt string) (string, error) {
	body, err := json.Marshal(editRequest{ImageURL: imageURL, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal edit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrEditConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", models.ErrEditTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", models.ErrEditConnection, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrEditConnection, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", models.ErrEditEndpointNotFound, c.functionURL)
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: status %d: %s", models.ErrEditInternal, resp.StatusCode, snippet(respBody))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d: %s", models.ErrEditInternal, resp.StatusCode, snippet(respBody))
	}

	var doc any
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return "", fmt.Errorf("%w: not json: %s", models.ErrResponseShape, snippet(respBody))
	}

	editedURL, ok := ExtractEditedURL(doc)
	if !ok {
		c.log.WarnContext(ctx, "edit response had no extractable url",
			slog.String("body", snippet(respBody)))
		return "", fmt.Errorf("%w: %s", models.ErrResponseShape, snippet(respBody))
	}
	return editedURL, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
