// internal/uploader/uploader.go
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"imgedit/internal/models"
)

// MaxUploadSize is the ceiling for a single uploaded image.
const MaxUploadSize = 10 << 20

// maxAttempts bounds the upload retry loop.
const maxAttempts = 3

// Client pushes image bytes to the external object-storage API and resolves
// a URL the remote edit service can fetch. In tenant-scoped mode the bucket
// is private, keys are prefixed with the owner id and reads go through
// time-limited signed URLs; otherwise keys are flat and URLs are public.
type Client struct {
	baseURL      string
	apiKey       string
	bucket       string
	tenantScoped bool
	signedTTL    time.Duration
	retryBase    time.Duration
	httpClient   *http.Client
	log          *slog.Logger
}

func New(cfg models.StorageConfig, tenantScoped bool, log *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		bucket:       cfg.Bucket,
		tenantScoped: tenantScoped,
		signedTTL:    time.Duration(cfg.SignedURLTTLSeconds) * time.Second,
		retryBase:    time.Duration(cfg.RetryBaseSeconds) * time.Second,
		httpClient:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:          log,
	}
}

// Upload writes data under a fresh key and returns a fetchable URL.
// The write is attempted up to maxAttempts times with linearly growing
// backoff; permission failures short-circuit the loop, everything else is
// treated as transient and the last failure is surfaced when attempts run out.
func (c *Client) Upload(ctx context.Context, data []byte, fileName string, owner *uuid.UUID) (string, error) {
	if len(data) == 0 {
		return "", models.ErrEmptyFile
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("%w: %d bytes", models.ErrFileTooLarge, len(data))
	}
	if c.tenantScoped && owner == nil {
		return "", models.ErrAuthRequired
	}

	key := objectKey(fileName, owner)
	contentType := detectContentType(fileName, data)

	attempt := 0
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * c.retryBase, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.put(ctx, key, contentType, data); err != nil {
			if errors.Is(err, models.ErrPermissionDenied) {
				return err
			}
			c.log.WarnContext(ctx, "upload attempt failed",
				slog.String("key", key), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w after %d attempts: %w", models.ErrUploadExhausted, maxAttempts, err)
	}

	return c.resolveURL(ctx, key)
}

// Probe performs a lightweight reachability check against the storage API.
// It is advisory: a server that answers at all counts as a pass, even when it
// rejects the request; only transport-level failures are reported.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/storage/v1/bucket", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.WarnContext(ctx, "storage probe rejected, continuing",
			slog.Int("status", resp.StatusCode))
	}
	return nil
}

func (c *Client) put(ctx context.Context, key, contentType string, data []byte) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", models.ErrPermissionDenied, resp.StatusCode, body)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: bucket %q: %s", models.ErrBucketMisconfigured, c.bucket, body)
	default:
		return fmt.Errorf("%w: status %d: %s", models.ErrNetwork, resp.StatusCode, body)
	}
}

// resolveURL returns a URL fetchable by the remote edit service, which is a
// third-party caller: a signed URL when the bucket is private, a public URL
// otherwise.
func (c *Client) resolveURL(ctx context.Context, key string) (string, error) {
	if !c.tenantScoped {
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key), nil
	}

	payload, err := json.Marshal(map[string]int{"expiresIn": int(c.signedTTL.Seconds())})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: sign status %d: %s", models.ErrNetwork, resp.StatusCode, body)
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &signed); err != nil || signed.SignedURL == "" {
		return "", fmt.Errorf("%w: bad sign response: %s", models.ErrNetwork, body)
	}
	return c.baseURL + "/storage/v1" + signed.SignedURL, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// objectKey derives a collision-resistant storage key: <owner>/<uuid>.<ext>
// in tenant mode so path-prefix access rules can isolate users, <uuid>.<ext>
// otherwise. The extension is the lower-cased trailing suffix of the original
// file name.
func objectKey(fileName string, owner *uuid.UUID) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		ext = "bin"
	}
	name := uuid.New().String() + "." + ext
	if owner != nil {
		return owner.String() + "/" + name
	}
	return name
}

// detectContentType looks the type up by extension first, then sniffs the
// bytes when the extension is unknown.
func detectContentType(fileName string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
