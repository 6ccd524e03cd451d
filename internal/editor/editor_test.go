package editor

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgedit/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestClient(url string) *Client {
	return New(models.EditConfig{FunctionURL: url, TimeoutSeconds: 5}, testLogger())
}

func TestInvoke_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"message":[{"image":"https://x/y.png"}]}`))
	}))
	defer srv.Close()

	url, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "make it rain")
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", url)
}

func TestInvoke_ResponseShapeUnrecognized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrResponseShape)
}

func TestInvoke_NotJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>nope</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrResponseShape)
}

func TestInvoke_EndpointNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrEditEndpointNotFound)
}

func TestInvoke_InternalError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrEditInternal)
}

func TestInvoke_ConnectionFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrEditConnection)
}

func TestInvoke_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"image":"https://x/y.png"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Invoke(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, models.ErrEditTimeout)
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, generationPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"output":{"choices":[{"message":{"content":[{"image":"https://x/out.png"}]}}]}}`))
	}))
	defer srv.Close()

	g := NewGenerator(models.EditConfig{UpstreamURL: srv.URL, APIKey: "test-key", TimeoutSeconds: 5}, testLogger())

	content, err := g.Generate(context.Background(), "https://x/in.png", "add a hat")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"image":"https://x/out.png"}]`, string(content))
}

func TestGenerate_UpstreamRejects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"Throttling","message":"slow down"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGenerator(models.EditConfig{UpstreamURL: srv.URL, TimeoutSeconds: 5}, testLogger())

	_, err := g.Generate(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGenerate_NoChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"choices":[]}}`))
	}))
	defer srv.Close()

	g := NewGenerator(models.EditConfig{UpstreamURL: srv.URL, TimeoutSeconds: 5}, testLogger())

	_, err := g.Generate(context.Background(), "https://x/in.png", "p")
	assert.ErrorIs(t, err, ErrUpstream)
}
