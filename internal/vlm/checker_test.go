package vlm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/tasker-cli/internal/config"
	"github.com/xkilldash9x/tasker-cli/internal/vlm"
)

func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	return zap.New(core)
}

func testCheckerConfig(endpoint string) config.CheckerConfig {
	return config.CheckerConfig{
		Enabled:    true,
		Endpoint:   endpoint,
		APIKey:     "test-api-key",
		Model:      "gemini-2.0-flash",
		APITimeout: 5 * time.Second,
	}
}

func TestNew_Validation(t *testing.T) {
	logger := setupTestLogger(t)

	cfg := testCheckerConfig("")
	_, err := vlm.New(cfg, logger)
	assert.Error(t, err)

	cfg = testCheckerConfig("https://example.com")
	cfg.APIKey = ""
	_, err = vlm.New(cfg, logger)
	assert.Error(t, err)

	_, err = vlm.New(testCheckerConfig("https://example.com"), logger)
	assert.NoError(t, err)
}

func TestAnalyzeScreenshot_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		contents := payload["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		require.Len(t, parts, 2, "the request carries the question and the inline image")

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "  Yes, the banner is visible.  "}]}}]
		}`))
	}))
	defer server.Close()

	checker, err := vlm.New(testCheckerConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	answer, err := checker.AnalyzeScreenshot(context.Background(), []byte("fake-png"), "Is the banner visible?")
	require.NoError(t, err)
	assert.Equal(t, "Yes, the banner is visible.", answer)
}

func TestAnalyzeScreenshot_EmptyImage(t *testing.T) {
	checker, err := vlm.New(testCheckerConfig("https://example.com"), setupTestLogger(t))
	require.NoError(t, err)

	_, err = checker.AnalyzeScreenshot(context.Background(), nil, "anything?")
	assert.Error(t, err)
}

func TestAnalyzeScreenshot_PermanentErrorDoesNotRetry(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	checker, err := vlm.New(testCheckerConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	_, err = checker.AnalyzeScreenshot(context.Background(), []byte("fake-png"), "question?")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestAnalyzeScreenshot_TransientErrorRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "Yes"}]}}]}`))
	}))
	defer server.Close()

	checker, err := vlm.New(testCheckerConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	answer, err := checker.AnalyzeScreenshot(context.Background(), []byte("fake-png"), "question?")
	require.NoError(t, err)
	assert.Equal(t, "Yes", answer)
	assert.Equal(t, int32(2), requests.Load())
}

func TestAnalyzeScreenshot_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	checker, err := vlm.New(testCheckerConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	_, err = checker.AnalyzeScreenshot(context.Background(), []byte("fake-png"), "question?")
	assert.Error(t, err)
}
