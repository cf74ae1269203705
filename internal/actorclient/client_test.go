package actorclient_test

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

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/actorclient"
	"github.com/xkilldash9x/tasker-cli/internal/config"
	"github.com/xkilldash9x/tasker-cli/internal/tasker"
)

func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	return zap.New(core)
}

func testActorConfig(endpoint string) config.ActorConfig {
	return config.ActorConfig{
		Endpoint:          endpoint,
		APIKey:            "test-api-key",
		Model:             "lux-actor-1",
		Temperature:       0.2,
		APITimeout:        5 * time.Second,
		RequestsPerSecond: 1000, // effectively unlimited for tests
	}
}

func stepRequest() schemas.StepRequest {
	return schemas.StepRequest{
		Instruction: "book a table",
		Todo:        "open the booking page",
		Observation: schemas.Observation{PNG: []byte("fake-png")},
		History: []schemas.ActionRecord{
			{Todo: "earlier todo", Type: schemas.ActionClick, Detail: "(10, 20)"},
		},
	}
}

func TestNew_Validation(t *testing.T) {
	logger := setupTestLogger(t)

	cfg := testActorConfig("")
	_, err := actorclient.New(cfg, logger)
	assert.Error(t, err, "a missing endpoint must be rejected")

	cfg = testActorConfig("https://example.com")
	cfg.APIKey = ""
	_, err = actorclient.New(cfg, logger)
	assert.Error(t, err, "a missing API key must be rejected")

	_, err = actorclient.New(testActorConfig("https://example.com"), logger)
	assert.NoError(t, err)
}

func TestDecide_Success(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/actor/step", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "lux-actor-1", payload["model"])
		assert.Equal(t, "open the booking page", payload["todo"])
		assert.NotEmpty(t, payload["screenshot"], "the observation must travel as base64")
		assert.Len(t, payload["history"], 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"action": {"type": "CLICK", "thought": "the button is visible", "x": 100, "y": 240},
			"todo_completed": true
		}`))
	}))
	defer server.Close()

	client, err := actorclient.New(testActorConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	decision, err := client.Decide(context.Background(), stepRequest())
	require.NoError(t, err)

	assert.Equal(t, schemas.ActionClick, decision.Action.Type)
	assert.Equal(t, "the button is visible", decision.Action.Thought)
	assert.Equal(t, float64(100), decision.Action.X)
	assert.True(t, decision.TodoCompleted)
	assert.Equal(t, int32(1), requests.Load(), "one Decide call makes exactly one request")
}

func TestDecide_StatusClassification(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"internal error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"gateway timeout", http.StatusGatewayTimeout, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				http.Error(w, "upstream says no", tc.status)
			}))
			defer server.Close()

			client, err := actorclient.New(testActorConfig(server.URL), setupTestLogger(t))
			require.NoError(t, err)

			_, err = client.Decide(context.Background(), stepRequest())
			require.Error(t, err)

			var inferenceErr *actorclient.InferenceError
			require.ErrorAs(t, err, &inferenceErr)
			assert.Equal(t, tc.status, inferenceErr.StatusCode)
			assert.Equal(t, tc.wantTransient, tasker.IsTransient(err))
			assert.Equal(t, int32(1), requests.Load(), "the client itself never retries")
		})
	}
}

func TestDecide_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections from now on

	client, err := actorclient.New(testActorConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	_, err = client.Decide(context.Background(), stepRequest())
	require.Error(t, err)
	assert.True(t, tasker.IsTransient(err))
}

func TestDecide_MalformedResponseIsPermanent(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"missing action", `{"todo_completed": false}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := actorclient.New(testActorConfig(server.URL), setupTestLogger(t))
			require.NoError(t, err)

			_, err = client.Decide(context.Background(), stepRequest())
			require.Error(t, err)
			assert.False(t, tasker.IsTransient(err), "a response the client cannot use will not improve on rerun")
		})
	}
}

func TestDecide_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client, err := actorclient.New(testActorConfig(server.URL), setupTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Decide(ctx, stepRequest())
	require.Error(t, err)
}
