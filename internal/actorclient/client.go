// internal/actorclient/client.go
// HTTP client for the remote actor model. One Decide call makes exactly one
// inference request; resilience lives at full-run granularity in the retry
// package, never here.
package actorclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/config"
)

// stepPath is the actor service's step inference route.
const stepPath = "/v1/actor/step"

// Client implements schemas.ModelClient against the actor step API.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	temp       float32
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ schemas.ModelClient = (*Client)(nil)

// -- Actor API request/response structures (internal to this file) --

type stepPayload struct {
	Model       string         `json:"model"`
	Temperature float32        `json:"temperature"`
	Instruction string         `json:"instruction,omitempty"`
	Todo        string         `json:"todo"`
	Screenshot  string         `json:"screenshot"` // base64 PNG
	History     []historyEntry `json:"history,omitempty"`
}

type historyEntry struct {
	Todo   string `json:"todo"`
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

type stepResponse struct {
	Action        actionPayload `json:"action"`
	TodoCompleted bool          `json:"todo_completed"`
}

type actionPayload struct {
	Type       string   `json:"type"`
	Thought    string   `json:"thought,omitempty"`
	X          float64  `json:"x,omitempty"`
	Y          float64  `json:"y,omitempty"`
	DeltaY     float64  `json:"delta_y,omitempty"`
	Text       string   `json:"text,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
}

// New builds a client from the actor configuration. Model-selection
// parameters (model name, temperature) pass through unchanged on every
// request.
func New(cfg config.ActorConfig, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("actor endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("actor API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		temp:     cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.Named("actor_client"),
	}, nil
}

// Decide submits the observation plus opaque context and returns the
// model's proposed action and completion signal.
func (c *Client) Decide(ctx context.Context, req schemas.StepRequest) (schemas.Decision, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return schemas.Decision{}, newTransient(0, "rate limiter interrupted: %v", err)
	}

	payload := stepPayload{
		Model:       c.model,
		Temperature: c.temp,
		Instruction: req.Instruction,
		Todo:        req.Todo,
		Screenshot:  base64.StdEncoding.EncodeToString(req.Observation.PNG),
	}
	for _, record := range req.History {
		payload.History = append(payload.History, historyEntry{
			Todo:   record.Todo,
			Type:   string(record.Type),
			Detail: record.Detail,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return schemas.Decision{}, newPermanent(0, "failed to marshal step payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+stepPath, bytes.NewReader(body))
	if err != nil {
		return schemas.Decision{}, newPermanent(0, "failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network-level failures are upstream conditions worth a rerun.
		return schemas.Decision{}, newTransient(0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return schemas.Decision{}, newTransient(resp.StatusCode, "failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return schemas.Decision{}, c.classifyAPIError(resp.StatusCode, respBody)
	}

	var decoded stepResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return schemas.Decision{}, newPermanent(resp.StatusCode, "failed to decode step response: %v", err)
	}
	if decoded.Action.Type == "" {
		return schemas.Decision{}, newPermanent(resp.StatusCode, "step response contains no action")
	}

	c.logger.Debug("Actor decision received",
		zap.Duration("duration", time.Since(start)),
		zap.String("action_type", decoded.Action.Type),
		zap.Bool("todo_completed", decoded.TodoCompleted),
	)

	return schemas.Decision{
		Action: schemas.Action{
			Type:       schemas.ActionType(decoded.Action.Type),
			Thought:    decoded.Action.Thought,
			X:          decoded.Action.X,
			Y:          decoded.Action.Y,
			DeltaY:     decoded.Action.DeltaY,
			Text:       decoded.Action.Text,
			Keys:       decoded.Action.Keys,
			DurationMS: decoded.Action.DurationMS,
		},
		TodoCompleted: decoded.TodoCompleted,
	}, nil
}

// classifyAPIError maps HTTP status codes onto the transient/permanent
// split the retry predicate keys off.
func (c *Client) classifyAPIError(statusCode int, body []byte) error {
	c.logger.Warn("Actor API returned error status",
		zap.Int("status", statusCode),
		zap.ByteString("response", body),
	)
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return newTransient(statusCode, "%s", string(body))
	default:
		return newPermanent(statusCode, "%s", string(body))
	}
}
