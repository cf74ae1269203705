// internal/vlm/checker.go
// Vision-model verification of completed todos. This sits outside the core
// step loop, so unlike the actor client it may retry internally: a flaky
// verification answer is worth a couple of quick attempts, and its failure
// never fails the run.
package vlm

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/config"
)

// Checker implements schemas.Checker against a Gemini-style
// generateContent endpoint.
type Checker struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ schemas.Checker = (*Checker)(nil)

// -- Gemini API request/response structures (internal to this file) --

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// New builds a checker from configuration.
func New(cfg config.CheckerConfig, logger *zap.Logger) (*Checker, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("checker endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("checker API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("vlm_checker"),
	}, nil
}

// AnalyzeScreenshot asks the vision model the question about the PNG and
// returns its textual answer.
func (c *Checker) AnalyzeScreenshot(ctx context.Context, png []byte, question string) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("screenshot is empty")
	}

	payload := generateRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: question},
					{InlineData: &inlineData{
						MimeType: "image/png",
						Data:     base64.StdEncoding.EncodeToString(png),
					}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	bo.MaxInterval = 5 * time.Second

	var answer string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during verification request, retrying", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("vision API error: status %d, body: %s", resp.StatusCode, string(respBody))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
				return err
			default:
				return backoff.Permanent(err)
			}
		}

		var decoded generateResponse
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("vision API returned no answer"))
		}

		answer = strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}

	c.logger.Debug("Verification answer received", zap.String("question", question))
	return answer, nil
}
