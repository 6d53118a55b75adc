package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/foodflow/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client handles communication with the OpenRouter chat-completions API.
// One call to Invoke is exactly one model invocation; retries and fallback
// ordering are the caller's responsibility.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	referer     string
	appTitle    string
	rateLimiter *rate.Limiter
	recorder    domain.Recorder
}

// NewClient creates a new OpenRouter API client
func NewClient(apiKey, baseURL, referer, appTitle string, timeout time.Duration, recorder domain.Recorder) *Client {
	// Free-tier models tolerate roughly one request per second sustained
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	if recorder == nil {
		recorder = NopRecorder{}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		referer:     referer,
		appTitle:    appTitle,
		rateLimiter: limiter,
		recorder:    recorder,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke sends one chat-completion request to the given model and returns the
// raw text of its reply. Every failure is a *domain.ModelError.
func (c *Client) Invoke(ctx context.Context, modelID string, task domain.TaskType, payload domain.ModelPayload) (string, error) {
	start := time.Now()
	text, err := c.invoke(ctx, modelID, payload)
	elapsed := time.Since(start)

	outcome := domain.OutcomeSuccess
	if err != nil {
		var merr *domain.ModelError
		if errors.As(err, &merr) {
			outcome = domain.Outcome(merr.Kind)
		} else {
			outcome = domain.OutcomeTransportError
		}
	}
	c.recorder.Record(modelID, task, elapsed, outcome)

	return text, err
}

func (c *Client) invoke(ctx context.Context, modelID string, payload domain.ModelPayload) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", classify(modelID, 0, err)
	}

	parts := []contentPart{{Type: "text", Text: payload.Prompt}}
	if len(payload.Image) > 0 {
		mime := payload.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(payload.Image))
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL}})
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:    modelID,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return "", &domain.ModelError{Kind: domain.KindInvalidResponse, Model: modelID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", &domain.ModelError{Kind: domain.KindTransportError, Model: modelID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.appTitle != "" {
		req.Header.Set("X-Title", c.appTitle)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[GATEWAY] Request error for model %s: %v", modelID, err)
		return "", classify(modelID, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(modelID, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[GATEWAY] API error for model %s - Status: %d, Body: %s", modelID, resp.StatusCode, truncate(string(body), 200))
		return "", classify(modelID, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &domain.ModelError{Kind: domain.KindInvalidResponse, Model: modelID, Status: resp.StatusCode, Err: err}
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", &domain.ModelError{Kind: domain.KindInvalidResponse, Model: modelID, Status: resp.StatusCode, Err: errors.New("empty choices in response")}
	}

	return chatResp.Choices[0].Message.Content, nil
}

// classify maps a transport failure or non-200 status to a ModelError kind
func classify(modelID string, status int, err error) *domain.ModelError {
	switch {
	case status == http.StatusTooManyRequests:
		return &domain.ModelError{Kind: domain.KindRateLimited, Model: modelID, Status: status, Err: err}
	case status >= 500:
		return &domain.ModelError{Kind: domain.KindTransportError, Model: modelID, Status: status, Err: err}
	case status >= 400:
		// Remaining 4xx codes mean the request itself is unacceptable to
		// this model; retrying it would fail identically.
		return &domain.ModelError{Kind: domain.KindInvalidResponse, Model: modelID, Status: status, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ModelError{Kind: domain.KindTimeout, Model: modelID, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.ModelError{Kind: domain.KindTimeout, Model: modelID, Err: err}
	}

	return &domain.ModelError{Kind: domain.KindTransportError, Model: modelID, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
