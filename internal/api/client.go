// Package api provides the HTTP client for the search/LLM chat endpoint.
// The store never calls this package directly; the chat service feeds its
// responses back into lifecycle operations.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sellerapp/shopchat/internal/models"
)

const chatPath = "/api/chat"

// ErrAuthRequired is returned when no bearer token is available.
var ErrAuthRequired = errors.New("authentication required: please sign in first")

// TokenSource supplies the bearer credential for outbound requests.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// New creates a chat client. If baseURL is empty, SHOPCHAT_API_URL is
// consulted, then a localhost default. Timeout is configurable via
// SHOPCHAT_API_TIMEOUT (default 60s; sends wait on an LLM).
func New(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SHOPCHAT_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := 60 * time.Second
	if t := os.Getenv("SHOPCHAT_API_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// SendRequest is one outbound user query. SessionID is empty for the first
// message of a new conversation; the backend then assigns one.
type SendRequest struct {
	Query     string
	SessionID string
	UserID    string
	Location  string
}

type queryPart struct {
	Text string `json:"text"`
}

type payloadData struct {
	Location string `json:"location,omitempty"`
}

// sendPayload is the wire format consumed by the backend proxy.
type sendPayload struct {
	UserID    string      `json:"user_id"`
	Query     []queryPart `json:"query"`
	Data      payloadData `json:"data"`
	SessionID string      `json:"session_id,omitempty"`
}

// SendResponse is the backend's answer to a query.
type SendResponse struct {
	LLMResponse []ResponseText `json:"llm_response,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	Data        *ResponseData  `json:"data,omitempty"`
}

// ResponseText is one text fragment of the LLM response.
type ResponseText struct {
	Text string `json:"text"`
}

// ResponseData carries the structured part of the response.
type ResponseData struct {
	SearchResults []models.SearchResult `json:"search_results,omitempty"`
}

// Text returns the first LLM response fragment, or empty.
func (r *SendResponse) Text() string {
	if len(r.LLMResponse) == 0 {
		return ""
	}
	return r.LLMResponse[0].Text
}

// SearchResults returns the structured results, or nil.
func (r *SendResponse) SearchResults() []models.SearchResult {
	if r.Data == nil {
		return nil
	}
	return r.Data.SearchResults
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Send posts one query and decodes the response. Failures come back as
// errors carrying a human-readable message; the caller decides what ends up
// in the conversation.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrAuthRequired
	}

	payload := sendPayload{
		UserID:    req.UserID,
		Query:     []queryPart{{Text: req.Query}},
		Data:      payloadData{Location: req.Location},
		SessionID: req.SessionID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	c.logger.Debug("sending chat request",
		"session_id", req.SessionID, "new_session", req.SessionID == "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the chat backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("authentication/authorization error: invalid or missing token (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody errorBody
		if json.Unmarshal(respBody, &errBody) == nil {
			if errBody.Message != "" {
				return nil, fmt.Errorf("backend error: %s", errBody.Message)
			}
			if errBody.Detail != "" {
				return nil, fmt.Errorf("backend error: %s", errBody.Detail)
			}
		}
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var result SendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
