// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the Duet backend.
//
// It covers the four endpoints the chat surface needs: chat completion,
// file upload, sub-model listing, and the runtime status probe. All calls
// go through a shared pooled client; responses are size-capped.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/duetchat/duet-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where a local Duet backend listens.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout bounds non-streaming API requests. Chat completions on
	// small local models can take a while, so this is generous.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize caps response bodies to bound memory use.
	MaxResponseSize = 10 * 1024 * 1024

	// EmptyReply substitutes for a successful response with no content.
	EmptyReply = "Empty response"

	// statusPollInterval is the minimum spacing between status probes;
	// calls inside the window reuse the cached result.
	statusPollInterval = 10 * time.Second
)

// Shared HTTP client with connection pooling for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// FallbackModels is offered when the backend lists no installed models.
var FallbackModels = []string{"gemma:2b", "llama3.2:1b"}

// ErrUploadRejected indicates the backend refused an upload.
var ErrUploadRejected = errors.New("upload rejected")

// BackendError is a failure the backend itself reported, as opposed to a
// transport failure. Message is user-presentable.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return "backend error: " + e.Message
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the chat completion request body. History is pre-reshaped:
// attachment context is already inlined into user message content.
type ChatRequest struct {
	Model     string              `json:"model"`
	Messages  []model.WireMessage `json:"messages"`
	Persona   string              `json:"persona"`
	Mode      string              `json:"mode"`
	SessionID string              `json:"sessionId"`
}

// chatResponse accepts both reply shapes the backend has used: a flat
// "reply" string, and a nested "response.content".
type chatResponse struct {
	Success  bool   `json:"success"`
	Reply    string `json:"reply"`
	Response *struct {
		Content string `json:"content"`
	} `json:"response"`
	Error string `json:"error"`
}

// uploadResponse is the upload endpoint's response body.
type uploadResponse struct {
	Success      bool   `json:"success"`
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// modelsResponse is the model listing response body.
type modelsResponse struct {
	Success bool     `json:"success"`
	Models  []string `json:"models"`
}

// statusResponse is the status probe response body.
type statusResponse struct {
	Online bool `json:"online"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one Duet backend on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string

	// statusLimiter spaces out status probes; between allowances the last
	// observed value is returned.
	statusLimiter *rate.Limiter
	lastOnline    bool
}

// NewClient creates a client for the given backend base URL and bearer
// token. An empty URL falls back to the local default.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		token:         token,
		statusLimiter: rate.NewLimiter(rate.Every(statusPollInterval), 1),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the auth and content headers for a backend request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "duet-tui/0.1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readResponse reads a response body with the size cap applied.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends the full conversation history and returns the assistant reply.
//
// A transport or decode failure returns a plain error. A failure the backend
// reported returns a *BackendError whose message is suitable for display.
// A successful response with no content returns EmptyReply rather than an
// empty string.
func (c *Client) Chat(ctx context.Context, reqBody ChatRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/ai/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if !chatResp.Success {
		msg := chatResp.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &BackendError{Message: msg}
	}

	reply := chatResp.Reply
	if reply == "" && chatResp.Response != nil {
		reply = chatResp.Response.Content
	}
	if reply == "" {
		reply = EmptyReply
	}
	return reply, nil
}

// =============================================================================
// UPLOAD
// =============================================================================

// Upload sends file content as multipart form data and returns the stored
// attachment descriptor. The attachment is not bound to any message until a
// send completes; the caller stages it.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (model.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/upload", &buf)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return model.Attachment{}, err
	}

	var upResp uploadResponse
	if err := json.Unmarshal(body, &upResp); err != nil {
		return model.Attachment{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if !upResp.Success {
		msg := upResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return model.Attachment{}, fmt.Errorf("%w: %s", ErrUploadRejected, msg)
	}

	return model.Attachment{
		URL:          upResp.URL,
		FileType:     upResp.FileType,
		OriginalName: upResp.OriginalName,
		StoredName:   upResp.Filename,
	}, nil
}

// =============================================================================
// MODELS AND STATUS
// =============================================================================

// Models returns the installed sub-model names. Any failure, or an empty
// listing, yields the fallback list so the selector is never empty.
func (c *Client) Models(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/ai/models", nil)
	if err != nil {
		return FallbackModels
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return FallbackModels
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return FallbackModels
	}

	var mResp modelsResponse
	if err := json.Unmarshal(body, &mResp); err != nil || !mResp.Success || len(mResp.Models) == 0 {
		return FallbackModels
	}
	return mResp.Models
}

// Online probes whether the AI runtime behind the backend is reachable.
//
// Probes are throttled; inside the throttle window the previous observation
// is returned without touching the network, so the status indicator can be
// refreshed on every UI tick.
func (c *Client) Online(ctx context.Context) bool {
	if !c.statusLimiter.Allow() {
		return c.lastOnline
	}
	c.lastOnline = c.probeOnline(ctx)
	return c.lastOnline
}

func (c *Client) probeOnline(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/ai/status", nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return false
	}

	var sResp statusResponse
	if err := json.Unmarshal(body, &sResp); err != nil {
		return false
	}
	return sResp.Online
}
