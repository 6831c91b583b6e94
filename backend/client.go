// Package backend is the HTTP boundary to the inference/retrieval service.
// It normalizes responses and failures into typed results and never touches
// client-side state: every state mutation driven by these calls happens in
// the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docchat/chat"
)

// DefaultTimeout for backend requests.
const DefaultTimeout = 60 * time.Second

// Client talks to the document chat backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// UploadDocument posts a PDF to the backend. sessionID may be empty, which
// asks the backend to start a new session for the document.
func (c *Client) UploadDocument(ctx context.Context, file []byte, filename, sessionID string) (UploadResult, error) {
	const op = "upload document"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := part.Write(file); err != nil {
		return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
	}
	if sessionID != "" {
		if err := w.WriteField("session_id", sessionID); err != nil {
			return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents", &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result UploadResult
	if err := c.do(op, req, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// SendMessage posts one chat turn. An empty sessionID signals the backend to
// start a new conversation; the backend is authoritative for the final id.
func (c *Client) SendMessage(ctx context.Context, text, sessionID, documentID string) (SendResult, error) {
	const op = "send message"

	payload, err := json.Marshal(map[string]string{
		"message":     text,
		"session_id":  sessionID,
		"document_id": documentID,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Two backend generations name the reply field differently.
	var parsed struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
		Answer    string `json:"answer"`
	}
	if err := c.do(op, req, &parsed); err != nil {
		return SendResult{}, err
	}

	reply := parsed.Reply
	if reply == "" {
		reply = parsed.Answer
	}
	return SendResult{SessionID: parsed.SessionID, Reply: reply}, nil
}

// FetchHistory lists the backend's stored sessions. Callers treat any error
// as an empty list: history is best-effort, never blocking.
func (c *Client) FetchHistory(ctx context.Context) ([]SessionSummary, error) {
	const op = "fetch history"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat/history", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sessions []SessionSummary
	if err := c.do(op, req, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FetchSessionMessages returns the stored message log of one session in
// display order.
func (c *Client) FetchSessionMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	const op = "fetch session messages"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/chat/"+url.PathEscape(sessionID)+"/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var messages []chat.Message
	if err := c.do(op, req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteSession removes a stored session and its history from the backend.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "delete session"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/chat/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(op, req, nil)
}

// do executes the request and decodes a JSON body into out (skipped when out
// is nil). Failures map onto the two error kinds callers dispatch on:
// TransportError when no HTTP response arrived, BackendError otherwise.
func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &BackendError{Op: op, Status: resp.StatusCode, Body: "undecodable response: " + strings.TrimSpace(string(body))}
	}
	return nil
}
