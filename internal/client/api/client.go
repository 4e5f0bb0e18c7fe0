package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	authdomain "github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

var (
	ErrUnauthorized = errors.New("session is not valid")
	ErrStreamClosed = errors.New("presence stream closed by server")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("friendmap api returned status %d: %s", e.Code, e.Message)
}

// PublishBody is the JSON body of PUT /presence/me.
type PublishBody struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DisplayName   string  `json:"displayName,omitempty"`
	Emoji         string  `json:"emoji,omitempty"`
	StatusMessage string  `json:"statusMessage"`
}

type snapshotFrame struct {
	Type    string          `json:"type"`
	Records []domain.Record `json:"records"`
}

// Client talks to the friendmap API over HTTP and WebSocket.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// StartSession passes name through the server-side gate and returns an
// anonymous session. resumeToken, the last token this device held, keeps the
// same principal; empty asks for a new one.
func (c *Client) StartSession(ctx context.Context, name, resumeToken string) (*authdomain.Session, error) {
	body := map[string]string{"name": name}
	if resumeToken != "" {
		body["resumeToken"] = resumeToken
	}
	var sess authdomain.Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// PublishPresence merge-writes the caller's record.
func (c *Client) PublishPresence(ctx context.Context, token string, body PublishBody) (*domain.Record, error) {
	var resp struct {
		Record domain.Record `json:"record"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/presence/me", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Record, nil
}

// ListPresence fetches one snapshot of the collection.
func (c *Client) ListPresence(ctx context.Context, token string) ([]domain.Record, error) {
	var resp struct {
		Records []domain.Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/presence", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// WatchPresence opens the presence websocket and calls handler with every
// snapshot frame. It blocks until ctx is done (returning nil) or the
// connection fails.
func (c *Client) WatchPresence(ctx context.Context, token string, handler domain.SnapshotHandler) error {
	u, err := c.streamURL(token)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("dial presence stream: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var frame snapshotFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read presence stream: %w", err)
		}
		if frame.Type != "snapshot" {
			continue
		}
		handler(frame.Records)
	}
}

func (c *Client) streamURL(token string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/presence/ws")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call friendmap api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return identity.ErrNameRejected
	}
	return &StatusError{Code: code, Message: msg}
}
