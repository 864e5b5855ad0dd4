package wingycoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Wingy Coin API.
const DefaultBaseURL = "https://api.wingycoin.com"

// Client talks to the Wingy Coin HTTP API. It holds no per-user state and is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A non-positive timeout falls back to ten seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login checks credentials against the ledger.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp LoginResponse
	if err := c.post(ctx, "login", "/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.ID == "" {
		return nil, &GatewayError{Op: "login", StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return resp.User, nil
}

// Signup creates a ledger account and returns its id. The username is sent lowercased.
func (c *Client) Signup(ctx context.Context, email, password, username string) (string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
		"username": strings.ToLower(username),
	}
	var resp SignupResponse
	if err := c.post(ctx, "signup", "/signup", body, &resp); err != nil {
		return "", err
	}
	if resp.UserID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to sign up"
		}
		return "", &GatewayError{Op: "signup", StatusCode: http.StatusBadRequest, Message: msg}
	}
	return resp.UserID, nil
}

// CheckBalance returns the authoritative balance of a ledger account.
func (c *Client) CheckBalance(ctx context.Context, userID string) (*Balance, error) {
	var resp Balance
	if err := c.post(ctx, "check-balance", "/check-balance", map[string]string{"userId": userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &GatewayError{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &GatewayError{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read body: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: upstreamMessage(resp, raw)}
	}
	if !gjson.ValidBytes(raw) {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// upstreamMessage extracts a human readable error from a failed response.
func upstreamMessage(resp *http.Response, raw []byte) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"message", "error", "msg", "error_description"} {
			if v := gjson.GetBytes(raw, path); v.Exists() && v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
