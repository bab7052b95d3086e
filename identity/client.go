package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath  = "/auth/refresh"
	exchangePath = "/auth/oauth/callback"

	// All concurrent refreshes collapse onto this one singleflight key:
	// there is only ever one durable credential per client.
	refreshFlightKey = "refresh"
)

// Client talks to the identity service. The durable credential is an
// HTTP-only cookie held by the client's cookie jar; it rides along on every
// refresh request implicitly and is never handled as a value by this code.
type Client struct {
	baseURL    string
	httpClient *http.Client
	flight     singleflight.Group
	log        zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement should
// carry a cookie jar, otherwise the durable credential has nowhere to live.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates an identity service client with its own cookie jar.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[identity NewClient] baseURL is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[identity NewClient] cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
		log:        zerolog.Nop(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Refresh exchanges the durable credential for a new access credential.
//
// Concurrent callers collapse onto a single network request and all receive
// the same result, success or failure. The in-flight handle is released when
// the shared call completes, so the next Refresh after completion always
// issues a fresh request. The service's rejection of the durable credential
// (expired, revoked, absent) surfaces as *RefreshError; no retry is attempted
// here, retry policy belongs to the caller.
func (c *Client) Refresh(ctx context.Context) (*AuthResponse, error) {
	v, err, shared := c.flight.Do(refreshFlightKey, func() (any, error) {
		return c.doRefresh(ctx, nil)
	})
	if shared {
		c.log.Debug().Msg("refresh joined an in-flight request")
	}
	if err != nil {
		return nil, err
	}
	return v.(*AuthResponse), nil
}

// RefreshWithToken is the legacy overload that sends an explicit durable
// credential in the request body instead of relying on the cookie jar.
//
// Deprecated: it exists for callers that predate transport-managed
// credentials and does not participate in request collapsing. Concurrent
// calls issue concurrent network requests.
func (c *Client) RefreshWithToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	return c.doRefresh(ctx, map[string]string{"refreshToken": refreshToken})
}

func (c *Client) doRefresh(ctx context.Context, body map[string]string) (*AuthResponse, error) {
	resp, status, err := c.post(ctx, refreshPath, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &RefreshError{StatusCode: status, Message: serverMessage(resp)}
	}

	auth, err := decodeAuthResponse(resp)
	if err != nil {
		return nil, &RefreshError{StatusCode: status, Message: err.Error()}
	}
	return auth, nil
}

// Exchange trades an authorization code for an access credential. The role
// hint tells the identity service which portal the user left from; the
// service echoes the user profile so the caller can assert the role matches.
// Callers bound the call with a context deadline; a deadline hit surfaces as
// a context.DeadlineExceeded in the returned error chain.
func (c *Client) Exchange(ctx context.Context, code, roleHint, state string) (*AuthResponse, error) {
	body := map[string]string{
		"code":     code,
		"roleHint": roleHint,
		"state":    state,
	}

	resp, status, err := c.post(ctx, exchangePath, body)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
		// fallthrough to decoding
	case status == http.StatusBadRequest, status == http.StatusUnauthorized,
		status == http.StatusNotFound, status == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCode, serverMessage(resp))
	default:
		return nil, fmt.Errorf("[identity Exchange] unexpected status %d: %s", status, serverMessage(resp))
	}

	auth, err := decodeAuthResponse(resp)
	if err != nil {
		return nil, err
	}
	return auth, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]string) ([]byte, int, error) {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("[identity post] marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("[identity post] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("[identity post] read body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func decodeAuthResponse(raw []byte) (*AuthResponse, error) {
	var auth AuthResponse
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if auth.AccessToken == "" || auth.TokenType == "" || auth.ExpiresInSeconds <= 0 {
		return nil, fmt.Errorf("%w: missing credential fields", ErrInvalidResponse)
	}
	if auth.User == nil || auth.User.Role == "" {
		return nil, fmt.Errorf("%w: missing user profile", ErrInvalidResponse)
	}
	return &auth, nil
}

// serverMessage pulls a human-readable message out of an error response body.
// The identity service is inconsistent about the field name, so a few shapes
// are tried before giving up and returning a generic message.
func serverMessage(raw []byte) string {
	var body struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.ErrorDescription != "":
			return body.ErrorDescription
		case body.Error != "":
			return body.Error
		}
	}
	return "authentication service rejected the request"
}
