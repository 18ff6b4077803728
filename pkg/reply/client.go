// Package reply is the HTTP client of the reply endpoint.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/llm"
)

// DefaultURL is the reply endpoint of a locally running reply server.
const DefaultURL = "http://localhost:8080/api/chat"

// ErrMalformedReply is returned when a successful response carries no reply.
var ErrMalformedReply = errors.New("malformed reply response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	// Message is the endpoint's error text, when it sent one
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("reply endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("reply endpoint returned status %d: %s", e.StatusCode, e.Message)
}

// Client posts conversations to a reply endpoint. It satisfies chat.Replier.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the endpoint at url.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}

	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Reply posts the conversation and returns the assistant's reply text.
func (c *Client) Reply(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody, err := json.Marshal(llm.ReplyRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("posting reply request",
		zap.String("url", c.url),
		zap.Int("message_count", len(messages)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: httpResp.StatusCode}
		var errResp llm.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			statusErr.Message = errResp.Error
		}
		return "", statusErr
	}

	var resp struct {
		Reply *string `json:"reply"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if resp.Reply == nil {
		return "", fmt.Errorf("%w: missing reply field", ErrMalformedReply)
	}

	return *resp.Reply, nil
}
