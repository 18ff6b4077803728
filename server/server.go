// Package server provides the reply endpoint chatbox clients talk to. Without
// an upstream it answers every conversation with an echo of the last message;
// with one it forwards the conversation to an Ollama-compatible provider.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/llm"
)

// EchoPrefix starts every reply of the built-in echo endpoint.
const EchoPrefix = "✅ API is working. You said: "

// Server answers reply requests over HTTP. It is stateless: every request
// carries the whole conversation.
type Server struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
	app        *fiber.App
}

// New creates a new Server.
func New(config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := config.UpstreamTimeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: timeout,
		},
	}

	// Register routes
	app.Post("/api/chat", s.handleReply)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return s
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting reply server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("upstream", s.config.UpstreamURL),
		zap.String("model", s.config.Model),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting reply server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Handler exposes the server as a net/http handler.
func (s *Server) Handler() http.HandlerFunc {
	return adaptor.FiberApp(s.app)
}

// handleReply answers a conversation with the assistant's next message.
func (s *Server) handleReply(c *fiber.Ctx) error {
	startTime := time.Now()

	var req llm.ReplyRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	s.logger.Debug("received reply request",
		zap.Int("message_count", len(req.Messages)),
		zap.String("content_preview", truncate(req.LastContent(), 50)),
	)

	if s.config.UpstreamURL == "" {
		return c.JSON(llm.ReplyResponse{Reply: EchoPrefix + req.LastContent()})
	}

	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "messages required"})
	}

	resp, err := s.forwardRequest(c.UserContext(), req.Messages)
	if err != nil {
		s.logger.Error("failed to forward request", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	s.logger.Debug("received response from upstream",
		zap.String("model", resp.Model),
		zap.String("role", resp.Message.Role),
		zap.String("content_preview", truncate(resp.Message.Content, 100)),
		zap.Int("eval_count", resp.EvalCount),
		zap.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(llm.ReplyResponse{Reply: resp.Message.Content})
}

// forwardRequest sends the conversation to the upstream LLM as a
// non-streaming chat request.
func (s *Server) forwardRequest(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	req := llm.NewChatRequest(s.config.Model, messages, s.config.Options)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := strings.TrimSuffix(s.config.UpstreamURL, "/") + "/api/chat"
	s.logger.Debug("forwarding request to upstream",
		zap.String("url", upstreamURL),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, truncate(string(body), 200))
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.Message.Role != "" && resp.Message.Role != "assistant" {
		return nil, errors.New("upstream returned a non-assistant message")
	}

	return &resp, nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
