package server

import (
	"time"

	"github.com/papercomputeco/chatbox/pkg/llm"
)

// Config is the reply server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Upstream LLM provider URL (e.g., "http://localhost:11434").
	// Empty serves the built-in echo reply.
	UpstreamURL string

	// Model requested from the upstream provider
	Model string

	// Options are the sampling parameters forwarded upstream, nil for provider defaults
	Options *llm.Options

	// UpstreamTimeout bounds a single upstream request. Zero uses DefaultUpstreamTimeout.
	UpstreamTimeout time.Duration
}

// DefaultUpstreamTimeout bounds upstream requests when Config.UpstreamTimeout is unset.
const DefaultUpstreamTimeout = 5 * time.Minute
