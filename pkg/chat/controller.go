package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/llm"
)

// FailureMessage is appended as the assistant's turn when a reply request
// fails. The underlying cause only goes to the log.
const FailureMessage = "Sorry, something went wrong. (Check the server tab for errors.)"

// DefaultReplyTimeout bounds a single reply request.
const DefaultReplyTimeout = 2 * time.Minute

// Replier produces the assistant's reply to a conversation. The messages
// carry the full log, system message included, ending with the user's turn.
type Replier interface {
	Reply(ctx context.Context, messages []llm.Message) (string, error)
}

// ReplierFunc adapts a function to the Replier interface.
type ReplierFunc func(ctx context.Context, messages []llm.Message) (string, error)

func (f ReplierFunc) Reply(ctx context.Context, messages []llm.Message) (string, error) {
	return f(ctx, messages)
}

// Controller runs at most one reply request at a time against a Store.
//
// It is Idle until Submit accepts a message, Awaiting until that request
// succeeds or fails, and Idle again afterwards. Every request ends: a reply
// appends the assistant's text, anything else (error, timeout, cancelled
// context, panicking replier) appends FailureMessage.
type Controller struct {
	store   *Store
	replier Replier
	logger  *zap.Logger

	timeout        time.Duration
	failureMessage string

	mu       sync.Mutex
	awaiting bool
	// idle is closed when the outstanding request ends. Nil before the first.
	idle chan struct{}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithReplyTimeout bounds every reply request. Zero disables the timeout,
// leaving only cancellation of the Submit context.
func WithReplyTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithFailureMessage replaces FailureMessage.
func WithFailureMessage(text string) ControllerOption {
	return func(c *Controller) {
		if text != "" {
			c.failureMessage = text
		}
	}
}

// NewController creates an idle Controller.
func NewController(store *Store, replier Replier, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		store:          store,
		replier:        replier,
		logger:         logger,
		timeout:        DefaultReplyTimeout,
		failureMessage: FailureMessage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends text as the user's next message. It returns false without
// touching any state when the trimmed text is empty or a request is already
// outstanding. Otherwise the user message is appended, the busy flag raised,
// and the reply request runs in the background under ctx.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	_, ok := c.submit(ctx, text)
	return ok
}

// Send is Submit for callers that need the outcome of their own round. The
// returned channel receives the assistant message (the reply, or the failure
// message) that ends the round, then is closed.
func (c *Controller) Send(ctx context.Context, text string) (<-chan Message, bool) {
	return c.submit(ctx, text)
}

func (c *Controller) submit(ctx context.Context, text string) (<-chan Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Debug("ignoring empty submission")
		return nil, false
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		c.logger.Debug("ignoring submission while awaiting a reply")
		return nil, false
	}
	c.awaiting = true
	c.idle = make(chan struct{})
	history := c.store.beginRound(text)
	c.mu.Unlock()

	c.logger.Debug("submitted message",
		zap.Int("message_count", len(history)),
		zap.String("content_preview", truncate(text, 50)),
	)

	result := make(chan Message, 1)
	go c.await(ctx, history, result)
	return result, true
}

func (c *Controller) await(ctx context.Context, history []Message, result chan<- Message) {
	defer close(result)

	start := time.Now()
	reply, err := c.call(ctx, history)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("reply request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		result <- c.store.completeRound(c.failureMessage)
	} else {
		c.logger.Debug("received reply",
			zap.String("content_preview", truncate(reply, 100)),
			zap.Duration("duration", time.Since(start)),
		)
		result <- c.store.completeRound(reply)
	}
	c.awaiting = false
	close(c.idle)
}

type replyResult struct {
	reply string
	err   error
}

// call runs the replier and gives up once the timeout or ctx ends, even if
// the replier ignores its context.
func (c *Controller) call(ctx context.Context, history []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	done := make(chan replyResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- replyResult{err: fmt.Errorf("replier panicked: %v", r)}
			}
		}()
		reply, err := c.replier.Reply(ctx, ToWire(history))
		done <- replyResult{reply: reply, err: err}
	}()

	select {
	case r := <-done:
		return r.reply, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("reply request abandoned: %w", ctx.Err())
	}
}

// Busy reports whether a reply request is outstanding.
func (c *Controller) Busy() bool {
	return c.store.Busy()
}

// Wait blocks until the request outstanding at the time of the call, if any,
// has ended.
func (c *Controller) Wait() {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	if idle != nil {
		<-idle
	}
}

// ResetConversation replaces the log with a fresh seed. It is refused while
// a reply request is outstanding so no mutation lands between a user message
// and its reply.
func (c *Controller) ResetConversation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.awaiting {
		c.logger.Debug("ignoring reset while awaiting a reply")
		return false
	}
	c.store.Reset()
	return true
}

// ToggleTheme flips the persisted theme and returns the new value.
func (c *Controller) ToggleTheme() Theme {
	return c.store.ToggleTheme()
}

// Snapshot returns the current conversation state.
func (c *Controller) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// Store returns the Store the controller mutates.
func (c *Controller) Store() *Store {
	return c.store
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
