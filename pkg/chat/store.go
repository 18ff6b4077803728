package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/storage"
)

const (
	// DefaultLogKey and DefaultThemeKey are the storage keys of a Store built
	// without WithKeys.
	DefaultLogKey   = "chatbox_state_v1"
	DefaultThemeKey = "chatbox_theme_v1"

	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultGreeting     = "Hi! Ask me anything 😊\n\nYou can use **bold**, lists, and links."

	defaultPersistTimeout = 5 * time.Second
)

// Store is the single source of truth for the message log and the theme.
//
// Persistence is best effort: every mutation is followed by a write of the
// affected key, write failures are logged and swallowed, and the in-memory
// state stays authoritative for the running session. Each write replaces the
// whole value so a later Initialize sees the state as of the last successful
// write.
//
// Every mutation emits a Snapshot to subscribers, in mutation order.
// Subscribers are called synchronously while the next mutation waits, so they
// should hand the snapshot off without blocking, and must not mutate the Store
// (or call into a Controller using it) from the callback.
type Store struct {
	driver storage.Driver
	logger *zap.Logger

	clock          func() time.Time
	newID          func() string
	systemPrompt   string
	greeting       string
	logKey         string
	themeKey       string
	persistTimeout time.Duration

	mu       sync.Mutex
	messages []Message
	theme    Theme
	busy     bool
	version  uint64

	// notifyMu is taken before mu is released so snapshots reach subscribers
	// in the order the mutations happened.
	notifyMu sync.Mutex

	subsMu      sync.Mutex
	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now as the source of message timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithIDGenerator replaces the UUID generator used for message IDs.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithSeed sets the system prompt and greeting of the seed log. Empty values
// keep the defaults.
func WithSeed(systemPrompt, greeting string) StoreOption {
	return func(s *Store) {
		if systemPrompt != "" {
			s.systemPrompt = systemPrompt
		}
		if greeting != "" {
			s.greeting = greeting
		}
	}
}

// WithKeys sets the storage keys of the log and the theme. Stores with
// distinct keys are fully independent even on a shared driver.
func WithKeys(logKey, themeKey string) StoreOption {
	return func(s *Store) {
		s.logKey = logKey
		s.themeKey = themeKey
	}
}

// WithPersistTimeout bounds every persistence write.
func WithPersistTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.persistTimeout = d
	}
}

// NewStore creates a Store holding a fresh, unpersisted seed log and the
// default theme. Call Initialize to restore persisted state.
func NewStore(driver storage.Driver, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		driver:         driver,
		logger:         logger,
		clock:          time.Now,
		newID:          uuid.NewString,
		systemPrompt:   DefaultSystemPrompt,
		greeting:       DefaultGreeting,
		logKey:         DefaultLogKey,
		themeKey:       DefaultThemeKey,
		persistTimeout: defaultPersistTimeout,
		theme:          DefaultTheme,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.messages = s.seed()
	return s
}

// Initialize restores the log and the theme from storage, independently.
// Absent or malformed state falls back to the seed log and the default theme;
// nothing is reported to the caller.
func (s *Store) Initialize(ctx context.Context) Snapshot {
	messages, persistSeed := s.restoreLog(ctx)
	theme := s.restoreTheme(ctx)

	return s.mutate(func() bool {
		s.messages = messages
		s.theme = theme
		if persistSeed {
			s.persistLogLocked()
		}
		return true
	})
}

// restoreLog returns the persisted log, or a fresh seed and whether that seed
// should be written back. Read errors do not overwrite what is stored.
func (s *Store) restoreLog(ctx context.Context) ([]Message, bool) {
	data, err := s.driver.Get(ctx, s.logKey)
	if storage.IsNotFound(err) {
		s.logger.Debug("no persisted conversation, starting from seed", zap.String("key", s.logKey))
		return s.seed(), true
	}
	if err != nil {
		s.logger.Warn("failed to read persisted conversation, starting from seed",
			zap.String("key", s.logKey),
			zap.Error(err),
		)
		return s.seed(), false
	}

	messages, err := DecodeLog(data)
	if err != nil {
		s.logger.Warn("discarding malformed persisted conversation",
			zap.String("key", s.logKey),
			zap.Error(err),
		)
		return s.seed(), true
	}

	s.logger.Debug("restored conversation",
		zap.String("key", s.logKey),
		zap.Int("message_count", len(messages)),
	)
	return messages, false
}

func (s *Store) restoreTheme(ctx context.Context) Theme {
	data, err := s.driver.Get(ctx, s.themeKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Warn("failed to read persisted theme", zap.String("key", s.themeKey), zap.Error(err))
		}
		return DefaultTheme
	}

	theme, err := ParseTheme(string(data))
	if err != nil {
		s.logger.Warn("discarding malformed persisted theme", zap.String("key", s.themeKey), zap.Error(err))
		return DefaultTheme
	}

	return theme
}

// AppendMessage appends a message with a fresh ID and timestamp and persists
// the log. Roles outside the known set are ignored and a zero Message is
// returned.
func (s *Store) AppendMessage(role Role, content string) Message {
	if !role.Valid() {
		s.logger.Warn("ignoring message with unknown role", zap.String("role", string(role)))
		return Message{}
	}

	var msg Message
	s.mutate(func() bool {
		msg = s.appendLocked(role, content)
		s.persistLogLocked()
		return true
	})
	return msg
}

// Reset replaces the log with a freshly constructed seed and persists it.
func (s *Store) Reset() {
	s.mutate(func() bool {
		s.messages = s.seed()
		s.persistLogLocked()
		return true
	})
	s.logger.Info("conversation reset")
}

// Replace swaps the whole log for messages after validating them, and
// persists it. It backs importing a previously exported conversation.
func (s *Store) Replace(messages []Message) error {
	if err := ValidateLog(messages); err != nil {
		return err
	}

	cp := make([]Message, len(messages))
	copy(cp, messages)

	s.mutate(func() bool {
		s.messages = cp
		s.persistLogLocked()
		return true
	})
	return nil
}

// SetTheme sets and persists the theme. It is a no-op when the theme is
// unchanged or not a known value.
func (s *Store) SetTheme(theme Theme) {
	theme, err := ParseTheme(string(theme))
	if err != nil {
		s.logger.Warn("ignoring unknown theme", zap.Error(err))
		return
	}

	s.mutate(func() bool {
		if s.theme == theme {
			return false
		}
		s.theme = theme
		s.persistThemeLocked()
		return true
	})
}

// ToggleTheme flips the theme, persists it and returns the new value.
func (s *Store) ToggleTheme() Theme {
	snap := s.mutate(func() bool {
		s.theme = s.theme.Toggle()
		s.persistThemeLocked()
		return true
	})
	return snap.Theme
}

// Messages returns a copy of the full log, system message included.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMessagesLocked()
}

// VisibleMessages returns the log without system messages, in order.
func (s *Store) VisibleMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterVisible(s.messages)
}

// Theme returns the current theme.
func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Busy reports whether a reply request is outstanding.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every snapshot emitted after this call.
// The returned func unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// beginRound appends the user message and raises the busy flag in one step,
// returning the log the reply request must carry.
func (s *Store) beginRound(content string) []Message {
	var history []Message
	s.mutate(func() bool {
		s.appendLocked(RoleUser, content)
		s.busy = true
		s.persistLogLocked()
		history = s.copyMessagesLocked()
		return true
	})
	return history
}

// completeRound appends the assistant message and clears the busy flag in
// one step.
func (s *Store) completeRound(content string) Message {
	var msg Message
	s.mutate(func() bool {
		msg = s.appendLocked(RoleAssistant, content)
		s.busy = false
		s.persistLogLocked()
		return true
	})
	return msg
}

// mutate runs fn under the state lock. When fn reports a change, the version
// is bumped and the new snapshot is delivered to subscribers.
func (s *Store) mutate(fn func() bool) Snapshot {
	s.mu.Lock()
	if !fn() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.version++
	snap := s.snapshotLocked()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
	return snap
}

func (s *Store) appendLocked(role Role, content string) Message {
	msg := Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		CreatedAt: s.nowLocked(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// nowLocked returns the clock, clamped so timestamps never go backwards
// within the log.
func (s *Store) nowLocked() time.Time {
	now := s.clock().UTC()
	if n := len(s.messages); n > 0 && now.Before(s.messages[n-1].CreatedAt) {
		return s.messages[n-1].CreatedAt
	}
	return now
}

// seed builds a new seed log with fresh IDs and timestamps.
func (s *Store) seed() []Message {
	now := s.clock().UTC()
	return []Message{
		{ID: s.newID(), Role: RoleSystem, Content: s.systemPrompt, CreatedAt: now},
		{ID: s.newID(), Role: RoleAssistant, Content: s.greeting, CreatedAt: now},
	}
}

func (s *Store) persistLogLocked() {
	data, err := EncodeLog(s.messages)
	if err != nil {
		s.logger.Error("failed to encode conversation", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.driver.Set(ctx, s.logKey, data); err != nil {
		s.logger.Warn("failed to persist conversation",
			zap.String("key", s.logKey),
			zap.Int("message_count", len(s.messages)),
			zap.Error(err),
		)
	}
}

func (s *Store) persistThemeLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.driver.Set(ctx, s.themeKey, []byte(s.theme)); err != nil {
		s.logger.Warn("failed to persist theme",
			zap.String("key", s.themeKey),
			zap.String("theme", string(s.theme)),
			zap.Error(err),
		)
	}
}

func (s *Store) copyMessagesLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Messages: s.copyMessagesLocked(),
		Busy:     s.busy,
		Theme:    s.theme,
		Version:  s.version,
	}
}
