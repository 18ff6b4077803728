package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// logFormatVersion is bumped whenever the persisted envelope changes shape.
const logFormatVersion = 1

// ErrMalformedLog is wrapped by every decode or validation failure of a
// persisted log.
var ErrMalformedLog = errors.New("malformed conversation log")

// Envelope is the persisted and exported form of the message log.
type Envelope struct {
	Version  int       `json:"version" yaml:"version"`
	Messages []Message `json:"messages" yaml:"messages"`
	// Checksum is the SHA-256 of the canonical JSON encoding of Messages
	Checksum string `json:"checksum" yaml:"checksum"`
}

// NewEnvelope wraps messages with the current format version and their checksum.
func NewEnvelope(messages []Message) (Envelope, error) {
	sum, err := checksum(messages)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Version:  logFormatVersion,
		Messages: messages,
		Checksum: sum,
	}, nil
}

// Verify checks the version, the checksum and the structure of the log and
// returns its messages. Any failure wraps ErrMalformedLog.
func (e Envelope) Verify() ([]Message, error) {
	if e.Version != logFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedLog, e.Version)
	}

	sum, err := checksum(e.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if sum != e.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrMalformedLog)
	}

	if err := ValidateLog(e.Messages); err != nil {
		return nil, err
	}

	return e.Messages, nil
}

// EncodeLog serializes a log into its persisted envelope.
func EncodeLog(messages []Message) ([]byte, error) {
	env, err := NewEnvelope(messages)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeLog parses and verifies a persisted envelope. Any failure wraps
// ErrMalformedLog; callers treat it the same as absent state.
func DecodeLog(data []byte) ([]Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	return env.Verify()
}

// ValidateLog checks the structural invariants of a log: non-empty, a system
// message in first position, known roles, unique non-empty IDs and
// non-decreasing timestamps.
func ValidateLog(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrMalformedLog)
	}

	if messages[0].Role != RoleSystem {
		return fmt.Errorf("%w: first message has role %q, want %q", ErrMalformedLog, messages[0].Role, RoleSystem)
	}

	seen := make(map[string]bool, len(messages))
	for i, m := range messages {
		if m.ID == "" {
			return fmt.Errorf("%w: message %d has no id", ErrMalformedLog, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate message id %s", ErrMalformedLog, m.ID)
		}
		seen[m.ID] = true

		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %s has unknown role %q", ErrMalformedLog, m.ID, m.Role)
		}
		if i > 0 && m.CreatedAt.Before(messages[i-1].CreatedAt) {
			return fmt.Errorf("%w: message %s is older than its predecessor", ErrMalformedLog, m.ID)
		}
	}

	return nil
}

// checksum hashes the canonical JSON encoding of the messages.
func checksum(messages []Message) (string, error) {
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checksum input: %w", err)
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}
