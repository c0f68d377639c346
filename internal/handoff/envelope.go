package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind tags an Envelope.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Envelope is the terminal outcome of one job.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Message   string          `json:"message,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	WrittenAt time.Time       `json:"written_at"`
}

// Outcome is what the result view reads.
type Outcome struct {
	Success     *Envelope
	Error       *Envelope
	OriginalURL string
}

// Session binds a Store to one browser session.
type Session struct {
	Store Store
	ID    string
	Now   func() time.Time
}

// For returns the handoff view of sessionID.
func For(store Store, sessionID string) *Session {
	return &Session{Store: store, ID: sessionID, Now: time.Now}
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// BeginJob records a new job and clears the outcome of the previous one.
func (s *Session) BeginJob(ctx context.Context, jobID, originalURL string) error {
	if err := s.Store.Delete(ctx, s.ID, KeyResult, KeyError, KeyOriginalURL); err != nil {
		return err
	}
	if err := s.Store.Set(ctx, s.ID, KeyJobID, jobID); err != nil {
		return err
	}
	if originalURL != "" {
		if err := s.Store.Set(ctx, s.ID, KeyOriginalURL, originalURL); err != nil {
			return err
		}
	}
	return s.Store.Set(ctx, s.ID, KeyInProgress, "true")
}

// JobID returns the current job id, or "" when none was started.
func (s *Session) JobID(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyJobID)
}

// InProgress reports whether a job was started and not yet consumed.
func (s *Session) InProgress(ctx context.Context) (bool, error) {
	v, err := s.optional(ctx, KeyInProgress)
	return v == "true", err
}

// WriteSuccess stores the success payload.
func (s *Session) WriteSuccess(ctx context.Context, payload json.RawMessage) error {
	return s.write(ctx, KeyResult, Envelope{Kind: KindSuccess, Payload: payload, WrittenAt: s.now()})
}

// WriteError stores a failure message with its reason and optional payload.
func (s *Session) WriteError(ctx context.Context, message, reason string, payload json.RawMessage) error {
	return s.write(ctx, KeyError, Envelope{Kind: KindError, Message: message, Reason: reason, Payload: payload, WrittenAt: s.now()})
}

// Peek reads the outcome without clearing anything.
func (s *Session) Peek(ctx context.Context) (Outcome, error) {
	var out Outcome
	var err error
	if out.Error, err = s.read(ctx, KeyError); err != nil {
		return Outcome{}, err
	}
	if out.Success, err = s.read(ctx, KeyResult); err != nil {
		return Outcome{}, err
	}
	if out.OriginalURL, err = s.optional(ctx, KeyOriginalURL); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// ConsumeResult reads the outcome and clears the error and in-progress
// markers. The success payload stays until the next BeginJob.
func (s *Session) ConsumeResult(ctx context.Context) (Outcome, error) {
	out, err := s.Peek(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.Store.Delete(ctx, s.ID, KeyError, KeyInProgress); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (s *Session) write(ctx context.Context, key string, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode handoff envelope: %w", err)
	}
	return s.Store.Set(ctx, s.ID, key, string(raw))
}

func (s *Session) read(ctx context.Context, key string) (*Envelope, error) {
	raw, err := s.optional(ctx, key)
	if err != nil || raw == "" {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode handoff %s: %w", key, err)
	}
	return &env, nil
}

func (s *Session) optional(ctx context.Context, key string) (string, error) {
	v, err := s.Store.Get(ctx, s.ID, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
