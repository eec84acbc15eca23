// Package jobs carries the background work enqueued after a unit of work
// commits: audit records and account notifications.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"staybook/internal/pkg/ids"
)

type Kind string

const (
	KindAudit        Kind = "audit"
	KindNotification Kind = "notification"
)

var (
	ErrClosed      = errors.New("jobs: queue closed")
	ErrUnknownKind = errors.New("jobs: no handler for kind")
)

type Job struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// New encodes payload as a job of the given kind.
func New(kind Kind, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{ID: uuid.NewString(), Kind: kind, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Kind, err)
	}
	return nil
}

// Enqueuer accepts jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// AuditEntry records a completed use case.
type AuditEntry struct {
	Action   string         `json:"action"`
	ActorID  string         `json:"actor_id,omitempty"`
	EntityID string         `json:"entity_id,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}

// Notification is pushed to a connected account.
type Notification struct {
	AccountID ids.AccountID  `json:"account_id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Audit enqueues an audit entry. A nil enqueuer drops it.
func Audit(ctx context.Context, q Enqueuer, e AuditEntry) error {
	if q == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	job, err := New(KindAudit, e)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, job)
}

// Notify enqueues a notification. A nil enqueuer or zero account drops it.
func Notify(ctx context.Context, q Enqueuer, n Notification) error {
	if q == nil || n.AccountID.IsZero() {
		return nil
	}
	job, err := New(KindNotification, n)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, job)
}
