package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"staybook/internal/pkg/ids"
)

type Handler func(ctx context.Context, job Job) error

// Dispatcher routes jobs to the handler registered for their kind.
type Dispatcher struct {
	handlers map[Kind]Handler
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{handlers: map[Kind]Handler{}, log: log}
}

// Handle registers h for kind, replacing any previous handler.
func (d *Dispatcher) Handle(kind Kind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch runs the handler for job. A panicking handler is reported as an
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (err error) {
	h, ok := d.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, job.Kind)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s (%s) panicked: %v", job.ID, job.Kind, r)
		}
	}()
	return h(ctx, job)
}

// run dispatches and logs the outcome; used by queue workers.
func (d *Dispatcher) run(ctx context.Context, job Job) error {
	err := d.Dispatch(ctx, job)
	if err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("job failed")
		return err
	}
	d.log.Debug().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("job done")
	return nil
}

// AuditHandler writes each audit entry as a structured log line.
func AuditHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, job Job) error {
		var e AuditEntry
		if err := job.Decode(&e); err != nil {
			return err
		}
		log.Info().
			Str("action", e.Action).
			Str("actor_id", e.ActorID).
			Str("entity_id", e.EntityID).
			Interface("detail", e.Detail).
			Time("at", e.At).
			Msg("audit")
		return nil
	}
}

// Pusher delivers an event to a connected account; it reports whether the
// account was online.
type Pusher interface {
	Push(account ids.AccountID, event string, data map[string]any) bool
}

// NotificationHandler pushes notifications through p. Offline accounts are
// not an error.
func NotificationHandler(p Pusher, log zerolog.Logger) Handler {
	return func(_ context.Context, job Job) error {
		var n Notification
		if err := job.Decode(&n); err != nil {
			return err
		}
		if !p.Push(n.AccountID, n.Event, n.Data) {
			log.Debug().Str("account_id", n.AccountID.String()).Str("event", n.Event).Msg("notification recipient offline")
		}
		return nil
	}
}
