package fetch

import (
	"context"
	"errors"

	"github.com/spigell/profile-extractor/internal/profile"
)

// Source retrieves the raw payload of a single profile. Calls must be safe to
// repeat for the same identifier.
type Source interface {
	Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id profile.Identifier) (profile.RawRecord, error)

func (f SourceFunc) Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error) {
	return f(ctx, id)
}

// Event is emitted once per identifier after its final attempt. Index is 1-based.
type Event struct {
	Index  int
	Total  int
	Result profile.FetchResult
}

// Listener receives progress events synchronously. A returned error stops the run.
type Listener interface {
	OnProgress(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) OnProgress(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Listeners fans an event out in order and stops at the first error.
type Listeners []Listener

func (ls Listeners) OnProgress(ctx context.Context, ev Event) error {
	for _, l := range ls {
		if l == nil {
			continue
		}
		if err := l.OnProgress(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
