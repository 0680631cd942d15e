// Package notification delivers seat-open messages to watchers.
package notification

import (
	"context"
	"errors"
	"fmt"
)

// Notifier delivers a message about a section to a subscriber email.
type Notifier interface {
	Notify(ctx context.Context, email, title string) error
}

// ErrNoChannel is returned by Fanout when no channel could deliver.
var ErrNoChannel = errors.New("no notification channel delivered")

// Fanout sends through every channel and succeeds if at least one did.
type Fanout struct {
	channels []Notifier
}

// NewFanout creates a notifier over the given channels.
func NewFanout(channels ...Notifier) *Fanout {
	return &Fanout{channels: channels}
}

// Notify implements Notifier.
func (f *Fanout) Notify(ctx context.Context, email, title string) error {
	var errs []error
	delivered := false
	for _, ch := range f.channels {
		if err := ch.Notify(ctx, email, title); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	if len(errs) == 0 {
		return ErrNoChannel
	}
	return fmt.Errorf("%w: %w", ErrNoChannel, errors.Join(errs...))
}

func messageFor(title string) string {
	return fmt.Sprintf("A seat has opened up in %s. Register soon, seats go quickly!", title)
}
