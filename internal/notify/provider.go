// Package notify delivers alert notifications through outbound channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/homepulse/homepulse/internal/model"
)

// Provider sends notifications through a specific channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}

// Broadcast sends the notification through every provider. Each provider
// gets its attempt even when an earlier one fails; the errors are joined.
func Broadcast(ctx context.Context, providers []Provider, n model.Notification) error {
	var errs []error
	for _, p := range providers {
		if err := p.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
