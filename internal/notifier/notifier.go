package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruestzeit/anmeldung/internal/models"
)

type Notifier interface {
	NotifyRegistration(ctx context.Context, event models.Event, registration models.Registration) error
}

// Subject is the subject line of the operator notification.
func Subject(event models.Event, registration models.Registration) string {
	return fmt.Sprintf("[%s] Anmeldung %s, %s [%s]",
		event.Title, registration.Lastname, registration.Firstname, registration.Status)
}

// Multi sends every notification through all of its notifiers.
type Multi []Notifier

func (m Multi) NotifyRegistration(ctx context.Context, event models.Event, registration models.Registration) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyRegistration(ctx, event, registration); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
