package registration

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

// CurrentEvent picks the event served by the public form: among events whose
// registration has started and which have not begun yet, the one with the latest
// registration start. Without such an event the most recently created one is used.
func (s *Service) CurrentEvent(ctx context.Context, now time.Time) (*models.Event, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var event models.Event
	err := withFormRelations(s.db.WithContext(ctx)).
		Where("registration_start IS NULL OR registration_start <= ?", now).
		Where("date_from IS NULL OR date_from >= ?", today).
		Order("registration_start DESC").
		Order("id DESC").
		First(&event).Error
	if err == nil {
		return &event, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = withFormRelations(s.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEvent
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Access is the outcome of the registration gate for one request.
type Access struct {
	// Open means the form may be shown and submitted.
	Open bool
	// Bypass means a password opened a form that would otherwise be closed.
	Bypass bool
}

// Gate decides whether the form of event accepts registrations. A matching event
// password or the global bypass token opens it regardless of its schedule.
func Gate(event *models.Event, password string, now time.Time, bypassToken string) Access {
	scheduled := event.RegistrationActive &&
		(event.RegistrationStart == nil || !now.Before(*event.RegistrationStart))

	if scheduled {
		return Access{Open: true}
	}
	if password != "" && (secretEqual(password, event.Password) || secretEqual(password, bypassToken)) {
		return Access{Open: true, Bypass: true}
	}
	return Access{}
}

func secretEqual(given, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// RefreshMemberCount stores the number of active registrations of an event in its
// member count.
func (s *Service) RefreshMemberCount(ctx context.Context, eventID uint) (int, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Registration{}).
			Where("event_id = ? AND status = ?", eventID, models.StatusActive).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Event{}).Where("id = ?", eventID).Update("member_count", count).Error
	})
	return int(count), err
}

// RefreshMemberCounts recomputes the member count of every event.
func (s *Service) RefreshMemberCounts(ctx context.Context) error {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Pluck("id", &ids).Error; err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if _, err := s.RefreshMemberCount(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
