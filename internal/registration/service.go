// Package registration accepts registrations for events: it validates a submission
// against the event's form, assigns the queue position and waitlist status,
// stores the registration and notifies the organisers.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/ruestzeit/anmeldung/internal/form"
	"github.com/ruestzeit/anmeldung/internal/i18n"
	"github.com/ruestzeit/anmeldung/internal/metrics"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/ruestzeit/anmeldung/internal/notifier"
	"github.com/ruestzeit/anmeldung/internal/region"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoEvent            = errors.New("no event configured")
	ErrEventNotFound      = errors.New("event not found")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrPersistenceFailed  = errors.New("failed to persist registration")
)

type Service struct {
	db       *gorm.DB
	regions  region.Lookup
	notifier notifier.Notifier
	tr       i18n.Translator
	metrics  *metrics.Metrics
	country  string

	locks keyedMutex
}

type Option func(*Service)

func WithRegionLookup(l region.Lookup) Option {
	return func(s *Service) { s.regions = l }
}

func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithTranslator(tr i18n.Translator) Option {
	return func(s *Service) { s.tr = tr }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCountry sets the country used for postal code lookups (default DE).
func WithCountry(country string) Option {
	return func(s *Service) { s.country = country }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, country: "DE", tr: i18n.NewCatalog(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Translator() i18n.Translator {
	return s.tr
}

func withFormRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CustomFields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Preload("Location")
}

// LoadEvent reads the event with the custom fields of its form.
func (s *Service) LoadEvent(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := withFormRelations(s.db.WithContext(ctx)).First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Schema builds the registration form of event.
func (s *Service) Schema(event *models.Event) *form.Schema {
	return form.Build(event, s.tr)
}

// Submit validates values against the current form of the event and stores the
// registration. Validation failures are returned as *form.ValidationError and
// nothing is written. A failed notification is logged and does not fail the call.
func (s *Service) Submit(ctx context.Context, eventID uint, values url.Values) (*models.Registration, error) {
	event, err := s.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sub, err := s.Schema(event).Validate(values)
	if err != nil {
		return nil, err
	}

	var registration models.Registration
	sub.Apply(&registration)

	s.enrichRegion(ctx, &registration)

	memberCount, err := s.persist(ctx, event, &registration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	event.MemberCount = memberCount
	s.metrics.RegistrationPersisted(string(registration.Status))

	if s.notifier != nil {
		if err := s.notifier.NotifyRegistration(ctx, *event, registration); err != nil {
			log.Printf("Failed to send registration notification for registration %d: %v", registration.ID, err)
			s.metrics.NotificationFailed()
		}
	}

	return &registration, nil
}

// persist assigns position and status and writes the registration. Both are
// derived from the stored registrations, so the event is locked for the whole
// read-then-write sequence.
func (s *Service) persist(ctx context.Context, event *models.Event, registration *models.Registration) (int, error) {
	unlock := s.locks.Lock(event.ID)
	defer unlock()

	var memberCount int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int64
		// Soft-deleted registrations keep their position.
		if err := tx.Unscoped().Model(&models.Registration{}).
			Where("event_id = ?", event.ID).
			Select("COALESCE(MAX(registration_position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.Registration{}).
			Where("event_id = ? AND status = ?", event.ID, models.StatusActive).
			Count(&active).Error; err != nil {
			return err
		}

		registration.RegistrationPosition = int(maxPosition) + 1
		if event.IsFull(active) {
			registration.Status = models.StatusWaitlist
		} else {
			registration.Status = models.StatusActive
			active++
		}

		if err := tx.Omit(clause.Associations).Create(registration).Error; err != nil {
			return err
		}

		memberCount = int(active)
		return tx.Model(&models.Event{}).Where("id = ?", event.ID).Update("member_count", memberCount).Error
	})
	return memberCount, err
}

func (s *Service) enrichRegion(ctx context.Context, registration *models.Registration) {
	if s.regions == nil || strings.TrimSpace(registration.PostalCode) == "" {
		return
	}

	name, err := s.regions.Region(ctx, s.country, registration.PostalCode)
	if err != nil {
		log.Printf("Region lookup for postal code %q failed: %v", registration.PostalCode, err)
		s.metrics.RegionLookup("error")
		return
	}
	if name == "" {
		s.metrics.RegionLookup("empty")
		return
	}

	s.metrics.RegionLookup("found")
	registration.Landkreis = &name
}

// keyedMutex hands out one mutex per event id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
