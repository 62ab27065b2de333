// internal/booking/service.go

// Package booking implements the availability, inventory, and reservation
// engine: slot availability per court and date, duplicate booking detection,
// equipment stock enforcement across overlapping rental windows, and the
// transactional orchestrator behind the cash, QR, and gateway entry points.
package booking

import (
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/email"
)

const (
	defaultOpenHour  = 8
	defaultCloseHour = 23
)

type Service struct {
	store     *db.DB
	guests    GuestResolver
	notifier  email.Sender
	openHour  int
	closeHour int
}

type Option func(*Service)

// WithOperatingHours overrides the default 08:00-23:00 operating day.
func WithOperatingHours(openHour, closeHour int) Option {
	return func(s *Service) {
		s.openHour = openHour
		s.closeHour = closeHour
	}
}

// WithNotifier attaches a receipt sender. Receipts are fire-and-forget; a
// nil sender disables them.
func WithNotifier(sender email.Sender) Option {
	return func(s *Service) {
		s.notifier = sender
	}
}

// WithGuestResolver replaces the default guest matching policy.
func WithGuestResolver(resolver GuestResolver) Option {
	return func(s *Service) {
		s.guests = resolver
	}
}

func NewService(store *db.DB, opts ...Option) *Service {
	s := &Service{
		store:     store,
		guests:    NewHeuristicGuestResolver(""),
		openHour:  defaultOpenHour,
		closeHour: defaultCloseHour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
