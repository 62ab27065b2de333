// internal/booking/orchestrator.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/email"
	"github.com/codr1/Courtside/internal/schedule"
)

// CourtBooking is one requested court window within a booking intent. The
// schedule is the human-facing label ("9:00 AM - 10:00 AM").
type CourtBooking struct {
	Court    string `json:"court"`
	Schedule string `json:"schedule"`
}

// Intent is the normalized description of what to reserve, shared by the
// cash, QR, and gateway webhook entry points.
type Intent struct {
	Date            string             `json:"date"`
	Courts          []CourtBooking     `json:"courts"`
	Equipment       []EquipmentBooking `json:"equipment,omitempty"`
	ReferenceNumber string             `json:"reference_number,omitempty"`
	Payer           PayerIdentity      `json:"payer"`
	SelfService     bool               `json:"self_service"`
}

// PaymentContext identifies how the booking is paid. The caller sets the
// status: cash completes immediately, QR stays pending until confirmed, and
// gateway payments arrive already captured.
type PaymentContext struct {
	Method           string
	Status           string
	TransactionID    string
	GatewayReference string
	Notes            string
}

type BookingResult struct {
	Reservations []db.Reservation         `json:"reservations"`
	Payment      db.Payment               `json:"payment"`
	Rental       *db.EquipmentRental      `json:"rental,omitempty"`
	RentalItems  []db.EquipmentRentalItem `json:"rental_items,omitempty"`
}

type parsedCourtBooking struct {
	CourtName string
	StartTime string
	EndTime   string
}

// CreateBooking turns an intent into persisted reservation, payment, and
// rental rows. All writes happen in one immediate-lock transaction: any
// failure rolls the whole operation back, and the availability and stock
// checks run against the same snapshot the inserts commit into.
//
// The first created reservation is deterministically the earliest-starting
// court booking; the payment and the equipment rental attach to it alone,
// which downstream reporting depends on.
func (s *Service) CreateBooking(ctx context.Context, intent Intent, pay PaymentContext) (*BookingResult, error) {
	if err := validateIntent(intent, pay); err != nil {
		return nil, err
	}

	parsed, err := parseCourtBookings(intent.Courts)
	if err != nil {
		return nil, err
	}
	// Ties keep input order so the anchor reservation stays deterministic.
	sort.SliceStable(parsed, func(i, j int) bool {
		return schedule.ToMinutes(parsed[i].StartTime) < schedule.ToMinutes(parsed[j].StartTime)
	})

	referenceNumber := strings.TrimSpace(intent.ReferenceNumber)
	if referenceNumber == "" {
		referenceNumber = NewReferenceNumber()
	}

	equipment := withDefaultWindow(intent.Equipment, parsed[0].StartTime)

	var result BookingResult
	err = s.store.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		payer, err := s.resolvePayer(ctx, q, intent.Payer)
		if err != nil {
			return err
		}

		// Fail-fast stock check before any reservation row is written.
		rentals, err := checkEquipmentStock(ctx, q, intent.Date, equipment, StockCheckOptions{})
		if err != nil {
			return err
		}

		var totalCents int64
		for _, booking := range parsed {
			reservation, err := s.createCourtReservation(ctx, q, payer, intent, booking, referenceNumber, pay)
			if err != nil {
				return err
			}
			totalCents += reservation.TotalAmountCents
			result.Reservations = append(result.Reservations, reservation)
		}
		anchor := result.Reservations[0]

		for _, rental := range rentals {
			totalCents += rental.Subtotal
		}

		result.Payment, err = q.CreatePayment(ctx, db.CreatePaymentParams{
			ReservationID:   anchor.ID,
			AmountCents:     totalCents,
			Method:          pay.Method,
			Status:          pay.Status,
			TransactionID:   nullString(pay.TransactionID),
			ReferenceNumber: referenceNumber,
			Notes:           nullString(pay.Notes),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ConflictError{Reason: fmt.Sprintf("payment %s was already recorded", pay.TransactionID)}
			}
			return fmt.Errorf("create payment: %w", err)
		}

		if len(rentals) > 0 {
			if err := s.createRental(ctx, q, anchor, payer, rentals, &result); err != nil {
				return err
			}
		}

		// Gateway-delivered bookings land in the idempotency ledger inside
		// the same transaction, so a redelivered event either sees the row
		// or collides on the primary key and rolls back cleanly.
		if pay.TransactionID != "" {
			if err := q.CreateWebhookEvent(ctx, db.CreateWebhookEventParams{
				TransactionID:   pay.TransactionID,
				ReferenceNumber: referenceNumber,
			}); err != nil {
				if db.IsUniqueViolation(err) {
					return ConflictError{Reason: fmt.Sprintf("payment %s was already recorded", pay.TransactionID)}
				}
				return fmt.Errorf("record webhook event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendReceipt(ctx, intent, result)
	return &result, nil
}

func (s *Service) resolvePayer(ctx context.Context, q *db.Queries, identity PayerIdentity) (db.User, error) {
	if identity.UserID != 0 {
		user, err := q.GetUserByID(ctx, identity.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return db.User{}, NotFoundError{Kind: "user", Name: fmt.Sprintf("%d", identity.UserID)}
			}
			return db.User{}, fmt.Errorf("load user: %w", err)
		}
		return user, nil
	}
	return s.guests.Resolve(ctx, q, identity)
}

func (s *Service) createCourtReservation(ctx context.Context, q *db.Queries, payer db.User, intent Intent, booking parsedCourtBooking, referenceNumber string, pay PaymentContext) (db.Reservation, error) {
	court, err := q.GetCourtByName(ctx, booking.CourtName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Reservation{}, NotFoundError{Kind: "court", Name: booking.CourtName}
		}
		return db.Reservation{}, fmt.Errorf("load court: %w", err)
	}
	if court.Status != db.CourtStatusAvailable {
		return db.Reservation{}, ConflictError{Reason: fmt.Sprintf("court %s is under maintenance", court.Name)}
	}

	overlapping, err := q.CountOverlappingReservations(ctx, db.CountOverlappingReservationsParams{
		CourtID:   court.ID,
		Date:      intent.Date,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	})
	if err != nil {
		return db.Reservation{}, fmt.Errorf("overlap check: %w", err)
	}
	if overlapping > 0 {
		return db.Reservation{}, ConflictError{
			Reason: fmt.Sprintf("court %s is already reserved on %s from %s to %s",
				court.Name, intent.Date, booking.StartTime, booking.EndTime),
		}
	}

	minutes := schedule.ToMinutes(booking.EndTime) - schedule.ToMinutes(booking.StartTime)
	reservation, err := q.CreateReservation(ctx, db.CreateReservationParams{
		UserID:           payer.ID,
		CourtID:          court.ID,
		Date:             intent.Date,
		StartTime:        booking.StartTime,
		EndTime:          booking.EndTime,
		Status:           db.ReservationStatusConfirmed,
		TotalAmountCents: court.PricePerHourCents * int64(minutes) / 60,
		ReferenceNumber:  referenceNumber,
		GatewayReference: nullString(pay.GatewayReference),
		SelfService:      intent.SelfService,
	})
	if err != nil {
		// The partial unique index on (court, date, start) backstops the
		// overlap pre-check against a concurrent writer.
		if db.IsUniqueViolation(err) {
			return db.Reservation{}, ConflictError{
				Reason: fmt.Sprintf("court %s is already reserved on %s from %s to %s",
					court.Name, intent.Date, booking.StartTime, booking.EndTime),
			}
		}
		return db.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	return reservation, nil
}

func (s *Service) createRental(ctx context.Context, q *db.Queries, anchor db.Reservation, payer db.User, rentals []resolvedRental, result *BookingResult) error {
	var rentalTotal int64
	for _, rental := range rentals {
		rentalTotal += rental.Subtotal
	}

	created, err := q.CreateEquipmentRental(ctx, db.CreateEquipmentRentalParams{
		ReservationID:    anchor.ID,
		UserID:           payer.ID,
		TotalAmountCents: rentalTotal,
	})
	if err != nil {
		return fmt.Errorf("create equipment rental: %w", err)
	}
	result.Rental = &created

	// The persisted window is exactly the one the stock check validated.
	for _, rental := range rentals {
		item, err := q.CreateEquipmentRentalItem(ctx, db.CreateEquipmentRentalItemParams{
			RentalID:          created.ID,
			EquipmentID:       rental.Equipment.ID,
			Quantity:          rental.Quantity,
			Hours:             rental.Hours,
			StartTime:         rental.StartTime,
			EndTime:           rental.EndTime,
			PricePerHourCents: rental.Equipment.PricePerHourCents,
			SubtotalCents:     rental.Subtotal,
		})
		if err != nil {
			return fmt.Errorf("create rental item: %w", err)
		}
		result.RentalItems = append(result.RentalItems, item)
	}
	return nil
}

func (s *Service) sendReceipt(ctx context.Context, intent Intent, result BookingResult) {
	if s.notifier == nil {
		return
	}
	recipient := strings.TrimSpace(intent.Payer.Email)
	if recipient == "" {
		return
	}

	details := email.ReceiptDetails{
		Recipient:       recipient,
		CustomerName:    intent.Payer.Name,
		ReferenceNumber: result.Payment.ReferenceNumber,
		Date:            intent.Date,
		AmountCents:     result.Payment.AmountCents,
		Method:          result.Payment.Method,
	}
	for _, r := range result.Reservations {
		details.Lines = append(details.Lines, fmt.Sprintf("%s - %s", r.StartTime, r.EndTime))
	}

	logger := log.Ctx(ctx)
	email.SendReceipt(s.notifier, details, logger)
}

func validateIntent(intent Intent, pay PaymentContext) error {
	if _, err := time.Parse("2006-01-02", intent.Date); err != nil {
		return ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if len(intent.Courts) == 0 {
		return ValidationError{Field: "courts", Reason: "must include at least one court booking"}
	}
	if pay.Method == "" {
		return ValidationError{Field: "payment method", Reason: "is required"}
	}
	if pay.Status == "" {
		return ValidationError{Field: "payment status", Reason: "is required"}
	}
	return nil
}

func parseCourtBookings(courts []CourtBooking) ([]parsedCourtBooking, error) {
	parsed := make([]parsedCourtBooking, 0, len(courts))
	for _, booking := range courts {
		start, end, err := schedule.ParseSchedule(booking.Schedule)
		if err != nil {
			var malformed schedule.MalformedScheduleError
			if errors.As(err, &malformed) {
				return nil, ValidationError{Field: "schedule", Reason: malformed.Error()}
			}
			return nil, err
		}
		parsed = append(parsed, parsedCourtBooking{
			CourtName: booking.Court,
			StartTime: start,
			EndTime:   end,
		})
	}
	return parsed, nil
}

// withDefaultWindow fills missing equipment start times with the earliest
// court booking's start. The fallback is explicit here; the stock check
// itself never assumes a window.
func withDefaultWindow(equipment []EquipmentBooking, defaultStart string) []EquipmentBooking {
	if len(equipment) == 0 {
		return nil
	}
	filled := make([]EquipmentBooking, len(equipment))
	copy(filled, equipment)
	for i := range filled {
		if filled[i].StartTime == "" {
			filled[i].StartTime = defaultStart
		}
	}
	return filled
}

// NewReferenceNumber generates the client-visible reference shared by every
// row created from one booking intent.
func NewReferenceNumber() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
