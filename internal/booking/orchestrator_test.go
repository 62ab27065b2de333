package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codr1/Courtside/internal/db"
)

func TestCreateBooking_MultiCourtWithEquipment(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)
	seedCourt(t, database, "Court 2", "available", 30000)
	seedEquipment(t, database, "Racket", 5000, 5)

	result, err := svc.CreateBooking(context.Background(), Intent{
		Date: "2026-08-01",
		Courts: []CourtBooking{
			// Out of order on purpose: the earliest start must anchor.
			{Court: "Court 2", Schedule: "10:00 AM - 11:00 AM"},
			{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"},
		},
		Equipment: []EquipmentBooking{{Name: "Racket", Quantity: 2, Hours: 1}},
		Payer:     PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if len(result.Reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(result.Reservations))
	}
	anchor := result.Reservations[0]
	if anchor.StartTime != "09:00:00" {
		t.Errorf("anchor reservation starts at %s, want the earliest (09:00:00)", anchor.StartTime)
	}
	for _, r := range result.Reservations {
		if r.ReferenceNumber != anchor.ReferenceNumber {
			t.Errorf("reservation %d has reference %s, want shared %s", r.ID, r.ReferenceNumber, anchor.ReferenceNumber)
		}
		if r.Status != db.ReservationStatusConfirmed {
			t.Errorf("reservation %d status = %s, want confirmed", r.ID, r.Status)
		}
	}

	if result.Payment.ReservationID != anchor.ID {
		t.Errorf("payment attached to reservation %d, want anchor %d", result.Payment.ReservationID, anchor.ID)
	}
	// Two court hours at 30000 plus 2 rackets for 1 hour at 5000.
	if result.Payment.AmountCents != 70000 {
		t.Errorf("payment amount = %d, want 70000", result.Payment.AmountCents)
	}

	if result.Rental == nil {
		t.Fatal("expected an equipment rental")
	}
	if result.Rental.ReservationID != anchor.ID {
		t.Errorf("rental attached to reservation %d, want anchor %d", result.Rental.ReservationID, anchor.ID)
	}
	if len(result.RentalItems) != 1 {
		t.Fatalf("expected 1 rental item, got %d", len(result.RentalItems))
	}
	if result.RentalItems[0].SubtotalCents != 10000 {
		t.Errorf("rental item subtotal = %d, want 10000", result.RentalItems[0].SubtotalCents)
	}
}

func TestCreateBooking_GeneratesReferenceNumber(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	result, err := svc.CreateBooking(context.Background(), Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan"},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	ref := result.Payment.ReferenceNumber
	if !strings.HasPrefix(ref, "BK-") || len(ref) != 11 {
		t.Errorf("reference number %q should be BK- plus 8 characters", ref)
	}
	if ref != strings.ToUpper(ref) {
		t.Errorf("reference number %q should be uppercase", ref)
	}
}

func TestCreateBooking_OverlapConflict(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	ctx := context.Background()
	first := Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 11:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}
	if _, err := svc.CreateBooking(ctx, first, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Different start time, overlapping window: must conflict.
	second := Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "10:00 AM - 12:00 PM"}},
		Payer:  PayerIdentity{Name: "Ben Ong", Email: "ben@example.com"},
	}
	_, err := svc.CreateBooking(ctx, second, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// Back-to-back is fine: intervals are half-open.
	third := Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "11:00 AM - 12:00 PM"}},
		Payer:  PayerIdentity{Name: "Ben Ong", Email: "ben@example.com"},
	}
	if _, err := svc.CreateBooking(ctx, third, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted}); err != nil {
		t.Fatalf("back-to-back booking should succeed: %v", err)
	}
}

func TestCreateBooking_MaintenanceCourtRejected(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "maintenance", 30000)

	_, err := svc.CreateBooking(context.Background(), Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan"},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for maintenance court, got %v", err)
	}
}

func TestCreateBooking_UnknownCourtRollsBackEverything(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	_, err := svc.CreateBooking(context.Background(), Intent{
		Date: "2026-08-01",
		Courts: []CourtBooking{
			{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"},
			{Court: "Court 9", Schedule: "10:00 AM - 11:00 AM"},
		},
		Payer: PayerIdentity{Name: "Alice Tan"},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	var count int64
	if err := database.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM reservations").Scan(&count); err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave 0 reservations, found %d", count)
	}
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	tests := []struct {
		name   string
		intent Intent
		pay    PaymentContext
	}{
		{
			name: "bad date",
			intent: Intent{
				Date:   "01/08/2026",
				Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
				Payer:  PayerIdentity{Name: "Alice Tan"},
			},
			pay: PaymentContext{Method: "cash", Status: "completed"},
		},
		{
			name:   "no courts",
			intent: Intent{Date: "2026-08-01", Payer: PayerIdentity{Name: "Alice Tan"}},
			pay:    PaymentContext{Method: "cash", Status: "completed"},
		},
		{
			name: "malformed schedule",
			intent: Intent{
				Date:   "2026-08-01",
				Courts: []CourtBooking{{Court: "Court 1", Schedule: "around nine"}},
				Payer:  PayerIdentity{Name: "Alice Tan"},
			},
			pay: PaymentContext{Method: "cash", Status: "completed"},
		},
		{
			name: "missing payment method",
			intent: Intent{
				Date:   "2026-08-01",
				Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
				Payer:  PayerIdentity{Name: "Alice Tan"},
			},
			pay: PaymentContext{Status: "completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tt.intent, tt.pay)
			var validation ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateBooking_DuplicateTransactionIDConflicts(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	ctx := context.Background()
	pay := PaymentContext{
		Method:        "gateway",
		Status:        db.PaymentStatusCompleted,
		TransactionID: "pay_abc123",
	}
	first := Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}
	if _, err := svc.CreateBooking(ctx, first, pay); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Same transaction id on a free slot: the payment unique index must trip.
	second := Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "2:00 PM - 3:00 PM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}
	_, err := svc.CreateBooking(ctx, second, pay)
	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for reused transaction id, got %v", err)
	}

	var count int64
	if err := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations WHERE status = 'confirmed'").Scan(&count); err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected the rejected booking to roll back, found %d confirmed reservations", count)
	}
}

func TestCreateBooking_WritesWebhookLedgerForGatewayPayments(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)

	ctx := context.Background()
	result, err := svc.CreateBooking(ctx, Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}, PaymentContext{
		Method:        "gateway",
		Status:        db.PaymentStatusCompleted,
		TransactionID: "pay_ledger1",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	event, err := database.Queries.GetWebhookEvent(ctx, "pay_ledger1")
	if err != nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if event.ReferenceNumber != result.Payment.ReferenceNumber {
		t.Errorf("ledger reference = %s, want %s", event.ReferenceNumber, result.Payment.ReferenceNumber)
	}
}

func TestCreateBooking_ExistingUserByID(t *testing.T) {
	svc, database := newTestService(t)
	seedCourt(t, database, "Court 1", "available", 30000)
	userID := seedUser(t, database, "Alice Tan", "alice@example.com")

	result, err := svc.CreateBooking(context.Background(), Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{UserID: userID},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if result.Reservations[0].UserID != userID {
		t.Errorf("reservation user = %d, want %d", result.Reservations[0].UserID, userID)
	}
}
