package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/testutil"
)

func seedBooking(t *testing.T, database *db.DB, schedule, method, status string) string {
	t.Helper()

	ctx := context.Background()
	_, err := database.ExecContext(ctx,
		"INSERT OR IGNORE INTO courts (name, status, price_per_hour_cents) VALUES (?, ?, ?)",
		"Court 1", "available", 30000,
	)
	if err != nil {
		t.Fatalf("insert court: %v", err)
	}

	engine := booking.NewService(database)
	result, err := engine.CreateBooking(ctx, booking.Intent{
		Date:   "2026-08-01",
		Courts: []booking.CourtBooking{{Court: "Court 1", Schedule: schedule}},
		Payer:  booking.PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}, booking.PaymentContext{Method: method, Status: status})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return result.Payment.ReferenceNumber
}

func TestExpirePendingPayments(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	staleRef := seedBooking(t, database, "9:00 AM - 10:00 AM", db.PaymentMethodQR, db.PaymentStatusPending)
	paidRef := seedBooking(t, database, "10:00 AM - 11:00 AM", db.PaymentMethodCash, db.PaymentStatusCompleted)

	// Everything on file is older than a cutoff one hour from now.
	expirePendingPayments(ctx, database, time.Now().UTC().Add(time.Hour))

	stalePayment, err := database.Queries.GetPaymentByReference(ctx, staleRef)
	if err != nil {
		t.Fatalf("load stale payment: %v", err)
	}
	if stalePayment.Status != db.PaymentStatusCancelled {
		t.Errorf("stale QR payment status = %s, want cancelled", stalePayment.Status)
	}

	reservations, err := database.Queries.ListReservationsByReference(ctx, staleRef)
	if err != nil {
		t.Fatalf("load reservations: %v", err)
	}
	for _, r := range reservations {
		if r.Status != db.ReservationStatusCancelled {
			t.Errorf("reservation %d status = %s, want cancelled", r.ID, r.Status)
		}
	}

	// Completed cash payments are never swept.
	paidPayment, err := database.Queries.GetPaymentByReference(ctx, paidRef)
	if err != nil {
		t.Fatalf("load paid payment: %v", err)
	}
	if paidPayment.Status != db.PaymentStatusCompleted {
		t.Errorf("completed payment status = %s, want completed", paidPayment.Status)
	}
}

func TestExpirePendingPayments_YoungPaymentsSurvive(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	ref := seedBooking(t, database, "9:00 AM - 10:00 AM", db.PaymentMethodQR, db.PaymentStatusPending)

	// Cutoff in the past: the payment is younger and must survive.
	expirePendingPayments(ctx, database, time.Now().UTC().Add(-time.Hour))

	payment, err := database.Queries.GetPaymentByReference(ctx, ref)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != db.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", payment.Status)
	}
}
