package booking

import (
	"context"
	"testing"

	"github.com/codr1/Courtside/internal/db"
)

func TestCheckDuplicate(t *testing.T) {
	svc, database := newTestService(t)
	courtID := seedCourt(t, database, "Court 1", "available", 30000)
	userID := seedUser(t, database, "Alice Tan", "alice@example.com")

	ctx := context.Background()
	if _, err := svc.CreateBooking(ctx, Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{UserID: userID},
	}, PaymentContext{Method: db.PaymentMethodCash, Status: db.PaymentStatusCompleted}); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	check, err := svc.CheckDuplicate(ctx, userID, courtID, "2026-08-01", "09:00:00", "10:00:00")
	if err != nil {
		t.Fatalf("duplicate check: %v", err)
	}
	if !check.IsDuplicate {
		t.Error("identical reservation should be a duplicate")
	}
	if check.Message == "" {
		t.Error("duplicate check should carry a message")
	}

	// Exact-match only: an overlapping but shifted window is not a duplicate.
	check, err = svc.CheckDuplicate(ctx, userID, courtID, "2026-08-01", "09:30:00", "10:30:00")
	if err != nil {
		t.Fatalf("duplicate check: %v", err)
	}
	if check.IsDuplicate {
		t.Error("shifted window should not be a duplicate")
	}

	// Another user on the same slot is not a duplicate either.
	otherID := seedUser(t, database, "Ben Ong", "ben@example.com")
	check, err = svc.CheckDuplicate(ctx, otherID, courtID, "2026-08-01", "09:00:00", "10:00:00")
	if err != nil {
		t.Fatalf("duplicate check: %v", err)
	}
	if check.IsDuplicate {
		t.Error("different user should not be a duplicate")
	}
}

func TestCheckDuplicate_IgnoresCancelled(t *testing.T) {
	svc, database := newTestService(t)
	courtID := seedCourt(t, database, "Court 1", "available", 30000)
	userID := seedUser(t, database, "Alice Tan", "alice@example.com")

	ctx := context.Background()
	result, err := svc.CreateBooking(ctx, Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{UserID: userID},
	}, PaymentContext{Method: db.PaymentMethodQR, Status: db.PaymentStatusPending})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := database.Queries.CancelReservationsByReference(ctx, result.Payment.ReferenceNumber); err != nil {
		t.Fatalf("cancel reservations: %v", err)
	}

	check, err := svc.CheckDuplicate(ctx, userID, courtID, "2026-08-01", "09:00:00", "10:00:00")
	if err != nil {
		t.Fatalf("duplicate check: %v", err)
	}
	if check.IsDuplicate {
		t.Error("cancelled reservation should not count as a duplicate")
	}
}
