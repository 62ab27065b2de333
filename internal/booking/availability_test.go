package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/Courtside/internal/testutil"
)

func TestAvailability_EmptyDay(t *testing.T) {
	svc, database := newTestService(t)
	courtID := seedCourt(t, database, "Court 1", "available", 30000)

	slots, err := svc.Availability(context.Background(), courtID, "2026-08-01")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}

	if len(slots) != 15 {
		t.Fatalf("expected 15 hourly slots for an 08:00-23:00 day, got %d", len(slots))
	}
	if slots[0].StartTime != "08:00:00" || slots[0].EndTime != "09:00:00" {
		t.Errorf("first slot = %s-%s, want 08:00:00-09:00:00", slots[0].StartTime, slots[0].EndTime)
	}
	if slots[14].StartTime != "22:00:00" || slots[14].EndTime != "23:00:00" {
		t.Errorf("last slot = %s-%s, want 22:00:00-23:00:00", slots[14].StartTime, slots[14].EndTime)
	}
	for _, slot := range slots {
		if !slot.Available {
			t.Errorf("slot %s should be available on an empty day", slot.StartTime)
		}
	}
}

func TestAvailability_UnalignedReservationBlocksTouchedSlots(t *testing.T) {
	svc, database := newTestService(t)
	courtID := seedCourt(t, database, "Court 1", "available", 30000)

	// 09:00-10:30 touches both the 09:00 and the 10:00 slot.
	_, err := svc.CreateBooking(context.Background(), Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:30 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}, PaymentContext{Method: "cash", Status: "completed"})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	slots, err := svc.Availability(context.Background(), courtID, "2026-08-01")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}

	byStart := make(map[string]bool, len(slots))
	for _, slot := range slots {
		byStart[slot.StartTime] = slot.Available
	}

	if byStart["09:00:00"] {
		t.Error("09:00 slot should be blocked")
	}
	if byStart["10:00:00"] {
		t.Error("10:00 slot should be blocked by the 10:00-10:30 tail")
	}
	if !byStart["08:00:00"] {
		t.Error("08:00 slot should stay available")
	}
	if !byStart["11:00:00"] {
		t.Error("11:00 slot should stay available")
	}
}

func TestAvailability_CancelledReservationsDoNotBlock(t *testing.T) {
	svc, database := newTestService(t)
	courtID := seedCourt(t, database, "Court 1", "available", 30000)

	result, err := svc.CreateBooking(context.Background(), Intent{
		Date:   "2026-08-01",
		Courts: []CourtBooking{{Court: "Court 1", Schedule: "9:00 AM - 10:00 AM"}},
		Payer:  PayerIdentity{Name: "Alice Tan", Email: "alice@example.com"},
	}, PaymentContext{Method: "qr", Status: "pending"})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	cancelled, err := database.Queries.CancelReservationsByReference(context.Background(), result.Payment.ReferenceNumber)
	if err != nil {
		t.Fatalf("cancel reservations: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancelled reservation, got %d", cancelled)
	}

	slots, err := svc.Availability(context.Background(), courtID, "2026-08-01")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for _, slot := range slots {
		if !slot.Available {
			t.Errorf("slot %s should be available after cancellation", slot.StartTime)
		}
	}
}

func TestAvailability_UnknownCourt(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Availability(context.Background(), 999, "2026-08-01")
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAvailability_CustomOperatingHours(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewService(database, WithOperatingHours(10, 18))
	courtID := seedCourt(t, database, "Court 1", "available", 30000)

	slots, err := svc.Availability(context.Background(), courtID, "2026-08-01")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots for a 10:00-18:00 day, got %d", len(slots))
	}
	if slots[0].StartTime != "10:00:00" {
		t.Errorf("first slot starts at %s, want 10:00:00", slots[0].StartTime)
	}
}
