// internal/booking/availability.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/schedule"
)

// Slot is one fixed hourly window of the operating day.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// Availability partitions the operating day into hourly slots for the court
// and date and marks each against confirmed reservations. A slot is occupied
// when any confirmed reservation's [start, end) interval overlaps it, so
// reservations that are not hour-aligned still block the slots they touch.
func (s *Service) Availability(ctx context.Context, courtID int64, date string) ([]Slot, error) {
	if _, err := s.store.Queries.GetCourtByID(ctx, courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundError{Kind: "court", Name: fmt.Sprintf("%d", courtID)}
		}
		return nil, fmt.Errorf("load court: %w", err)
	}

	reservations, err := s.store.Queries.ListConfirmedReservations(ctx, db.ListConfirmedReservationsParams{
		CourtID: courtID,
		Date:    date,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	slots := make([]Slot, 0, s.closeHour-s.openHour)
	for hour := s.openHour; hour < s.closeHour; hour++ {
		slot := Slot{
			StartTime: schedule.FromMinutes(hour * 60),
			EndTime:   schedule.FromMinutes((hour + 1) * 60),
			Available: true,
		}
		for _, r := range reservations {
			if schedule.Overlaps(r.StartTime, r.EndTime, slot.StartTime, slot.EndTime) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
