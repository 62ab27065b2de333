// internal/booking/duplicate.go
package booking

import (
	"context"
	"fmt"

	"github.com/codr1/Courtside/internal/db"
)

type DuplicateCheck struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Message     string `json:"message,omitempty"`
}

// CheckDuplicate reports whether an identical confirmed reservation already
// exists for (user, court, date, start, end). The lookup is exact-match, not
// overlap-aware: a request shifted by half an hour is not a duplicate. That
// matches the documented behavior downstream callers rely on.
func (s *Service) CheckDuplicate(ctx context.Context, userID, courtID int64, date, startTime, endTime string) (DuplicateCheck, error) {
	count, err := s.store.Queries.CountIdenticalReservations(ctx, db.CountIdenticalReservationsParams{
		UserID:    userID,
		CourtID:   courtID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("duplicate lookup: %w", err)
	}

	if count > 0 {
		return DuplicateCheck{
			IsDuplicate: true,
			Message:     fmt.Sprintf("You already have a confirmed booking for this court on %s from %s to %s.", date, startTime, endTime),
		}, nil
	}
	return DuplicateCheck{}, nil
}
