// internal/booking/equipment.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/schedule"
)

// EquipmentBooking is one requested rental line within a booking intent.
// StartTime may be empty; the orchestrator fills it from the earliest court
// booking before the stock check runs.
type EquipmentBooking struct {
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	StartTime string `json:"start_time,omitempty"`
	Hours     int64  `json:"hours"`
}

// StockCheckOptions tunes the reserved-quantity computation.
type StockCheckOptions struct {
	// ExcludeReservationID removes a reservation's own rental rows from the
	// reserved sum so re-validating an existing booking is idempotent.
	ExcludeReservationID int64
}

type resolvedRental struct {
	Equipment db.Equipment
	Quantity  int64
	StartTime string
	EndTime   string
	Hours     int64
	Subtotal  int64
}

// checkEquipmentStock resolves each requested item against the catalog and
// verifies remaining stock for its window. It must run on the same query
// handle (transaction) as the inserts that follow, so the reserved-quantity
// read and the write cannot interleave with a concurrent booking.
func checkEquipmentStock(ctx context.Context, q *db.Queries, date string, requests []EquipmentBooking, opts StockCheckOptions) ([]resolvedRental, error) {
	resolved := make([]resolvedRental, 0, len(requests))
	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, ValidationError{Field: "quantity", Reason: "must be greater than 0"}
		}
		hours := req.Hours
		if hours <= 0 {
			hours = 1
		}

		item, err := resolveEquipment(ctx, q, req.Name)
		if err != nil {
			return nil, err
		}

		params := db.ReservedEquipmentQuantityParams{
			EquipmentID:          item.ID,
			Date:                 date,
			ExcludeReservationID: opts.ExcludeReservationID,
		}
		var endTime string
		if req.StartTime == "" {
			// No window means the request reserves the item conservatively
			// for the whole day.
			params.WholeDay = true
		} else {
			endTime = schedule.AddHours(req.StartTime, int(hours))
			params.StartTime = req.StartTime
			params.EndTime = endTime
		}

		reserved, err := q.ReservedEquipmentQuantity(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("reserved quantity for %s: %w", item.Name, err)
		}
		// Earlier lines of this same request also claim stock; the database
		// cannot see them yet, so they are summed here.
		reserved += pendingReserved(resolved, item.ID, req.StartTime, endTime)

		remaining := item.Stock - reserved
		if remaining < req.Quantity {
			if remaining < 0 {
				remaining = 0
			}
			return nil, InsufficientStockError{
				Equipment: item.Name,
				Date:      date,
				StartTime: req.StartTime,
				Remaining: remaining,
			}
		}

		resolved = append(resolved, resolvedRental{
			Equipment: item,
			Quantity:  req.Quantity,
			StartTime: req.StartTime,
			EndTime:   endTime,
			Hours:     hours,
			Subtotal:  item.PricePerHourCents * req.Quantity * hours,
		})
	}
	return resolved, nil
}

// pendingReserved sums quantities already resolved in this request batch for
// the same equipment whose windows overlap the candidate window. A line
// without a window counts against everything, and everything counts against
// it.
func pendingReserved(resolved []resolvedRental, equipmentID int64, startTime, endTime string) int64 {
	var total int64
	for _, prior := range resolved {
		if prior.Equipment.ID != equipmentID {
			continue
		}
		if startTime == "" || prior.StartTime == "" ||
			schedule.Overlaps(prior.StartTime, prior.EndTime, startTime, endTime) {
			total += prior.Quantity
		}
	}
	return total
}

// resolveEquipment prefers a case-insensitive exact name match, falls back to
// a substring match, and otherwise fails hard. No fuzzier guessing.
func resolveEquipment(ctx context.Context, q *db.Queries, name string) (db.Equipment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return db.Equipment{}, ValidationError{Field: "equipment name", Reason: "is required"}
	}

	item, err := q.GetEquipmentByNameExact(ctx, name)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.Equipment{}, fmt.Errorf("equipment lookup: %w", err)
	}

	item, err = q.GetEquipmentByNameLike(ctx, name)
	if err == nil {
		return item, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return db.Equipment{}, NotFoundError{Kind: "equipment", Name: name}
	}
	return db.Equipment{}, fmt.Errorf("equipment lookup: %w", err)
}

// CheckEquipmentStock verifies stock for a set of requests outside any
// booking transaction, for pre-flight validation by callers that want an
// early answer. The orchestrator re-runs the check inside its transaction.
func (s *Service) CheckEquipmentStock(ctx context.Context, date string, requests []EquipmentBooking, opts StockCheckOptions) error {
	_, err := checkEquipmentStock(ctx, s.store.Queries, date, requests, opts)
	return err
}
