// internal/scheduler/expiry.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/db"
)

const expiryJobTimeout = 2 * time.Minute

// RegisterPaymentExpiryJob cancels QR payments that stayed pending longer
// than ttl, along with the reservations they were meant to pay for. Abandoned
// QR flows otherwise pin court slots forever.
func RegisterPaymentExpiryJob(s *Service, database *db.DB, ttl time.Duration) error {
	if database == nil {
		return fmt.Errorf("payment expiry job requires database")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	jobName := "pending_payment_expiry"
	jobLogger := log.With().Str("component", jobName).Logger()

	_, err := s.AddJob(jobName, "*/10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), expiryJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expirePendingPayments(ctx, database, time.Now().UTC().Add(-ttl))
	})
	if err != nil {
		return fmt.Errorf("add pending payment expiry job: %w", err)
	}
	return nil
}

// expirePendingPayments cancels QR payments still pending at the cutoff and
// the reservations booked against them. Each payment expires in its own
// transaction so one failure does not block the rest of the sweep.
func expirePendingPayments(ctx context.Context, database *db.DB, cutoff time.Time) {
	logger := log.Ctx(ctx)

	stale, err := database.Queries.ListStalePendingPayments(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list stale pending payments")
		return
	}

	for _, payment := range stale {
		err := database.RunInTx(ctx, func(txdb *db.DB) error {
			cancelled, err := txdb.Queries.CancelPayment(ctx, payment.ID)
			if err != nil {
				return err
			}
			if cancelled == 0 {
				// Confirmed between the list and this transaction.
				return nil
			}
			if _, err := txdb.Queries.CancelReservationsByReference(ctx, payment.ReferenceNumber); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			logger.Error().Err(err).
				Int64("payment_id", payment.ID).
				Str("reference_number", payment.ReferenceNumber).
				Msg("Failed to expire pending payment")
			continue
		}
		logger.Info().
			Int64("payment_id", payment.ID).
			Str("reference_number", payment.ReferenceNumber).
			Msg("Expired pending QR payment")
	}
}
