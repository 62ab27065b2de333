// internal/payments/webhook.go
package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/db"
)

const (
	EventPaymentPaid            = "payment.paid"
	EventCheckoutPaymentPaid    = "checkout_session.payment.paid"
	EventPaymentFailed          = "payment.failed"
	EventPaymentIntentFailed    = "payment_intent.failed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

// webhookEnvelope is the gateway's delivery shape: an event wrapping the
// resource it concerns.
type webhookEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// bookingData is the booking-intent metadata attached to a payment or
// checkout session at creation time. The webhook path reconstructs the whole
// intent from it.
type bookingData struct {
	Date            string                     `json:"date"`
	Courts          []booking.CourtBooking     `json:"courts"`
	Equipment       []booking.EquipmentBooking `json:"equipment,omitempty"`
	ReferenceNumber string                     `json:"reference_number,omitempty"`
	CustomerName    string                     `json:"customer_name"`
	Email           string                     `json:"email,omitempty"`
	Phone           string                     `json:"phone,omitempty"`
}

// Resolver consumes gateway webhook events and drives the booking
// orchestrator for paid ones.
type Resolver struct {
	store   *db.DB
	engine  *booking.Service
	gateway Client
}

func NewResolver(store *db.DB, engine *booking.Service, gateway Client) *Resolver {
	return &Resolver{store: store, engine: engine, gateway: gateway}
}

// HandleEvent dispatches one raw webhook delivery.
//
// Paid payment and checkout-session events finalize into reservations.
// Failed events are logged and never reach persistence. Intent-succeeded
// events are logged only: the paid events are canonical for reservation
// creation, so acting on both would double-book.
//
// A returned error means the delivery should be retried by the gateway;
// domain failures (bad metadata, sold-out slot) are logged and swallowed
// because redelivery cannot fix them.
func (r *Resolver) HandleEvent(ctx context.Context, raw []byte) error {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode webhook event: %w", err)
	}
	eventType := envelope.Data.Attributes.Type
	logger := log.Ctx(ctx).With().
		Str("event_id", envelope.Data.ID).
		Str("event_type", eventType).
		Logger()

	switch eventType {
	case EventPaymentPaid:
		var payment Payment
		if err := json.Unmarshal(envelope.Data.Attributes.Data, &payment); err != nil {
			logger.Error().Err(err).Msg("Webhook payment payload is malformed")
			return nil
		}
		return r.finalize(logger.WithContext(ctx), payment)

	case EventCheckoutPaymentPaid:
		payment, err := r.resolveCheckoutPayment(logger.WithContext(ctx), envelope.Data.Attributes.Data)
		if err != nil {
			return err
		}
		if payment == nil {
			logger.Warn().Msg("Checkout session event carried no payment")
			return nil
		}
		return r.finalize(logger.WithContext(ctx), *payment)

	case EventPaymentFailed, EventPaymentIntentFailed:
		logger.Info().Msg("Payment failed; nothing to persist")
		return nil

	case EventPaymentIntentSucceeded:
		logger.Info().Msg("Payment intent succeeded; waiting for payment.paid")
		return nil

	default:
		logger.Debug().Msg("Ignoring unhandled webhook event type")
		return nil
	}
}

// resolveCheckoutPayment extracts the concrete payment behind a paid
// checkout-session event. The event may embed the payment; otherwise the
// session is fetched and its first linked payment id (falling back to the
// payment-intent id) is resolved through the gateway.
func (r *Resolver) resolveCheckoutPayment(ctx context.Context, payload json.RawMessage) (*Payment, error) {
	var session CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Webhook checkout session payload is malformed")
		return nil, nil
	}

	if len(session.Payments) > 0 {
		payment := session.Payments[0]
		if payment.BookingData == "" {
			payment.BookingData = session.BookingData
		}
		return &payment, nil
	}

	if session.ID != "" && len(session.PaymentIDs) == 0 && session.PaymentIntentID == "" {
		fetched, err := r.gateway.GetCheckoutSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		session = *fetched
		if len(session.Payments) > 0 {
			payment := session.Payments[0]
			if payment.BookingData == "" {
				payment.BookingData = session.BookingData
			}
			return &payment, nil
		}
	}

	paymentID := session.PaymentIntentID
	if len(session.PaymentIDs) > 0 {
		paymentID = session.PaymentIDs[0]
	}
	if paymentID == "" {
		return nil, nil
	}

	payment, err := r.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.BookingData == "" {
		payment.BookingData = session.BookingData
	}
	return payment, nil
}

// finalize turns a paid gateway payment into a booking. The idempotency
// ledger is consulted first; the orchestrator writes the ledger row in the
// same transaction as the reservations, so a replay that races past this
// check still cannot commit twice.
func (r *Resolver) finalize(ctx context.Context, payment Payment) error {
	logger := log.Ctx(ctx).With().Str("transaction_id", payment.ID).Logger()

	if payment.ID == "" {
		logger.Warn().Msg("Paid event without a payment id")
		return nil
	}

	if _, err := r.store.Queries.GetWebhookEvent(ctx, payment.ID); err == nil {
		logger.Info().Msg("Payment already finalized; skipping replay")
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("idempotency lookup: %w", err)
	}

	if payment.BookingData == "" {
		logger.Error().Msg("Paid payment carries no booking metadata")
		return nil
	}
	var data bookingData
	if err := json.Unmarshal([]byte(payment.BookingData), &data); err != nil {
		logger.Error().Err(err).Msg("Booking metadata is malformed")
		return nil
	}

	method := payment.Method
	if method == "" {
		method = "gateway"
	}

	intent := booking.Intent{
		Date:            data.Date,
		Courts:          data.Courts,
		Equipment:       data.Equipment,
		ReferenceNumber: data.ReferenceNumber,
		Payer: booking.PayerIdentity{
			Name:  data.CustomerName,
			Email: data.Email,
			Phone: data.Phone,
		},
		SelfService: true,
	}
	result, err := r.engine.CreateBooking(ctx, intent, booking.PaymentContext{
		Method:           method,
		Status:           db.PaymentStatusCompleted,
		TransactionID:    payment.ID,
		GatewayReference: payment.PaymentIntentID,
	})
	if err != nil {
		var conflict booking.ConflictError
		switch {
		case errors.As(err, &conflict):
			// Includes the ledger race on replay: the other delivery won.
			logger.Warn().Str("reason", conflict.Reason).Msg("Webhook booking conflicted")
			return nil
		case isDomainError(err):
			logger.Error().Err(err).Msg("Webhook booking rejected; dropping event")
			return nil
		default:
			return err
		}
	}

	logger.Info().
		Str("reference_number", result.Payment.ReferenceNumber).
		Int("reservations", len(result.Reservations)).
		Msg("Webhook booking finalized")
	return nil
}

func isDomainError(err error) bool {
	var notFound booking.NotFoundError
	var validation booking.ValidationError
	var stock booking.InsufficientStockError
	return errors.As(err, &notFound) || errors.As(err, &validation) || errors.As(err, &stock)
}
