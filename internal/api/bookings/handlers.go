// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/booking"
	appdb "github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/payments"
)

var (
	store       *appdb.DB
	engine      *booking.Service
	resolver    *payments.Resolver
	gateway     payments.Client
	handlerOnce sync.Once
)

const (
	bookingQueryTimeout = 5 * time.Second
	webhookTimeout      = 30 * time.Second
	maxWebhookBody      = 1 << 20
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, bookingEngine *booking.Service, webhookResolver *payments.Resolver, gatewayClient payments.Client) {
	if database == nil || bookingEngine == nil {
		return
	}
	handlerOnce.Do(func() {
		store = database
		engine = bookingEngine
		resolver = webhookResolver
		gateway = gatewayClient
	})
}

type bookingRequest struct {
	CustomerName    string                     `json:"customer_name"`
	Email           string                     `json:"email,omitempty"`
	Phone           string                     `json:"phone,omitempty"`
	UserID          int64                      `json:"user_id,omitempty"`
	Date            string                     `json:"date"`
	Courts          []booking.CourtBooking     `json:"courts"`
	Equipment       []booking.EquipmentBooking `json:"equipment,omitempty"`
	ReferenceNumber string                     `json:"reference_number,omitempty"`
	Notes           string                     `json:"notes,omitempty"`
	QR              *qrOptions                 `json:"qr,omitempty"`
}

type qrOptions struct {
	AmountCents int64            `json:"amount_cents,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Existing    *payments.QRCode `json:"existing,omitempty"`
}

func (req bookingRequest) intent() booking.Intent {
	return booking.Intent{
		Date:            req.Date,
		Courts:          req.Courts,
		Equipment:       req.Equipment,
		ReferenceNumber: req.ReferenceNumber,
		Payer: booking.PayerIdentity{
			UserID: req.UserID,
			Name:   req.CustomerName,
			Email:  req.Email,
			Phone:  req.Phone,
		},
	}
}

// POST /api/v1/bookings/cash
func HandleCashBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	result, err := engine.CreateBooking(ctx, req.intent(), booking.PaymentContext{
		Method: appdb.PaymentMethodCash,
		Status: appdb.PaymentStatusCompleted,
		Notes:  req.Notes,
	})
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, result); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

type qrPreviewRequest struct {
	CustomerName string `json:"customer_name"`
	AmountCents  int64  `json:"amount_cents"`
	Notes        string `json:"notes,omitempty"`
}

// POST /api/v1/bookings/qr/preview
//
// Generates a QR code for the amount without persisting anything; the
// caller confirms later through the QR booking endpoint.
func HandleQRPreview(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if gateway == nil {
		logger.Error().Msg("Payment gateway not configured")
		http.Error(w, "Payment gateway not configured", http.StatusServiceUnavailable)
		return
	}

	var req qrPreviewRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, "amount_cents must be greater than 0", http.StatusBadRequest)
		return
	}

	qr, err := gateway.GenerateStaticQR(r.Context(), payments.QRParams{
		AmountCents:  req.AmountCents,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	})
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, qr); err != nil {
		logger.Error().Err(err).Msg("Failed to write QR preview response")
	}
}

type qrBookingResponse struct {
	*booking.BookingResult
	QR *payments.QRCode `json:"qr,omitempty"`
}

// POST /api/v1/bookings/qr
//
// Creates the booking with a pending payment and returns the QR code to
// display. Previously generated QR data may be passed back to avoid a second
// gateway round trip.
func HandleQRBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var qr *payments.QRCode
	if req.QR != nil && req.QR.Existing != nil {
		qr = req.QR.Existing
	} else if gateway != nil && req.QR != nil {
		generated, err := gateway.GenerateStaticQR(r.Context(), payments.QRParams{
			AmountCents:  req.QR.AmountCents,
			CustomerName: req.CustomerName,
			Notes:        req.QR.Notes,
		})
		if err != nil {
			apiutil.WriteBookingError(w, r, err)
			return
		}
		qr = generated
	}

	notes := req.Notes
	if qr != nil && qr.Notes != "" && notes == "" {
		notes = qr.Notes
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	result, err := engine.CreateBooking(ctx, req.intent(), booking.PaymentContext{
		Method: appdb.PaymentMethodQR,
		Status: appdb.PaymentStatusPending,
		Notes:  notes,
	})
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, qrBookingResponse{BookingResult: result, QR: qr}); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

type qrConfirmRequest struct {
	ReferenceNumber string `json:"reference_number"`
}

// POST /api/v1/bookings/qr/confirm
//
// Transitions a pending QR payment to completed once the customer has paid.
func HandleQRConfirm(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req qrConfirmRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reference := strings.TrimSpace(req.ReferenceNumber)
	if reference == "" {
		http.Error(w, "reference_number is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	updated, err := store.Queries.CompletePendingPaymentByReference(ctx, reference)
	if err != nil {
		logger.Error().Err(err).Str("reference_number", reference).Msg("Failed to confirm payment")
		http.Error(w, "Failed to confirm payment", http.StatusInternalServerError)
		return
	}
	if updated == 0 {
		http.Error(w, "No pending payment for that reference", http.StatusNotFound)
		return
	}

	payment, err := store.Queries.GetPaymentByReference(ctx, reference)
	if err != nil {
		logger.Error().Err(err).Str("reference_number", reference).Msg("Failed to load confirmed payment")
		http.Error(w, "Failed to load confirmed payment", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, payment); err != nil {
		logger.Error().Err(err).Msg("Failed to write payment response")
	}
}

// POST /api/v1/webhooks/payments
//
// Always answers 200 for handled events (including domain rejections, which
// redelivery cannot fix) and 502 for upstream gateway failures so the
// gateway retries.
func HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if resolver == nil {
		logger.Error().Msg("Webhook resolver not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	if err := resolver.HandleEvent(ctx, body); err != nil {
		logger.Error().Err(err).Msg("Webhook handling failed; gateway should retry")
		http.Error(w, "retry later", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || courtID <= 0 {
		http.Error(w, "Invalid court ID", http.StatusBadRequest)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	slots, err := engine.Availability(ctx, courtID, date)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, slots); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// GET /api/v1/bookings/duplicate-check?user_id=&court_id=&date=&start_time=&end_time=
func HandleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	userID, err := strconv.ParseInt(query.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
		return
	}
	courtID, err := strconv.ParseInt(query.Get("court_id"), 10, 64)
	if err != nil || courtID <= 0 {
		http.Error(w, "court_id must be a positive integer", http.StatusBadRequest)
		return
	}
	date := strings.TrimSpace(query.Get("date"))
	startTime := strings.TrimSpace(query.Get("start_time"))
	endTime := strings.TrimSpace(query.Get("end_time"))
	if date == "" || startTime == "" || endTime == "" {
		http.Error(w, "date, start_time, and end_time are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	check, err := engine.CheckDuplicate(ctx, userID, courtID, date, startTime, endTime)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, check); err != nil {
		logger.Error().Err(err).Msg("Failed to write duplicate check response")
	}
}

// GET /api/v1/courts
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	courts, err := store.Queries.ListCourts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list courts")
		http.Error(w, "Failed to list courts", http.StatusInternalServerError)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, courts); err != nil {
		logger.Error().Err(err).Msg("Failed to write courts response")
	}
}

// GET /api/v1/equipment
func HandleEquipmentList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	equipment, err := store.Queries.ListEquipment(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list equipment")
		http.Error(w, "Failed to list equipment", http.StatusInternalServerError)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, equipment); err != nil {
		logger.Error().Err(err).Msg("Failed to write equipment response")
	}
}
