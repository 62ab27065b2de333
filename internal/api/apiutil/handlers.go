package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/payments"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteBookingError maps booking-engine errors onto HTTP statuses so the
// synchronous entry points surface a clear reason to the form.
func WriteBookingError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   booking.NotFoundError
		validation booking.ValidationError
		stock      booking.InsufficientStockError
		conflict   booking.ConflictError
		upstream   payments.UpstreamGatewayError
		handler    HandlerError
	)
	switch {
	case errors.As(err, &handler):
		if handler.Status >= http.StatusInternalServerError {
			log.Ctx(r.Context()).Error().Err(handler.Err).Msg(handler.Message)
		}
		http.Error(w, handler.Message, handler.Status)
	case errors.As(err, &notFound):
		http.Error(w, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &validation):
		http.Error(w, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &stock):
		http.Error(w, stock.Error(), http.StatusConflict)
	case errors.As(err, &conflict):
		http.Error(w, conflict.Error(), http.StatusConflict)
	case errors.As(err, &upstream):
		log.Ctx(r.Context()).Error().Err(err).Msg("Payment gateway call failed")
		http.Error(w, "Payment gateway is unavailable", http.StatusBadGateway)
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Booking request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
