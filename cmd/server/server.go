// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/codr1/Courtside/internal/api"
	"github.com/codr1/Courtside/internal/api/bookings"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/payments"
)

const shutdownTimeout = 30 * time.Second

func newServer(cfg *config.Config, database *db.DB, engine *booking.Service, resolver *payments.Resolver, gateway payments.Client) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	bookings.InitHandlers(database, engine, resolver, gateway)
	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Catalog lookups
	mux.HandleFunc("GET /api/v1/courts", bookings.HandleCourtsList)
	mux.HandleFunc("GET /api/v1/equipment", bookings.HandleEquipmentList)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", bookings.HandleAvailability)

	// Booking entry points
	mux.HandleFunc("POST /api/v1/bookings/cash", bookings.HandleCashBooking)
	mux.HandleFunc("POST /api/v1/bookings/qr/preview", bookings.HandleQRPreview)
	mux.HandleFunc("POST /api/v1/bookings/qr/confirm", bookings.HandleQRConfirm)
	mux.HandleFunc("POST /api/v1/bookings/qr", bookings.HandleQRBooking)
	mux.HandleFunc("GET /api/v1/bookings/duplicate-check", bookings.HandleDuplicateCheck)

	// Gateway webhook
	mux.HandleFunc("POST /api/v1/webhooks/payments", bookings.HandleWebhook)
}
