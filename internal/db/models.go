// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

const (
	CourtStatusAvailable   = "available"
	CourtStatusMaintenance = "maintenance"

	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusCompleted = "completed"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"

	PaymentMethodCash = "cash"
	PaymentMethodQR   = "qr"

	RoleCustomer = "customer"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	Phone     sql.NullString
	Role      string
	CreatedAt time.Time
}

type Court struct {
	ID                int64
	Name              string
	Status            string
	PricePerHourCents int64
	CreatedAt         time.Time
}

type Equipment struct {
	ID                int64
	Name              string
	PricePerHourCents int64
	Stock             int64
	Status            string
	CreatedAt         time.Time
}

type Reservation struct {
	ID               int64
	UserID           int64
	CourtID          int64
	Date             string // YYYY-MM-DD
	StartTime        string // HH:MM:SS
	EndTime          string // HH:MM:SS, exclusive
	Status           string
	TotalAmountCents int64
	ReferenceNumber  string
	GatewayReference sql.NullString
	SelfService      bool
	CreatedAt        time.Time
}

type Payment struct {
	ID              int64
	ReservationID   int64
	AmountCents     int64
	Method          string
	Status          string
	TransactionID   sql.NullString
	ReferenceNumber string
	Notes           sql.NullString
	CreatedAt       time.Time
}

type EquipmentRental struct {
	ID               int64
	ReservationID    int64
	UserID           int64
	TotalAmountCents int64
	CreatedAt        time.Time
}

type EquipmentRentalItem struct {
	ID                int64
	RentalID          int64
	EquipmentID       int64
	Quantity          int64
	Hours             int64
	StartTime         string // HH:MM:SS
	EndTime           string // HH:MM:SS, exclusive, capped at 24:00:00
	PricePerHourCents int64
	SubtotalCents     int64
}

type WebhookEvent struct {
	TransactionID   string
	ReferenceNumber string
	ProcessedAt     time.Time
}
