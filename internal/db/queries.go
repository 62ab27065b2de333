// internal/db/queries.go
//
// Hand-written query layer. Every interval-overlap and aggregate check the
// booking engine relies on is spelled out as parameterized SQL here so the
// semantics stay visible and testable.
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries run the same
// inside and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// ---- Courts ----

const listCourts = `
SELECT id, name, status, price_per_hour_cents, created_at
FROM courts
ORDER BY name
`

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.PricePerHourCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

const getCourtByID = `
SELECT id, name, status, price_per_hour_cents, created_at
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourtByID(ctx context.Context, id int64) (Court, error) {
	var c Court
	err := q.db.QueryRowContext(ctx, getCourtByID, id).
		Scan(&c.ID, &c.Name, &c.Status, &c.PricePerHourCents, &c.CreatedAt)
	return c, err
}

const getCourtByName = `
SELECT id, name, status, price_per_hour_cents, created_at
FROM courts
WHERE lower(name) = lower(?)
`

func (q *Queries) GetCourtByName(ctx context.Context, name string) (Court, error) {
	var c Court
	err := q.db.QueryRowContext(ctx, getCourtByName, name).
		Scan(&c.ID, &c.Name, &c.Status, &c.PricePerHourCents, &c.CreatedAt)
	return c, err
}

// ---- Equipment ----

const listEquipment = `
SELECT id, name, price_per_hour_cents, stock, status, created_at
FROM equipment
ORDER BY name
`

func (q *Queries) ListEquipment(ctx context.Context) ([]Equipment, error) {
	rows, err := q.db.QueryContext(ctx, listEquipment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Equipment
	for rows.Next() {
		var e Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.PricePerHourCents, &e.Stock, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const getEquipmentByNameExact = `
SELECT id, name, price_per_hour_cents, stock, status, created_at
FROM equipment
WHERE lower(name) = lower(?)
`

func (q *Queries) GetEquipmentByNameExact(ctx context.Context, name string) (Equipment, error) {
	var e Equipment
	err := q.db.QueryRowContext(ctx, getEquipmentByNameExact, name).
		Scan(&e.ID, &e.Name, &e.PricePerHourCents, &e.Stock, &e.Status, &e.CreatedAt)
	return e, err
}

const getEquipmentByNameLike = `
SELECT id, name, price_per_hour_cents, stock, status, created_at
FROM equipment
WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
ORDER BY name
LIMIT 1
`

func (q *Queries) GetEquipmentByNameLike(ctx context.Context, name string) (Equipment, error) {
	var e Equipment
	err := q.db.QueryRowContext(ctx, getEquipmentByNameLike, name).
		Scan(&e.ID, &e.Name, &e.PricePerHourCents, &e.Stock, &e.Status, &e.CreatedAt)
	return e, err
}

type ReservedEquipmentQuantityParams struct {
	EquipmentID          int64
	Date                 string
	StartTime            string // ignored when WholeDay
	EndTime              string // ignored when WholeDay
	WholeDay             bool
	ExcludeReservationID int64 // 0 means no exclusion
}

// Reserved quantity counts rental items whose parent reservation is active
// (confirmed, pending, or completed) on the given date and whose stored
// [start_time, end_time) window overlaps the candidate window. The item
// columns are compared directly; end times never wrap past midnight because
// they are capped at 24:00:00 on insert. Without a candidate window every
// active item on the date counts.
const reservedEquipmentQuantity = `
SELECT COALESCE(SUM(i.quantity), 0)
FROM equipment_rental_items i
JOIN equipment_rentals er ON er.id = i.rental_id
JOIN reservations r ON r.id = er.reservation_id
WHERE i.equipment_id = ?
  AND r.date = ?
  AND r.status IN ('confirmed', 'pending', 'completed')
  AND r.id != ?
  AND (
    ? = 1
    OR (? < i.end_time AND i.start_time < ?)
  )
`

func (q *Queries) ReservedEquipmentQuantity(ctx context.Context, arg ReservedEquipmentQuantityParams) (int64, error) {
	wholeDay := 0
	if arg.WholeDay {
		wholeDay = 1
	}
	var total int64
	err := q.db.QueryRowContext(ctx, reservedEquipmentQuantity,
		arg.EquipmentID,
		arg.Date,
		arg.ExcludeReservationID,
		wholeDay,
		arg.StartTime,
		arg.EndTime,
	).Scan(&total)
	return total, err
}

// ---- Users ----

const getUserByID = `
SELECT id, name, email, phone, role, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByID, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, name, email, phone, role, created_at
FROM users
WHERE lower(email) = lower(?)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

const findUserByNameLike = `
SELECT id, name, email, phone, role, created_at
FROM users
WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
ORDER BY id
LIMIT 1
`

func (q *Queries) FindUserByNameLike(ctx context.Context, name string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, findUserByNameLike, name).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

type CreateGuestUserParams struct {
	Name  string
	Email string
	Phone sql.NullString
}

const createGuestUser = `
INSERT INTO users (name, email, phone, role)
VALUES (?, ?, ?, 'customer')
RETURNING id, name, email, phone, role, created_at
`

func (q *Queries) CreateGuestUser(ctx context.Context, arg CreateGuestUserParams) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, createGuestUser, arg.Name, arg.Email, arg.Phone).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

// ---- Reservations ----

type ListConfirmedReservationsParams struct {
	CourtID int64
	Date    string
}

const listConfirmedReservations = `
SELECT id, user_id, court_id, date, start_time, end_time, status,
       total_amount_cents, reference_number, gateway_reference, self_service, created_at
FROM reservations
WHERE court_id = ? AND date = ? AND status = 'confirmed'
ORDER BY start_time
`

func (q *Queries) ListConfirmedReservations(ctx context.Context, arg ListConfirmedReservationsParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedReservations, arg.CourtID, arg.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

type CountIdenticalReservationsParams struct {
	UserID    int64
	CourtID   int64
	Date      string
	StartTime string
	EndTime   string
}

// Exact-match lookup, deliberately not overlap-aware.
const countIdenticalReservations = `
SELECT COUNT(*)
FROM reservations
WHERE user_id = ? AND court_id = ? AND date = ?
  AND start_time = ? AND end_time = ?
  AND status = 'confirmed'
`

func (q *Queries) CountIdenticalReservations(ctx context.Context, arg CountIdenticalReservationsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countIdenticalReservations,
		arg.UserID, arg.CourtID, arg.Date, arg.StartTime, arg.EndTime,
	).Scan(&count)
	return count, err
}

type CountOverlappingReservationsParams struct {
	CourtID   int64
	Date      string
	StartTime string
	EndTime   string
}

// Half-open interval overlap: [a, b) and [c, d) overlap iff a < d and c < b.
const countOverlappingReservations = `
SELECT COUNT(*)
FROM reservations
WHERE court_id = ? AND date = ? AND status = 'confirmed'
  AND start_time < ? AND ? < end_time
`

func (q *Queries) CountOverlappingReservations(ctx context.Context, arg CountOverlappingReservationsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countOverlappingReservations,
		arg.CourtID, arg.Date, arg.EndTime, arg.StartTime,
	).Scan(&count)
	return count, err
}

type CreateReservationParams struct {
	UserID           int64
	CourtID          int64
	Date             string
	StartTime        string
	EndTime          string
	Status           string
	TotalAmountCents int64
	ReferenceNumber  string
	GatewayReference sql.NullString
	SelfService      bool
}

const createReservation = `
INSERT INTO reservations (
    user_id, court_id, date, start_time, end_time, status,
    total_amount_cents, reference_number, gateway_reference, self_service
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, user_id, court_id, date, start_time, end_time, status,
          total_amount_cents, reference_number, gateway_reference, self_service, created_at
`

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, createReservation,
		arg.UserID, arg.CourtID, arg.Date, arg.StartTime, arg.EndTime, arg.Status,
		arg.TotalAmountCents, arg.ReferenceNumber, arg.GatewayReference, arg.SelfService,
	)
	return scanReservation(row)
}

const listReservationsByReference = `
SELECT id, user_id, court_id, date, start_time, end_time, status,
       total_amount_cents, reference_number, gateway_reference, self_service, created_at
FROM reservations
WHERE reference_number = ?
ORDER BY start_time
`

func (q *Queries) ListReservationsByReference(ctx context.Context, referenceNumber string) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, listReservationsByReference, referenceNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

const cancelReservationsByReference = `
UPDATE reservations
SET status = 'cancelled'
WHERE reference_number = ? AND status = 'confirmed'
`

func (q *Queries) CancelReservationsByReference(ctx context.Context, referenceNumber string) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelReservationsByReference, referenceNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- Payments ----

type CreatePaymentParams struct {
	ReservationID   int64
	AmountCents     int64
	Method          string
	Status          string
	TransactionID   sql.NullString
	ReferenceNumber string
	Notes           sql.NullString
}

const createPayment = `
INSERT INTO payments (
    reservation_id, amount_cents, method, status, transaction_id, reference_number, notes
)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, reservation_id, amount_cents, method, status, transaction_id,
          reference_number, notes, created_at
`

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, createPayment,
		arg.ReservationID, arg.AmountCents, arg.Method, arg.Status,
		arg.TransactionID, arg.ReferenceNumber, arg.Notes,
	)
	return scanPayment(row)
}

const getPaymentByReference = `
SELECT id, reservation_id, amount_cents, method, status, transaction_id,
       reference_number, notes, created_at
FROM payments
WHERE reference_number = ?
`

func (q *Queries) GetPaymentByReference(ctx context.Context, referenceNumber string) (Payment, error) {
	return scanPayment(q.db.QueryRowContext(ctx, getPaymentByReference, referenceNumber))
}

const completePendingPaymentByReference = `
UPDATE payments
SET status = 'completed'
WHERE reference_number = ? AND status = 'pending'
`

func (q *Queries) CompletePendingPaymentByReference(ctx context.Context, referenceNumber string) (int64, error) {
	result, err := q.db.ExecContext(ctx, completePendingPaymentByReference, referenceNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listStalePendingPayments = `
SELECT id, reservation_id, amount_cents, method, status, transaction_id,
       reference_number, notes, created_at
FROM payments
WHERE method = 'qr' AND status = 'pending' AND created_at < ?
ORDER BY created_at
`

func (q *Queries) ListStalePendingPayments(ctx context.Context, cutoff time.Time) ([]Payment, error) {
	rows, err := q.db.QueryContext(ctx, listStalePendingPayments, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Method, &p.Status,
			&p.TransactionID, &p.ReferenceNumber, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const cancelPayment = `
UPDATE payments
SET status = 'cancelled'
WHERE id = ? AND status = 'pending'
`

func (q *Queries) CancelPayment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelPayment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- Equipment rentals ----

type CreateEquipmentRentalParams struct {
	ReservationID    int64
	UserID           int64
	TotalAmountCents int64
}

const createEquipmentRental = `
INSERT INTO equipment_rentals (reservation_id, user_id, total_amount_cents)
VALUES (?, ?, ?)
RETURNING id, reservation_id, user_id, total_amount_cents, created_at
`

func (q *Queries) CreateEquipmentRental(ctx context.Context, arg CreateEquipmentRentalParams) (EquipmentRental, error) {
	var er EquipmentRental
	err := q.db.QueryRowContext(ctx, createEquipmentRental,
		arg.ReservationID, arg.UserID, arg.TotalAmountCents,
	).Scan(&er.ID, &er.ReservationID, &er.UserID, &er.TotalAmountCents, &er.CreatedAt)
	return er, err
}

type CreateEquipmentRentalItemParams struct {
	RentalID          int64
	EquipmentID       int64
	Quantity          int64
	Hours             int64
	StartTime         string
	EndTime           string
	PricePerHourCents int64
	SubtotalCents     int64
}

const createEquipmentRentalItem = `
INSERT INTO equipment_rental_items (
    rental_id, equipment_id, quantity, hours, start_time, end_time,
    price_per_hour_cents, subtotal_cents
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, rental_id, equipment_id, quantity, hours, start_time, end_time,
          price_per_hour_cents, subtotal_cents
`

func (q *Queries) CreateEquipmentRentalItem(ctx context.Context, arg CreateEquipmentRentalItemParams) (EquipmentRentalItem, error) {
	var item EquipmentRentalItem
	err := q.db.QueryRowContext(ctx, createEquipmentRentalItem,
		arg.RentalID, arg.EquipmentID, arg.Quantity, arg.Hours,
		arg.StartTime, arg.EndTime, arg.PricePerHourCents, arg.SubtotalCents,
	).Scan(&item.ID, &item.RentalID, &item.EquipmentID, &item.Quantity,
		&item.Hours, &item.StartTime, &item.EndTime,
		&item.PricePerHourCents, &item.SubtotalCents)
	return item, err
}

// ---- Webhook idempotency ledger ----

const getWebhookEvent = `
SELECT transaction_id, reference_number, processed_at
FROM webhook_events
WHERE transaction_id = ?
`

func (q *Queries) GetWebhookEvent(ctx context.Context, transactionID string) (WebhookEvent, error) {
	var ev WebhookEvent
	err := q.db.QueryRowContext(ctx, getWebhookEvent, transactionID).
		Scan(&ev.TransactionID, &ev.ReferenceNumber, &ev.ProcessedAt)
	return ev, err
}

type CreateWebhookEventParams struct {
	TransactionID   string
	ReferenceNumber string
}

const createWebhookEvent = `
INSERT INTO webhook_events (transaction_id, reference_number)
VALUES (?, ?)
`

func (q *Queries) CreateWebhookEvent(ctx context.Context, arg CreateWebhookEventParams) error {
	_, err := q.db.ExecContext(ctx, createWebhookEvent, arg.TransactionID, arg.ReferenceNumber)
	return err
}

// ---- scan helpers ----

func scanReservation(row *sql.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.CourtID, &r.Date, &r.StartTime, &r.EndTime,
		&r.Status, &r.TotalAmountCents, &r.ReferenceNumber, &r.GatewayReference,
		&r.SelfService, &r.CreatedAt)
	return r, err
}

func scanReservations(rows *sql.Rows) ([]Reservation, error) {
	var reservations []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.ID, &r.UserID, &r.CourtID, &r.Date, &r.StartTime, &r.EndTime,
			&r.Status, &r.TotalAmountCents, &r.ReferenceNumber, &r.GatewayReference,
			&r.SelfService, &r.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func scanPayment(row *sql.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Method, &p.Status,
		&p.TransactionID, &p.ReferenceNumber, &p.Notes, &p.CreatedAt)
	return p, err
}
