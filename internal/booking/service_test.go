package booking

import (
	"context"
	"testing"

	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()

	database := testutil.NewTestDB(t)
	return NewService(database), database
}

func seedCourt(t *testing.T, database *db.DB, name, status string, priceCents int64) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO courts (name, status, price_per_hour_cents) VALUES (?, ?, ?)",
		name, status, priceCents,
	)
	if err != nil {
		t.Fatalf("insert court %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("court id: %v", err)
	}
	return id
}

func seedEquipment(t *testing.T, database *db.DB, name string, priceCents, stock int64) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO equipment (name, price_per_hour_cents, stock) VALUES (?, ?, ?)",
		name, priceCents, stock,
	)
	if err != nil {
		t.Fatalf("insert equipment %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("equipment id: %v", err)
	}
	return id
}

func seedUser(t *testing.T, database *db.DB, name, email string) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO users (name, email) VALUES (?, ?)",
		name, email,
	)
	if err != nil {
		t.Fatalf("insert user %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}
