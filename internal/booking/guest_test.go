package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGuestResolver_ExactEmailMatch(t *testing.T) {
	_, database := newTestService(t)
	userID := seedUser(t, database, "Alice Tan", "alice@example.com")

	resolver := NewHeuristicGuestResolver("")
	user, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{
		Name:  "A. Tan",
		Email: "ALICE@example.com",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != userID {
		t.Errorf("resolved user %d, want %d (email match is case-insensitive)", user.ID, userID)
	}
}

func TestGuestResolver_NameSubstringFallback(t *testing.T) {
	_, database := newTestService(t)
	userID := seedUser(t, database, "Alice Tan", "alice@example.com")

	resolver := NewHeuristicGuestResolver("")
	user, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{Name: "alice"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != userID {
		t.Errorf("resolved user %d, want %d (name substring fallback)", user.ID, userID)
	}
}

func TestGuestResolver_CreatesGuestWithSynthesizedEmail(t *testing.T) {
	_, database := newTestService(t)

	resolver := NewHeuristicGuestResolver("")
	user, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{Name: "Walk In Customer"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.Name != "Walk In Customer" {
		t.Errorf("guest name = %q", user.Name)
	}
	if !strings.HasPrefix(user.Email, "walk.in.customer.") || !strings.HasSuffix(user.Email, "@guest.invalid") {
		t.Errorf("synthesized email %q should be slug.suffix@guest.invalid", user.Email)
	}
	if user.Role != "customer" {
		t.Errorf("guest role = %q, want customer", user.Role)
	}
}

func TestGuestResolver_NormalizesPhone(t *testing.T) {
	_, database := newTestService(t)

	resolver := NewHeuristicGuestResolver("US")
	user, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{
		Name:  "Alice Tan",
		Email: "alice@example.com",
		Phone: "(201) 555-0123",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !user.Phone.Valid || user.Phone.String != "+12015550123" {
		t.Errorf("phone = %+v, want E.164 +12015550123", user.Phone)
	}
}

func TestGuestResolver_KeepsUnparseablePhone(t *testing.T) {
	_, database := newTestService(t)

	resolver := NewHeuristicGuestResolver("US")
	user, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{
		Name:  "Alice Tan",
		Email: "alice@example.com",
		Phone: "ext. 42",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !user.Phone.Valid || user.Phone.String != "ext. 42" {
		t.Errorf("phone = %+v, want the raw input preserved", user.Phone)
	}
}

func TestGuestResolver_RequiresNameOrEmail(t *testing.T) {
	_, database := newTestService(t)

	resolver := NewHeuristicGuestResolver("")
	_, err := resolver.Resolve(context.Background(), database.Queries, PayerIdentity{Phone: "123"})
	var validation ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
