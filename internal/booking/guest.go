// internal/booking/guest.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/db"
)

// PayerIdentity identifies who a booking belongs to. Authenticated flows set
// UserID; walk-in and gateway flows supply name/email/phone and the resolver
// finds or provisions an account.
type PayerIdentity struct {
	UserID int64  `json:"user_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// GuestResolver maps a payer identity to a user row. The matching policy is
// behind an interface because the default is a heuristic: exact email first,
// then substring on name, then a fresh guest account. A deployment that wants
// stricter matching swaps the implementation without touching the
// orchestrator.
type GuestResolver interface {
	Resolve(ctx context.Context, q *db.Queries, identity PayerIdentity) (db.User, error)
}

type HeuristicGuestResolver struct {
	phoneRegion string
}

// NewHeuristicGuestResolver builds the default resolver. phoneRegion is the
// ISO region used to normalize bare national phone numbers; empty means "US".
func NewHeuristicGuestResolver(phoneRegion string) *HeuristicGuestResolver {
	if phoneRegion == "" {
		phoneRegion = "US"
	}
	return &HeuristicGuestResolver{phoneRegion: phoneRegion}
}

func (r *HeuristicGuestResolver) Resolve(ctx context.Context, q *db.Queries, identity PayerIdentity) (db.User, error) {
	name := strings.TrimSpace(identity.Name)
	email := strings.TrimSpace(identity.Email)
	if name == "" && email == "" {
		return db.User{}, ValidationError{Field: "customer", Reason: "name or email is required"}
	}

	if email != "" {
		user, err := q.GetUserByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.User{}, fmt.Errorf("guest email lookup: %w", err)
		}
	}

	if name != "" {
		user, err := q.FindUserByNameLike(ctx, name)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.User{}, fmt.Errorf("guest name lookup: %w", err)
		}
	}

	if email == "" {
		email = synthesizeGuestEmail(name)
	}
	if name == "" {
		name = "Guest"
	}

	user, err := q.CreateGuestUser(ctx, db.CreateGuestUserParams{
		Name:  name,
		Email: email,
		Phone: r.normalizePhone(ctx, identity.Phone),
	})
	if err != nil {
		return db.User{}, fmt.Errorf("create guest user: %w", err)
	}
	return user, nil
}

func (r *HeuristicGuestResolver) normalizePhone(ctx context.Context, raw string) sql.NullString {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullString{}
	}

	parsed, err := phonenumbers.Parse(raw, r.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		log.Ctx(ctx).Debug().Str("phone", raw).Msg("Keeping unparseable guest phone as entered")
		return sql.NullString{String: raw, Valid: true}
	}
	return sql.NullString{
		String: phonenumbers.Format(parsed, phonenumbers.E164),
		Valid:  true,
	}
}

func synthesizeGuestEmail(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "."))
	if slug == "" {
		slug = "guest"
	}
	return fmt.Sprintf("%s.%s@guest.invalid", slug, uuid.NewString()[:8])
}
