package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SessionState is the gateway-side view of a checkout session.
type SessionState string

const (
	SessionOpen    SessionState = "open"
	SessionPaid    SessionState = "paid"
	SessionExpired SessionState = "expired"
)

// SessionRequest describes the amount a gateway session must collect.
type SessionRequest struct {
	OrderID     uuid.UUID
	AmountCents int64
	Currency    enums.Currency
	ExpiresAt   time.Time
}

// Session is a gateway checkout session.
type Session struct {
	ID          string
	RedirectURL string
	State       SessionState
}

// Gateway opens and inspects external payment sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ExpireSession(ctx context.Context, sessionID string) error
}
