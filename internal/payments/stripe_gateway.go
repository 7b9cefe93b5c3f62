package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const orderIDMetadataKey = "order_id"

// StripeGatewayParams wires the Stripe Checkout gateway.
type StripeGatewayParams struct {
	Sessions   pkgstripe.CheckoutSessions
	SuccessURL string
	CancelURL  string
}

// StripeGateway maps orders onto Stripe Checkout Sessions in payment mode.
type StripeGateway struct {
	sessions   pkgstripe.CheckoutSessions
	successURL string
	cancelURL  string
}

// NewStripeGateway builds a Stripe-backed Gateway.
func NewStripeGateway(params StripeGatewayParams) (*StripeGateway, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("stripe checkout sessions required")
	}
	if params.SuccessURL == "" || params.CancelURL == "" {
		return nil, fmt.Errorf("stripe success and cancel urls required")
	}
	return &StripeGateway{
		sessions:   params.Sessions,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

// CreateSession opens a single-line checkout session for the order total.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	orderID := req.OrderID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(orderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(string(req.Currency))),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order " + orderID),
				},
			},
		}},
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	params.AddMetadata(orderIDMetadataKey, orderID)

	cs, err := g.sessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return sessionFromStripe(cs), nil
}

// GetSession fetches the current session state.
func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	cs, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionFromStripe(cs), nil
}

// ExpireSession closes an open session so it can no longer be paid.
func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	_, err := g.sessions.Expire(ctx, sessionID)
	return err
}

func sessionFromStripe(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	return &Session{
		ID:          cs.ID,
		RedirectURL: cs.URL,
		State:       stateFromStripe(cs),
	}
}

func stateFromStripe(cs *stripe.CheckoutSession) SessionState {
	switch cs.Status {
	case stripe.CheckoutSessionStatusExpired:
		return SessionExpired
	case stripe.CheckoutSessionStatusComplete:
		if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
			return SessionPaid
		}
	}
	return SessionOpen
}
