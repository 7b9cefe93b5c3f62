package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type fakeGateway struct {
	sessions  map[string]*Session
	requests  []SessionRequest
	expired   []string
	createErr error
	seq       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*Session{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	session := &Session{ID: id, RedirectURL: "https://pay.example/" + id, State: SessionOpen}
	g.sessions[id] = session
	g.requests = append(g.requests, req)
	return session, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*Session, error) {
	session, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	copied := *session
	return &copied, nil
}

func (g *fakeGateway) ExpireSession(_ context.Context, id string) error {
	g.expired = append(g.expired, id)
	if session, ok := g.sessions[id]; ok && session.State == SessionOpen {
		session.State = SessionExpired
	}
	return nil
}

func (g *fakeGateway) pay(id string) {
	g.sessions[id].State = SessionPaid
}

type paymentFixture struct {
	svc     *Service
	conn    *gorm.DB
	gateway *fakeGateway
	user    models.User
	now     time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	gateway := newFakeGateway()
	svc, err := NewService(ServiceParams{
		DB:         client,
		Payments:   NewRepository(conn),
		Orders:     orders.NewRepository(conn),
		Gateway:    gateway,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		PaymentTTL: 15 * time.Minute,
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }
	return &paymentFixture{svc: svc, conn: conn, gateway: gateway, user: dbtest.SeedUser(t, conn), now: now}
}

func (f *paymentFixture) pendingOrder(t *testing.T, userID uuid.UUID) models.Order {
	t.Helper()
	addr := types.Address{Name: "Alan Turing", Line1: "2 Bletchley Rd", City: "Milton Keynes", PostalCode: "MK3 6EB", Country: "GB"}
	order := models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		Currency:        enums.CurrencyEUR,
		SubtotalCents:   4200,
		TotalCents:      4200,
		ShippingAddress: addr,
		BillingAddress:  addr,
	}
	require.NoError(t, orders.NewRepository(f.conn).Create(context.Background(), &order))
	return order
}

func (f *paymentFixture) orderStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	dbtest.Reload(t, f.conn, &order, id)
	return order.Status
}

func TestCreateOpensSessionForPendingOrder(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)

	payment, err := f.svc.Create(context.Background(), f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, int64(4200), payment.AmountCents)
	assert.Equal(t, enums.CurrencyEUR, payment.Currency)
	assert.NotEmpty(t, payment.RedirectURL)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, order.ID, req.OrderID)
	assert.False(t, req.ExpiresAt.Before(f.now.Add(minSessionLifetime)))
}

func TestCreateReturnsExistingPendingPayment(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)

	first, err := f.svc.Create(context.Background(), f.user.ID, order.ID)
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.gateway.requests, 1)
}

func TestCreateRejectsForeignAndSettledOrders(t *testing.T) {
	f := newPaymentFixture(t)
	other := dbtest.SeedUser(t, f.conn)
	order := f.pendingOrder(t, other.ID)

	_, err := f.svc.Create(context.Background(), f.user.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = orders.NewRepository(f.conn).MarkCancelled(context.Background(), order.ID, f.now)
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), other.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.gateway.requests)
}

func TestCreateSurfacesGatewayFailure(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	f.gateway.createErr = errors.New("gateway down")

	_, err := f.svc.Create(context.Background(), f.user.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCaptureMarksPaymentAndOrderPaidOnce(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Capture(ctx, f.user.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "open session must not capture")

	f.gateway.pay(payment.SessionID)
	captured, err := f.svc.Capture(ctx, f.user.ID, payment.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, captured.Status)
	assert.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))

	again, err := f.svc.Capture(ctx, f.user.ID, payment.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, again.Status)
	assert.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
}

func TestCaptureIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	f.gateway.pay(payment.SessionID)

	stranger := dbtest.SeedUser(t, f.conn)
	_, err = f.svc.Capture(ctx, stranger.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCaptureAfterSweepIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	f.gateway.pay(payment.SessionID)

	ok, err := orders.NewRepository(f.conn).MarkCancelled(ctx, order.ID, f.now)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Capture(ctx, f.user.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var reloaded models.Payment
	dbtest.Reload(t, f.conn, &reloaded, payment.ID)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.Status)
	assert.Equal(t, enums.OrderStatusCancelled, f.orderStatus(t, order.ID))
}

func TestCaptureOfExpiredSessionFailsPayment(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	f.gateway.sessions[payment.SessionID].State = SessionExpired

	_, err = f.svc.Capture(ctx, f.user.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var reloaded models.Payment
	dbtest.Reload(t, f.conn, &reloaded, payment.ID)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.Status)
	assert.Equal(t, enums.OrderStatusPending, f.orderStatus(t, order.ID))
}

func TestCancelLeavesOrderPendingAndExpiresSession(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, f.user.ID, payment.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.OrderStatusPending, f.orderStatus(t, order.ID))
	assert.Contains(t, f.gateway.expired, payment.SessionID)

	_, err = f.svc.Cancel(ctx, f.user.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	replacement, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, payment.ID, replacement.ID)
}

func TestCancelRequiresPendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	order := f.pendingOrder(t, f.user.ID)
	payment, err := f.svc.Create(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	_, err = orders.NewRepository(f.conn).MarkCancelled(ctx, order.ID, f.now)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.user.ID, payment.SessionID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmAndFailSessionFromGateway(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	paidOrder := f.pendingOrder(t, f.user.ID)
	paid, err := f.svc.Create(ctx, f.user.ID, paidOrder.ID)
	require.NoError(t, err)
	f.gateway.pay(paid.SessionID)
	_, err = f.svc.ConfirmSession(ctx, paid.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, paidOrder.ID))
	require.NoError(t, f.svc.FailSession(ctx, paid.SessionID), "settled payments ignore expiry")

	lapsedOrder := f.pendingOrder(t, f.user.ID)
	lapsed, err := f.svc.Create(ctx, f.user.ID, lapsedOrder.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.FailSession(ctx, lapsed.SessionID))
	var reloaded models.Payment
	dbtest.Reload(t, f.conn, &reloaded, lapsed.ID)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.Status)

	_, err = f.svc.ConfirmSession(ctx, "cs_unknown")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
