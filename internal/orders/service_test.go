package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/split"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

type fakeOrdersRepo struct {
	event       *models.Event
	ticketTypes map[uuid.UUID]*models.TicketType
	reserveOK   bool
	order       *models.Order
	items       []models.OrderItem
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = uuid.New()
	f.order = order
	return nil
}

func (f *fakeOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	f.items = items
	return nil
}

func (f *fakeOrdersRepo) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	return f.order, nil
}

func (f *fakeOrdersRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return f.items, nil
}

func (f *fakeOrdersRepo) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	return f.event, nil
}

func (f *fakeOrdersRepo) FindTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*models.TicketType, error) {
	return f.ticketTypes[ticketTypeID], nil
}

func (f *fakeOrdersRepo) ReserveTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	return f.reserveOK, nil
}

func (f *fakeOrdersRepo) RestoreTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	return nil
}

func (f *fakeOrdersRepo) MarkStatusFromPending(ctx context.Context, reference string, status enums.PaymentStatus, paidAt *time.Time) (bool, error) {
	return true, nil
}

func (f *fakeOrdersRepo) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeSettings struct {
	eventShare decimal.Decimal
	awardShare decimal.Decimal
	paymentFee decimal.Decimal
}

func (f fakeSettings) EventAdminShare(ctx context.Context) (decimal.Decimal, error) {
	return f.eventShare, nil
}

func (f fakeSettings) AwardAdminShare(ctx context.Context) (decimal.Decimal, error) {
	return f.awardShare, nil
}

func (f fakeSettings) PaymentFee(ctx context.Context) (decimal.Decimal, error) {
	return f.paymentFee, nil
}

func (f fakeSettings) PayoutHoldDays(ctx context.Context) (int, error) { return 7, nil }

func (f fakeSettings) MinPayout(ctx context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("50.00"), nil
}

func (f fakeSettings) Set(ctx context.Context, key, value string) error { return nil }

func newOrdersService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:  repo,
		Tx:    passthroughTx{},
		Split: split.NewCalculator(),
		Settings: fakeSettings{
			eventShare: decimal.RequireFromString("15.00"),
			paymentFee: decimal.RequireFromString("1.95"),
		},
		Logger: logger.New(logger.Options{ServiceName: "orders-test"}),
	})
	require.NoError(t, err)
	return svc
}

func publishedEvent() *models.Event {
	return &models.Event{
		ID:          uuid.New(),
		OrganizerID: uuid.New(),
		Name:        "Accra Music Festival",
		Published:   true,
	}
}

func TestCreateOrderComputesSplitAtCreation(t *testing.T) {
	event := publishedEvent()
	tierID := uuid.New()
	repo := &fakeOrdersRepo{
		event: event,
		ticketTypes: map[uuid.UUID]*models.TicketType{
			tierID: {ID: tierID, EventID: event.ID, Name: "VIP", Price: decimal.RequireFromString("50.00")},
		},
		reserveOK: true,
	}
	svc := newOrdersService(t, repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		EventID:    event.ID,
		BuyerEmail: "buyer@example.com",
		Items:      []OrderItemInput{{TicketTypeID: tierID, Quantity: 2}},
	})
	require.NoError(t, err)

	// 100.00 gross at 15% admin share and 1.95% fee.
	assert.True(t, order.GrossAmount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, order.OrganizerAmount.Equal(decimal.RequireFromString("85.00")))
	assert.True(t, order.AdminAmount.Equal(decimal.RequireFromString("13.05")))
	assert.True(t, order.PaymentFee.Equal(decimal.RequireFromString("1.95")))
	assert.Equal(t, event.OrganizerID, order.OrganizerID)
	assert.NotEmpty(t, order.Reference)
	assert.LessOrEqual(t, len(order.Reference), 100)
	require.Len(t, repo.items, 1)
	assert.Equal(t, order.ID, repo.items[0].OrderID)
}

func TestCreateOrderUsesEventShareOverride(t *testing.T) {
	event := publishedEvent()
	override := decimal.RequireFromString("20.00")
	event.AdminSharePercent = &override
	tierID := uuid.New()
	repo := &fakeOrdersRepo{
		event: event,
		ticketTypes: map[uuid.UUID]*models.TicketType{
			tierID: {ID: tierID, EventID: event.ID, Price: decimal.RequireFromString("100.00")},
		},
		reserveOK: true,
	}
	svc := newOrdersService(t, repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		EventID: event.ID,
		Items:   []OrderItemInput{{TicketTypeID: tierID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, order.OrganizerAmount.Equal(decimal.RequireFromString("80.00")))
}

func TestCreateOrderRejectsSoldOutTier(t *testing.T) {
	event := publishedEvent()
	tierID := uuid.New()
	repo := &fakeOrdersRepo{
		event: event,
		ticketTypes: map[uuid.UUID]*models.TicketType{
			tierID: {ID: tierID, EventID: event.ID, Price: decimal.RequireFromString("50.00")},
		},
		reserveOK: false,
	}
	svc := newOrdersService(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		EventID: event.ID,
		Items:   []OrderItemInput{{TicketTypeID: tierID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeConflict))
}

func TestCreateOrderRejectsUnpublishedEvent(t *testing.T) {
	event := publishedEvent()
	event.Published = false
	repo := &fakeOrdersRepo{event: event}
	svc := newOrdersService(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		EventID: event.ID,
		Items:   []OrderItemInput{{TicketTypeID: uuid.New(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeStateConflict))
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newOrdersService(t, &fakeOrdersRepo{})
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{})
	assert.True(t, errs.HasCode(err, errs.CodeValidation))

	_, err = svc.CreateOrder(ctx, CreateOrderInput{EventID: uuid.New()})
	assert.True(t, errs.HasCode(err, errs.CodeValidation))

	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		EventID: uuid.New(),
		Items:   []OrderItemInput{{TicketTypeID: uuid.New(), Quantity: 0}},
	})
	assert.True(t, errs.HasCode(err, errs.CodeValidation))
}
