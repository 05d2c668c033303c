package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/internal/split"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines checkout-side order operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetByReference(ctx context.Context, reference string) (*models.Order, error)
}

// Params wires the orders service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Split    split.Calculator
	Settings settings.Service
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	split    split.Calculator
	settings settings.Service
	logg     *logger.Logger
}

// NewService validates dependencies and returns an orders service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("orders logger required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		split:    params.Split,
		settings: params.Settings,
		logg:     params.Logger,
	}, nil
}

// CreateOrder reserves inventory and persists the pending order with its
// revenue split precomputed, all in one transaction. The split recorded here
// is the one the reconciler applies when the payment confirms, so a later
// settings change never alters an in-flight order.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.EventID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "event id is required")
	}
	if len(input.Items) == 0 {
		return nil, errs.New(errs.CodeValidation, "at least one ticket item is required")
	}
	for _, item := range input.Items {
		if item.TicketTypeID == uuid.Nil {
			return nil, errs.New(errs.CodeValidation, "ticket type id is required")
		}
		if item.Quantity <= 0 {
			return nil, errs.New(errs.CodeValidation, "ticket quantity must be positive")
		}
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		event, err := repo.FindEvent(ctx, input.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return errs.New(errs.CodeNotFound, "event not found")
		}
		if !event.Published {
			return errs.New(errs.CodeStateConflict, "event is not open for sales")
		}

		gross := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			ticketType, err := repo.FindTicketType(ctx, item.TicketTypeID)
			if err != nil {
				return err
			}
			if ticketType == nil || ticketType.EventID != event.ID {
				return errs.New(errs.CodeNotFound, "ticket type not found for event")
			}
			reserved, err := repo.ReserveTickets(ctx, ticketType.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !reserved {
				return errs.New(errs.CodeConflict, fmt.Sprintf("insufficient inventory for %s", ticketType.Name)).
					WithDetails(map[string]any{"ticket_type_id": ticketType.ID})
			}
			subtotal := ticketType.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			gross = gross.Add(subtotal)
			items = append(items, models.OrderItem{
				TicketTypeID: ticketType.ID,
				Quantity:     item.Quantity,
				UnitPrice:    ticketType.Price,
				Subtotal:     subtotal,
			})
		}

		adminShare, err := s.settings.EventAdminShare(ctx)
		if err != nil {
			return err
		}
		if event.AdminSharePercent != nil {
			adminShare = *event.AdminSharePercent
		}
		paymentFee, err := s.settings.PaymentFee(ctx)
		if err != nil {
			return err
		}
		revenue, err := s.split.Split(gross, adminShare, paymentFee)
		if err != nil {
			return err
		}

		order = &models.Order{
			ID:              uuid.New(),
			Reference:       newPaymentReference("TKT"),
			EventID:         event.ID,
			OrganizerID:     event.OrganizerID,
			BuyerEmail:      input.BuyerEmail,
			BuyerPhone:      input.BuyerPhone,
			GrossAmount:     revenue.GrossAmount,
			AdminAmount:     revenue.AdminAmount,
			OrganizerAmount: revenue.OrganizerAmount,
			PaymentFee:      revenue.PaymentFee,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return repo.CreateOrderItems(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithReference(ctx, order.Reference), "order created")
	return order, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, errs.New(errs.CodeValidation, "reference is required")
	}
	return s.repo.FindByReference(ctx, reference)
}

// newPaymentReference builds a provider-safe ASCII reference, well under the
// 100-character ceiling shared with the ledger.
func newPaymentReference(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("EVE-%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("EVE-%s-%s-%s", prefix, time.Now().UTC().Format("20060102150405"), hex.EncodeToString(buf))
}
