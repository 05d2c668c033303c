package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/idempotency"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/payloads"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/registry"
)

const financeAlertsConsumer = "finance-alerts"

// payloadVersion matches the envelope version the outbox service stamps on
// emitted events.
const payloadVersion = 1

// Consumer watches published finance events and surfaces the ones an operator
// has to act on: balance drift and rejected payouts.
type Consumer struct {
	subscription *pubsub.Subscriber
	decoders     *registry.DecoderRegistry
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a finance alerts consumer bound to the finance
// subscription.
func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("finance subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventBalanceDriftDetected, payloadVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.BalanceDriftDetectedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	decoders.Register(enums.EventPayoutRejected, payloadVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.PayoutRejectedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})

	return &Consumer{
		subscription: subscription,
		decoders:     decoders,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if eventType != enums.EventBalanceDriftDetected && eventType != enums.EventPayoutRejected {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, financeAlertsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// A payload we cannot decode will not decode on redelivery either.
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	switch event := decoded.(type) {
	case *payloads.BalanceDriftDetectedEvent:
		driftCtx := c.logg.WithFields(logCtx, map[string]any{
			"organizer_id":   event.OrganizerID.String(),
			"field":          event.Field,
			"stored_amount":  event.StoredAmount.String(),
			"derived_amount": event.DerivedAmount.String(),
			"delta":          event.Delta.String(),
			"repaired":       event.Repaired,
		})
		c.logg.Error(driftCtx, "organizer balance drift detected", nil)
	case *payloads.PayoutRejectedEvent:
		rejectCtx := c.logg.WithFields(logCtx, map[string]any{
			"payout_id":    event.PayoutID.String(),
			"organizer_id": event.OrganizerID.String(),
			"amount":       event.Amount.String(),
			"reason":       event.Reason,
		})
		c.logg.Warn(rejectCtx, "payout request rejected")
	}

	return processResult{ack: true}
}
