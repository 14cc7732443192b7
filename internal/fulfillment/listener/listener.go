package listener

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-warehouse-service/pkg/broker"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"go.uber.org/zap"
)

// orderCreatedEvent is the payload published by the order service when a
// sales order is ready for fulfillment.
type orderCreatedEvent struct {
	TenantID    string `json:"tenant_id"`
	CustomerRef string `json:"customer_ref"`
	Notes       string `json:"notes"`
	Lines       []struct {
		ProductID string  `json:"product_id"`
		Quantity  float64 `json:"quantity"`
	} `json:"lines"`
}

type OrderListener struct {
	consumer *broker.KafkaConsumer
	useCase  fulfillment.UseCase
	logger   logger.ZapLogger
}

func NewOrderListener(consumer *broker.KafkaConsumer, useCase fulfillment.UseCase, log logger.ZapLogger) *OrderListener {
	return &OrderListener{consumer: consumer, useCase: useCase, logger: log}
}

// Run consumes order events until the context is cancelled. Malformed or
// invalid events are logged and skipped; infrastructure errors end the loop.
func (l *OrderListener) Run(ctx context.Context) error {
	for {
		msg, err := l.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var event orderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Warn("skipping malformed order event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		input := &dto.CreateOrderInput{
			TenantID:    event.TenantID,
			CustomerRef: event.CustomerRef,
			Notes:       event.Notes,
			ActorID:     "system",
		}
		for _, line := range event.Lines {
			input.Lines = append(input.Lines, dto.OrderLineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		order, err := l.useCase.CreateOrder(ctx, input)
		if err != nil {
			// Bad payloads are not retryable; anything else is.
			if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
				l.logger.Warn("rejecting order event",
					zap.Int64("offset", msg.Offset),
					zap.String("tenant_id", event.TenantID),
					zap.Error(err),
				)
				continue
			}
			return err
		}

		l.logger.Info("order created from event",
			zap.String("tenant_id", order.TenantID),
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
		)
	}
}
