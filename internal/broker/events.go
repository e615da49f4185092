package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// EventSink publishes a keyed event; *Producer satisfies it
type EventSink interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher publishes domain events through a circuit breaker so an
// unavailable broker fails fast instead of stalling callers.
type EventPublisher struct {
	sink    EventSink
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sink EventSink) *EventPublisher {
	logger := util.ComponentLogger("event-publisher")
	const name = "kafka-publisher"

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			util.CircuitBreakerState.WithLabelValues(cbName).Set(breakerStateValue(to))
			logger.Info("Circuit breaker state changed",
				zap.String("circuit", cbName),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	util.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &EventPublisher{sink: sink, breaker: breaker, logger: logger}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func (ep *EventPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	_, err := ep.breaker.Execute(func() (interface{}, error) {
		return nil, ep.sink.PublishEvent(ctx, key, event)
	})
	if err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(eventType).Inc()
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// PublishPurchaseOrderCreated publishes PurchaseOrderCreated event
func (ep *EventPublisher) PublishPurchaseOrderCreated(ctx context.Context, event *models.PurchaseOrderCreatedEvent) error {
	key := fmt.Sprintf("item-%d", event.ItemID)
	return ep.publish(ctx, key, event.EventType, event)
}

// PublishMaintenanceEvent publishes a maintenance transition
func (ep *EventPublisher) PublishMaintenanceEvent(ctx context.Context, event *models.MaintenanceEvent) error {
	key := fmt.Sprintf("maintenance-%d", event.MaintenanceID)
	return ep.publish(ctx, key, event.EventType, event)
}

// CommandHandler routes messages from the commands topic
type CommandHandler struct {
	onTriggerReplenishment func(context.Context, *models.TriggerReplenishmentCommand) error
	onOrderStatusChanged   func(context.Context, *models.PurchaseOrderStatusChangedEvent) error
	logger                 *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler() *CommandHandler {
	return &CommandHandler{logger: util.ComponentLogger("command-handler")}
}

// OnTriggerReplenishment registers a handler for replenishment triggers
func (ch *CommandHandler) OnTriggerReplenishment(handler func(context.Context, *models.TriggerReplenishmentCommand) error) {
	ch.onTriggerReplenishment = handler
}

// OnOrderStatusChanged registers a handler for fulfillment status updates
func (ch *CommandHandler) OnOrderStatusChanged(handler func(context.Context, *models.PurchaseOrderStatusChangedEvent) error) {
	ch.onOrderStatusChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (ch *CommandHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	ch.logger.Debug("Handling command",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeTriggerReplenishment:
		if ch.onTriggerReplenishment != nil {
			var cmd models.TriggerReplenishmentCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal TriggerReplenishment command: %w", err)
			}
			return ch.onTriggerReplenishment(ctx, &cmd)
		}

	case models.EventTypePurchaseOrderStatusChanged:
		if ch.onOrderStatusChanged != nil {
			var event models.PurchaseOrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseOrderStatusChanged event: %w", err)
			}
			return ch.onOrderStatusChanged(ctx, &event)
		}

	default:
		ch.logger.Warn("Unhandled command type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
