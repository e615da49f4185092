package worker

import (
	"context"
	"fmt"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/broker"
	"fleet-service/internal/service"
	"fleet-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource is the part of *broker.Consumer the command worker needs
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// CommandWorker consumes the fleet commands topic and hands each command to
// the fulfillment service
type CommandWorker struct {
	consumer MessageSource
	handler  *broker.CommandHandler
	logger   *zap.Logger
}

// NewCommandWorker creates a new command worker
func NewCommandWorker(consumer MessageSource, fulfillment *service.FulfillmentService) *CommandWorker {
	handler := broker.NewCommandHandler()

	handler.OnOrderStatusChanged(fulfillment.HandleOrderStatusChanged)
	handler.OnTriggerReplenishment(fulfillment.HandleTriggerReplenishment)

	return &CommandWorker{
		consumer: consumer,
		handler:  handler,
		logger:   util.ComponentLogger("command-worker"),
	}
}

// Start blocks consuming commands until ctx is cancelled
func (w *CommandWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting command worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *CommandWorker) Stop() error {
	w.logger.Info("Stopping command worker")
	return w.consumer.Close()
}

// ReplenishmentWorker triggers a replenishment cycle on a fixed interval.
// Ticks that land while a cycle is still running are dropped by the engine.
type ReplenishmentWorker struct {
	trigger      service.CycleTrigger
	interval     time.Duration
	initialDelay time.Duration
	logger       *zap.Logger
}

// NewReplenishmentWorker creates a new scheduler for the engine. interval
// must be positive and initialDelay must not be negative.
func NewReplenishmentWorker(trigger service.CycleTrigger, interval, initialDelay time.Duration) (*ReplenishmentWorker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: replenishment interval must be positive, got %s", apperrors.ErrConfiguration, interval)
	}
	if initialDelay < 0 {
		return nil, fmt.Errorf("%w: replenishment initial delay must not be negative, got %s", apperrors.ErrConfiguration, initialDelay)
	}
	return &ReplenishmentWorker{
		trigger:      trigger,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       util.ComponentLogger("replenishment-worker"),
	}, nil
}

// Start fires the first cycle after the initial delay and then once per
// interval until ctx is cancelled
func (w *ReplenishmentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting replenishment worker",
		zap.Duration("interval", w.interval),
		zap.Duration("initial_delay", w.initialDelay))

	delay := time.NewTimer(w.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-delay.C:
		go w.trigger.TriggerCycle(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping replenishment worker")
			return ctx.Err()
		case <-ticker.C:
			go w.trigger.TriggerCycle(ctx)
		}
	}
}
