package worker

import (
	"context"
	"errors"

	"balmar-shop/internal/broker"
	"balmar-shop/internal/service"
	"balmar-shop/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// KYCWorker runs identity checks requested through KYC_REQUESTED events
type KYCWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewKYCWorker creates a new verification worker reading the account topic
func NewKYCWorker(consumer *broker.Consumer, kyc *service.KYCService) *KYCWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnKYCRequested(kyc.HandleVerificationRequested)

	return &KYCWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *KYCWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting KYC worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *KYCWorker) Stop() error {
	util.GetLogger().Info("Stopping KYC worker")
	return w.consumer.Close()
}

// NotificationWorker fans transaction and account events out to notifications
type NotificationWorker struct {
	consumers    []*broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a notification worker over one consumer per topic
func NewNotificationWorker(notifications *service.NotificationService, consumers ...*broker.Consumer) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnTransactionCreated(notifications.HandleTransactionCreated)
	eventHandler.OnTransactionStatusChanged(notifications.HandleTransactionStatusChanged)
	eventHandler.OnProductListed(notifications.HandleProductListed)
	eventHandler.OnUserVerified(notifications.HandleUserVerified)

	return &NotificationWorker{
		consumers:    consumers,
		eventHandler: eventHandler,
	}
}

// Start consumes every topic until ctx is cancelled or one consumer fails
func (w *NotificationWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting notification worker", zap.Int("topics", len(w.consumers)))

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range w.consumers {
		c := c
		g.Go(func() error {
			return c.StartConsuming(ctx, w.eventHandler.HandleMessage)
		})
	}
	return g.Wait()
}

// Stop closes every consumer
func (w *NotificationWorker) Stop() error {
	util.GetLogger().Info("Stopping notification worker")
	var errs []error
	for _, c := range w.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
