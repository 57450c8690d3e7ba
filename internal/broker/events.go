package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"balmar-shop/internal/models"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent stamps a fresh event envelope
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher handles publishing domain events. Transaction events are keyed
// by transaction ID, account and catalogue events by user ID.
type EventPublisher struct {
	transactions *Producer
	accounts     *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(transactions, accounts *Producer) *EventPublisher {
	return &EventPublisher{transactions: transactions, accounts: accounts}
}

// PublishTransactionCreated publishes TransactionCreated event
func (ep *EventPublisher) PublishTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error {
	return ep.transactions.PublishEvent(ctx, "txn-"+event.TransactionID, event)
}

// PublishTransactionStatusChanged publishes TransactionStatusChanged event
func (ep *EventPublisher) PublishTransactionStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error {
	return ep.transactions.PublishEvent(ctx, "txn-"+event.TransactionID, event)
}

// PublishProductListed publishes ProductListed event
func (ep *EventPublisher) PublishProductListed(ctx context.Context, event *models.ProductListedEvent) error {
	return ep.accounts.PublishEvent(ctx, "user-"+event.SellerID, event)
}

// PublishKYCRequested publishes KYCRequested event
func (ep *EventPublisher) PublishKYCRequested(ctx context.Context, event *models.KYCRequestedEvent) error {
	return ep.accounts.PublishEvent(ctx, "user-"+event.UserID, event)
}

// PublishUserVerified publishes UserVerified event
func (ep *EventPublisher) PublishUserVerified(ctx context.Context, event *models.UserVerifiedEvent) error {
	return ep.accounts.PublishEvent(ctx, "user-"+event.UserID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onTransactionCreated       func(context.Context, *models.TransactionCreatedEvent) error
	onTransactionStatusChanged func(context.Context, *models.TransactionStatusChangedEvent) error
	onProductListed            func(context.Context, *models.ProductListedEvent) error
	onKYCRequested             func(context.Context, *models.KYCRequestedEvent) error
	onUserVerified             func(context.Context, *models.UserVerifiedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

func (eh *EventHandler) OnTransactionCreated(handler func(context.Context, *models.TransactionCreatedEvent) error) {
	eh.onTransactionCreated = handler
}

func (eh *EventHandler) OnTransactionStatusChanged(handler func(context.Context, *models.TransactionStatusChangedEvent) error) {
	eh.onTransactionStatusChanged = handler
}

func (eh *EventHandler) OnProductListed(handler func(context.Context, *models.ProductListedEvent) error) {
	eh.onProductListed = handler
}

func (eh *EventHandler) OnKYCRequested(handler func(context.Context, *models.KYCRequestedEvent) error) {
	eh.onKYCRequested = handler
}

func (eh *EventHandler) OnUserVerified(handler func(context.Context, *models.UserVerifiedEvent) error) {
	eh.onUserVerified = handler
}

// HandleMessage routes messages to appropriate handlers. Events without a
// registered handler are acknowledged and dropped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeTransactionCreated:
		return dispatch(ctx, msg.Value, eh.onTransactionCreated)
	case models.EventTypeTransactionStatusChanged:
		return dispatch(ctx, msg.Value, eh.onTransactionStatusChanged)
	case models.EventTypeProductListed:
		return dispatch(ctx, msg.Value, eh.onProductListed)
	case models.EventTypeKYCRequested:
		return dispatch(ctx, msg.Value, eh.onKYCRequested)
	case models.EventTypeUserVerified:
		return dispatch(ctx, msg.Value, eh.onUserVerified)
	default:
		util.GetLogger().Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}

func dispatch[T any](ctx context.Context, payload []byte, handler func(context.Context, *T) error) error {
	if handler == nil {
		return nil
	}
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", event, err)
	}
	return handler(ctx, &event)
}
