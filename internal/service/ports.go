package service

import (
	"context"
	"time"

	"balmar-shop/internal/models"
	"balmar-shop/internal/store"
)

// UserStore persists users and their follow graph
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateUserReputation(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	AddFollowing(ctx context.Context, userID, sellerID string) error
	GetFollowers(ctx context.Context, sellerID string) ([]models.User, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListAvailableProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, buyerID, key string) (*models.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txn *models.Transaction, from models.TransactionStatus) error
	CancelTransaction(ctx context.Context, txn *models.Transaction, from models.TransactionStatus) error
}

type MessageStore interface {
	FindConversation(ctx context.Context, buyerID, sellerID, productID string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) error
	UpdateOfferStatus(ctx context.Context, messageID, status string) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}

// EventLog records consumed event IDs so redelivered events are skipped
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error
	PublishTransactionStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error
	PublishProductListed(ctx context.Context, event *models.ProductListedEvent) error
	PublishKYCRequested(ctx context.Context, event *models.KYCRequestedEvent) error
	PublishUserVerified(ctx context.Context, event *models.UserVerifiedEvent) error
}

// Cache holds short-lived keys: checkout idempotency and in-flight locks
type Cache interface {
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// MessageBus fans chat messages out to live subscribers
type MessageBus interface {
	Publish(ctx context.Context, conversationID string, v interface{}) error
}
