package models

import "time"

// Event types
const (
	EventTypeTransactionCreated       = "TRANSACTION_CREATED"
	EventTypeTransactionStatusChanged = "TRANSACTION_STATUS_CHANGED"
	EventTypeProductListed            = "PRODUCT_LISTED"
	EventTypeKYCRequested             = "KYC_REQUESTED"
	EventTypeUserVerified             = "USER_VERIFIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionCreatedEvent published when a buyer checks out
type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID string        `json:"transaction_id"`
	ProductID     string        `json:"product_id"`
	BuyerID       string        `json:"buyer_id"`
	SellerID      string        `json:"seller_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Amounts       FeeStructure  `json:"amounts"`
}

// TransactionStatusChangedEvent published on every status move, cancellation included
type TransactionStatusChangedEvent struct {
	BaseEvent
	TransactionID string            `json:"transaction_id"`
	ProductID     string            `json:"product_id"`
	BuyerID       string            `json:"buyer_id"`
	SellerID      string            `json:"seller_id"`
	ActorID       string            `json:"actor_id"`
	Action        string            `json:"action"`
	From          TransactionStatus `json:"from"`
	To            TransactionStatus `json:"to"`
}

// ProductListedEvent published when a seller lists a new item
type ProductListedEvent struct {
	BaseEvent
	ProductID  string `json:"product_id"`
	SellerID   string `json:"seller_id"`
	SellerName string `json:"seller_name"`
	Title      string `json:"title"`
	Price      int64  `json:"price"`
}

// KYCRequestedEvent asks the verification worker to check a user
type KYCRequestedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// UserVerifiedEvent published once identity verification succeeded
type UserVerifiedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	TrustScore int    `json:"trust_score"`
}
