package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// VerificationLevel is the KYC level reached by a user
type VerificationLevel string

const (
	VerificationNone      VerificationLevel = "NONE"
	VerificationBasic     VerificationLevel = "BASIC"
	VerificationBiometric VerificationLevel = "BIOMETRIC"
)

// Valid reports whether v is a known verification level
func (v VerificationLevel) Valid() bool {
	switch v {
	case VerificationNone, VerificationBasic, VerificationBiometric:
		return true
	}
	return false
}

// PaymentMethod is how the buyer settles a transaction
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodWallet:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

// Transaction statuses
const (
	TransactionStatusCreated         TransactionStatus = "CREATED"
	TransactionStatusAwaitingDeposit TransactionStatus = "AWAITING_DEPOSIT"
	TransactionStatusDepositPaid     TransactionStatus = "DEPOSIT_PAID"
	TransactionStatusPaidEscrow      TransactionStatus = "PAID_ESCROW"
	TransactionStatusShipped         TransactionStatus = "SHIPPED"
	TransactionStatusDelivered       TransactionStatus = "DELIVERED"
	TransactionStatusCompleted       TransactionStatus = "COMPLETED"
	TransactionStatusDispute         TransactionStatus = "DISPUTE"
	TransactionStatusCancelled       TransactionStatus = "CANCELLED"
)

// User represents a marketplace member, buyer and seller alike
type User struct {
	ID                     string            `db:"id" json:"id"`
	Name                   string            `db:"name" json:"name"`
	Email                  string            `db:"email" json:"email,omitempty"`
	Avatar                 string            `db:"avatar" json:"avatar,omitempty"`
	Location               string            `db:"location" json:"location,omitempty"`
	TrustScore             int               `db:"trust_score" json:"trust_score"`
	VerificationLevel      VerificationLevel `db:"verification_level" json:"verification_level"`
	AverageRating          float64           `db:"average_rating" json:"average_rating"`
	ReviewsCount           int               `db:"reviews_count" json:"reviews_count"`
	SuccessfulTransactions int               `db:"successful_transactions" json:"successful_transactions"`
	Following              pq.StringArray    `db:"following" json:"following"`
	CreatedAt              time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time         `db:"updated_at" json:"updated_at"`
}

// Product represents a listed item
type Product struct {
	ID          string         `db:"id" json:"id"`
	SellerID    string         `db:"seller_id" json:"seller_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Category    string         `db:"category" json:"category"`
	Size        string         `db:"size" json:"size,omitempty"`
	Condition   string         `db:"condition" json:"condition,omitempty"`
	Price       int64          `db:"price" json:"price"`
	Images      pq.StringArray `db:"images" json:"images"`
	Location    string         `db:"location" json:"location,omitempty"`
	IsSold      bool           `db:"is_sold" json:"is_sold"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// FeeStructure is the computed cost breakdown of a purchase.
// The deposit is a refundable hold and is not part of Total.
type FeeStructure struct {
	ProductPrice    int64 `json:"product_price"`
	ShippingFee     int64 `json:"shipping_fee"`
	ServiceFee      int64 `json:"service_fee"`
	DepositRequired int64 `json:"deposit_required"`
	Total           int64 `json:"total"`
}

// Value stores the fee snapshot as JSONB
func (f FeeStructure) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan reads a JSONB fee snapshot
func (f *FeeStructure) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	case nil:
		*f = FeeStructure{}
		return nil
	}
	return fmt.Errorf("unsupported fee structure source: %T", src)
}

// Transaction represents a purchase between a buyer and a seller
type Transaction struct {
	ID              string            `db:"id" json:"id"`
	ProductID       string            `db:"product_id" json:"product_id"`
	BuyerID         string            `db:"buyer_id" json:"buyer_id"`
	SellerID        string            `db:"seller_id" json:"seller_id"`
	Status          TransactionStatus `db:"status" json:"status"`
	PaymentMethod   PaymentMethod     `db:"payment_method" json:"payment_method"`
	Amounts         FeeStructure      `db:"amounts" json:"amounts"`
	DeliveryAddress string            `db:"delivery_address" json:"delivery_address,omitempty"`
	ContactPhone    string            `db:"contact_phone" json:"contact_phone,omitempty"`
	TrackingCode    string            `db:"tracking_code" json:"tracking_code,omitempty"`
	DisputeReason   string            `db:"dispute_reason" json:"dispute_reason,omitempty"`
	IdempotencyKey  string            `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Message types
const (
	MessageTypeText   = "TEXT"
	MessageTypeOffer  = "OFFER"
	MessageTypeSystem = "SYSTEM"
)

// Offer statuses
const (
	OfferStatusPending  = "PENDING"
	OfferStatusAccepted = "ACCEPTED"
	OfferStatusRejected = "REJECTED"
)

// SystemSenderID marks messages generated by the platform
const SystemSenderID = "system"

// Conversation is a buyer/seller thread about one product
type Conversation struct {
	ID          string    `db:"id" json:"id"`
	BuyerID     string    `db:"buyer_id" json:"buyer_id"`
	SellerID    string    `db:"seller_id" json:"seller_id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	LastMessage string    `db:"last_message" json:"last_message,omitempty"`
	UnreadCount int       `db:"unread_count" json:"unread_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// Message is a chat line, optionally carrying a price offer
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Type           string    `db:"type" json:"type"`
	OfferAmount    *int64    `db:"offer_amount" json:"offer_amount,omitempty"`
	OfferStatus    *string   `db:"offer_status" json:"offer_status,omitempty"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Notification types
const (
	NotificationTypeOrder   = "ORDER"
	NotificationTypeSystem  = "SYSTEM"
	NotificationTypeNewPost = "NEW_POST"
)

// Notification is an in-app message for a user
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Link      string    `db:"link" json:"link,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
