package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"balmar-shop/internal/broker"
	"balmar-shop/internal/models"
	"balmar-shop/internal/rules"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferResolver looks up the price agreed in an accepted chat offer
type OfferResolver interface {
	AcceptedOffer(ctx context.Context, messageID, buyerID, productID string) (int64, error)
}

// Pricing bundles the tunable checkout rules
type Pricing struct {
	Fees           rules.FeePolicy
	Bypass         rules.BypassPolicy
	IdempotencyTTL time.Duration
}

// DefaultPricing returns the marketplace defaults
func DefaultPricing() Pricing {
	return Pricing{
		Fees:           rules.DefaultFeePolicy(),
		Bypass:         rules.DefaultBypassPolicy(),
		IdempotencyTTL: 24 * time.Hour,
	}
}

// TransactionService handles checkout and the transaction lifecycle
type TransactionService struct {
	transactions TransactionStore
	products     ProductStore
	users        UserStore
	offers       OfferResolver
	cache        Cache
	publisher    EventPublisher
	pricing      Pricing
	logger       *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	transactions TransactionStore,
	products ProductStore,
	users UserStore,
	offers OfferResolver,
	cache Cache,
	publisher EventPublisher,
	pricing Pricing,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		products:     products,
		users:        users,
		offers:       offers,
		cache:        cache,
		publisher:    publisher,
		pricing:      pricing,
		logger:       util.GetLogger(),
	}
}

// QuoteRequest asks for the price breakdown of a prospective purchase
type QuoteRequest struct {
	BuyerID        string               `json:"-"`
	ProductID      string               `json:"product_id" binding:"required"`
	PaymentMethod  models.PaymentMethod `json:"payment_method" binding:"required"`
	OfferMessageID string               `json:"offer_message_id,omitempty"`
}

// Quote is the fee breakdown a buyer would pay
type Quote struct {
	Fees            models.FeeStructure `json:"fees"`
	DepositBypassed bool                `json:"deposit_bypassed"`
	BuyerTrustScore int                 `json:"buyer_trust_score"`
}

// CreateTransactionRequest represents a checkout
type CreateTransactionRequest struct {
	QuoteRequest
	DeliveryAddress string `json:"delivery_address"`
	ContactPhone    string `json:"contact_phone"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// ActionDetails carries optional data attached to a status action
type ActionDetails struct {
	TrackingCode string `json:"tracking_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type pricedCheckout struct {
	product *models.Product
	quote   Quote
}

// QuoteFees runs the fee calculator then the deposit bypass rule
func (s *TransactionService) QuoteFees(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.QuoteFees")
	defer span.End()

	priced, err := s.price(ctx, req)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return &priced.quote, nil
}

func (s *TransactionService) price(ctx context.Context, req *QuoteRequest) (*pricedCheckout, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	}

	product, err := s.products.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.IsSold {
		return nil, fmt.Errorf("product %s: %w", product.ID, ErrProductSold)
	}
	if product.SellerID == req.BuyerID {
		return nil, fmt.Errorf("%w: cannot buy your own product", ErrInvalidInput)
	}

	buyer, err := s.users.GetUserByID(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}

	priced := *product
	if req.OfferMessageID != "" {
		amount, err := s.offers.AcceptedOffer(ctx, req.OfferMessageID, req.BuyerID, product.ID)
		if err != nil {
			return nil, err
		}
		priced.Price = amount
	}
	if priced.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	fees := s.pricing.Fees.Calculate(&priced, buyer, req.PaymentMethod)
	fees, bypassed := s.pricing.Bypass.Apply(fees, buyer)

	return &pricedCheckout{
		product: product,
		quote: Quote{
			Fees:            fees,
			DepositBypassed: bypassed,
			BuyerTrustScore: buyer.TrustScore,
		},
	}, nil
}

// CreateTransaction checks out a product. The second return value is true when
// the request replayed an earlier checkout with the same idempotency key.
func (s *TransactionService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*models.Transaction, bool, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.CreateTransaction")
	defer span.End()

	if req.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, req.BuyerID, req.IdempotencyKey)
		if err != nil {
			return nil, false, util.RecordError(span, fmt.Errorf("failed to check idempotency: %w", err))
		}
		if existing != nil {
			if existing.BuyerID != req.BuyerID {
				return nil, false, util.RecordError(span, fmt.Errorf("%w: idempotency key belongs to another buyer", ErrConflict))
			}
			s.logger.Info("Duplicate checkout detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("transaction_id", existing.ID))
			return existing, true, nil
		}
	}

	priced, err := s.price(ctx, &req.QuoteRequest)
	if err != nil {
		util.TransactionsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, false, util.RecordError(span, err)
	}

	txn := &models.Transaction{
		ID:              uuid.New().String(),
		ProductID:       priced.product.ID,
		BuyerID:         req.BuyerID,
		SellerID:        priced.product.SellerID,
		Status:          models.TransactionStatusCreated,
		PaymentMethod:   req.PaymentMethod,
		Amounts:         priced.quote.Fees,
		DeliveryAddress: req.DeliveryAddress,
		ContactPhone:    req.ContactPhone,
		IdempotencyKey:  req.IdempotencyKey,
	}

	if err := s.transactions.CreateTransaction(ctx, txn); err != nil {
		// a concurrent request with the same key may have won the race
		if req.IdempotencyKey != "" {
			if existing, lookupErr := s.transactions.GetTransactionByIdempotencyKey(ctx, req.BuyerID, req.IdempotencyKey); lookupErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		util.TransactionsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, false, util.RecordError(span, fmt.Errorf("failed to create transaction: %w", err))
	}

	if req.IdempotencyKey != "" {
		if err := s.cache.SetIdempotencyKey(ctx, buyerKey(req.BuyerID, req.IdempotencyKey), txn.ID, s.pricing.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
		}
	}

	util.TransactionsCreatedTotal.WithLabelValues(string(txn.PaymentMethod)).Inc()
	util.TransactionAmount.Observe(float64(txn.Amounts.Total))
	if txn.Amounts.DepositRequired > 0 {
		util.DepositsRequiredTotal.Inc()
	}
	if priced.quote.DepositBypassed {
		util.DepositsBypassedTotal.Inc()
	}

	s.logger.Info("Transaction created",
		zap.String("transaction_id", txn.ID),
		zap.String("product_id", txn.ProductID),
		zap.String("payment_method", string(txn.PaymentMethod)),
		zap.Int64("total", txn.Amounts.Total),
		zap.Int64("deposit", txn.Amounts.DepositRequired))

	event := &models.TransactionCreatedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeTransactionCreated),
		TransactionID: txn.ID,
		ProductID:     txn.ProductID,
		BuyerID:       txn.BuyerID,
		SellerID:      txn.SellerID,
		PaymentMethod: txn.PaymentMethod,
		Amounts:       txn.Amounts,
	}
	if err := s.publisher.PublishTransactionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionCreated event", zap.Error(err))
	}

	return txn, false, nil
}

// buyerKey scopes an idempotency key to the buyer who sent it
func buyerKey(buyerID, key string) string {
	return buyerID + ":" + key
}

func (s *TransactionService) findByIdempotencyKey(ctx context.Context, buyerID, key string) (*models.Transaction, error) {
	id, err := s.cache.GetIdempotencyKey(ctx, buyerKey(buyerID, key))
	if err != nil {
		s.logger.Warn("Idempotency cache unavailable, falling back to database", zap.Error(err))
	}
	if id != "" {
		txn, err := s.transactions.GetTransactionByID(ctx, id)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return s.transactions.GetTransactionByIdempotencyKey(ctx, buyerID, key)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrProductSold):
		return "product_sold"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "db_error"
	}
}

// GetTransaction returns a transaction visible to userID
func (s *TransactionService) GetTransaction(ctx context.Context, txnID, userID string) (*models.Transaction, error) {
	txn, err := s.transactions.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(txn, userID) {
		return nil, ErrForbidden
	}
	return txn, nil
}

// ListUserTransactions returns the user's purchases and sales, newest first
func (s *TransactionService) ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.transactions.ListTransactionsByUser(ctx, userID)
}

// ExportTransactions returns every transaction for the admin export
func (s *TransactionService) ExportTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.transactions.ListTransactions(ctx)
}

// ApplyAction moves a transaction along the status machine. An action that
// leaves the status unchanged is rejected with ErrInvalidTransition.
func (s *TransactionService) ApplyAction(ctx context.Context, txnID, actorID string, action rules.Action, details ActionDetails) (*models.Transaction, error) {
	if action == rules.ActionCancel {
		return s.Cancel(ctx, txnID, actorID)
	}

	ctx, span := util.StartSpan(ctx, "TransactionService.ApplyAction")
	defer span.End()

	txn, err := s.openTransaction(ctx, txnID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAction(txn, actorID, action); err != nil {
		return nil, err
	}

	from := txn.Status
	next := rules.NextStatus(from, action)
	if next == from {
		return nil, fmt.Errorf("%w: %s cannot be applied to %s", ErrInvalidTransition, action, from)
	}

	txn.Status = next
	switch next {
	case models.TransactionStatusShipped:
		if details.TrackingCode != "" {
			txn.TrackingCode = details.TrackingCode
		}
	case models.TransactionStatusDispute:
		txn.DisputeReason = details.Reason
	}

	if err := s.transactions.UpdateTransactionStatus(ctx, txn, from); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to update transaction status: %w", err))
	}

	s.afterTransition(ctx, txn, actorID, string(action), from)

	if next == models.TransactionStatusCompleted {
		s.recordCompletion(ctx, txn)
	}
	return txn, nil
}

// Complete confirms delivery on behalf of the buyer
func (s *TransactionService) Complete(ctx context.Context, txnID, actorID string) (*models.Transaction, error) {
	return s.ApplyAction(ctx, txnID, actorID, rules.ActionValidate, ActionDetails{})
}

// Cancel aborts a non-terminal transaction and puts the product back on sale.
// Once the item has left the seller only a dispute can stop the transaction.
func (s *TransactionService) Cancel(ctx context.Context, txnID, actorID string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.Cancel")
	defer span.End()

	txn, err := s.openTransaction(ctx, txnID, actorID)
	if err != nil {
		return nil, err
	}

	from := txn.Status
	if _, ok := rules.Cancel(from); !ok {
		return nil, fmt.Errorf("%w: %s transactions cannot be cancelled", ErrInvalidTransition, from)
	}
	if inTransit(from) {
		return nil, fmt.Errorf("%w: %s transactions cannot be cancelled, open a dispute instead", ErrInvalidTransition, from)
	}

	if err := s.transactions.CancelTransaction(ctx, txn, from); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to cancel transaction: %w", err))
	}

	s.afterTransition(ctx, txn, actorID, string(rules.ActionCancel), from)
	return txn, nil
}

func (s *TransactionService) afterTransition(ctx context.Context, txn *models.Transaction, actorID, action string, from models.TransactionStatus) {
	util.TransactionTransitionsTotal.WithLabelValues(string(from), string(txn.Status)).Inc()
	s.logger.Info("Transaction status changed",
		zap.String("transaction_id", txn.ID),
		zap.String("action", action),
		zap.String("from", string(from)),
		zap.String("to", string(txn.Status)))

	event := &models.TransactionStatusChangedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeTransactionStatusChanged),
		TransactionID: txn.ID,
		ProductID:     txn.ProductID,
		BuyerID:       txn.BuyerID,
		SellerID:      txn.SellerID,
		ActorID:       actorID,
		Action:        action,
		From:          from,
		To:            txn.Status,
	}
	if err := s.publisher.PublishTransactionStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionStatusChanged event", zap.Error(err))
	}
}

// recordCompletion credits both parties with a successful transaction.
// Failures are logged; the completed status stands.
func (s *TransactionService) recordCompletion(ctx context.Context, txn *models.Transaction) {
	for _, userID := range []string{txn.BuyerID, txn.SellerID} {
		_, err := s.users.UpdateUserReputation(ctx, userID, func(u *models.User) error {
			u.SuccessfulTransactions++
			refreshTrustScore(u, TriggerCompletion)
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to credit completed transaction",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// openTransaction loads a transaction the actor takes part in and refuses rows
// whose stored status the status machine does not know.
func (s *TransactionService) openTransaction(ctx context.Context, txnID, actorID string) (*models.Transaction, error) {
	txn, err := s.GetTransaction(ctx, txnID, actorID)
	if err != nil {
		return nil, err
	}
	if !rules.ValidStatus(txn.Status) {
		return nil, fmt.Errorf("%w: transaction %s has unknown status %q", ErrInvalidTransition, txn.ID, txn.Status)
	}
	return txn, nil
}

// authorizeAction restricts payment and confirmation to the buyer and shipping
// to the seller. DELIVER and DISPUTE are open to both parties.
func authorizeAction(txn *models.Transaction, actorID string, action rules.Action) error {
	switch action {
	case rules.ActionPayDeposit, rules.ActionPay, rules.ActionValidate:
		if actorID != txn.BuyerID {
			return fmt.Errorf("%w: only the buyer can %s", ErrForbidden, action)
		}
	case rules.ActionShip:
		if actorID != txn.SellerID {
			return fmt.Errorf("%w: only the seller can %s", ErrForbidden, action)
		}
	}
	return nil
}

func inTransit(status models.TransactionStatus) bool {
	return status == models.TransactionStatusShipped || status == models.TransactionStatusDelivered
}

func isParticipant(txn *models.Transaction, userID string) bool {
	return txn.BuyerID == userID || txn.SellerID == userID
}
