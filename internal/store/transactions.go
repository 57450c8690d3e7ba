package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"balmar-shop/internal/models"

	"github.com/jmoiron/sqlx"
)

const transactionColumns = `id, product_id, buyer_id, seller_id, status, payment_method, amounts,
	delivery_address, contact_phone, tracking_code, dispute_reason,
	COALESCE(idempotency_key, '') AS idempotency_key, created_at, updated_at`

// CreateTransaction inserts a transaction and marks its product sold in one
// database transaction. Returns ErrProductSold when the product was already taken.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET is_sold = TRUE, updated_at = NOW() WHERE id = $1 AND is_sold = FALSE",
			txn.ProductID)
		if err != nil {
			return fmt.Errorf("failed to reserve product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("product %s: %w", txn.ProductID, ErrProductSold)
		}

		query := `
			INSERT INTO transactions (id, product_id, buyer_id, seller_id, status, payment_method,
				amounts, delivery_address, contact_phone, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
			RETURNING created_at, updated_at`

		return tx.GetContext(ctx, txn, query,
			txn.ID, txn.ProductID, txn.BuyerID, txn.SellerID, txn.Status, txn.PaymentMethod,
			txn.Amounts, txn.DeliveryAddress, txn.ContactPhone, txn.IdempotencyKey)
	})
}

// GetTransactionByID retrieves a transaction by ID
func (s *Store) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &txn, nil
}

// GetTransactionByIdempotencyKey retrieves the buyer's transaction created with key.
// Returns nil, nil when the buyer never used it.
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, buyerID, key string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn,
		"SELECT "+transactionColumns+" FROM transactions WHERE buyer_id = $1 AND idempotency_key = $2",
		buyerID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListTransactionsByUser returns transactions where the user is buyer or seller
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txns,
		"SELECT "+transactionColumns+" FROM transactions WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at DESC",
		userID)
	return txns, err
}

// ListTransactions returns every transaction, newest first
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txns,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY created_at DESC")
	return txns, err
}

// UpdateTransactionStatus moves a transaction from one status to another.
// Returns ErrStaleState if the stored status is no longer from.
func (s *Store) UpdateTransactionStatus(ctx context.Context, txn *models.Transaction, from models.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $1, tracking_code = $2, dispute_reason = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &txn.UpdatedAt, query,
		txn.Status, txn.TrackingCode, txn.DisputeReason, txn.ID, from)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %s: %w", txn.ID, ErrStaleState)
	}
	return err
}

// CancelTransaction cancels a transaction and puts its product back on sale
func (s *Store) CancelTransaction(ctx context.Context, txn *models.Transaction, from models.TransactionStatus) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &txn.UpdatedAt,
			"UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3 RETURNING updated_at",
			models.TransactionStatusCancelled, txn.ID, from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", txn.ID, ErrStaleState)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE products SET is_sold = FALSE, updated_at = NOW() WHERE id = $1", txn.ProductID)
		if err != nil {
			return fmt.Errorf("failed to relist product: %w", err)
		}
		txn.Status = models.TransactionStatusCancelled
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
