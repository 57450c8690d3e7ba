package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"balmar-shop/internal/models"

	"github.com/jmoiron/sqlx"
)

// FindConversation returns the thread for a buyer, seller and product, or nil
func (s *Store) FindConversation(ctx context.Context, buyerID, sellerID, productID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.GetContext(ctx, &conv,
		"SELECT * FROM conversations WHERE buyer_id = $1 AND seller_id = $2 AND product_id = $3",
		buyerID, sellerID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation inserts a thread, returning the existing one on a duplicate
func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, buyer_id, seller_id, product_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id, seller_id, product_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING *`

	return s.db.GetContext(ctx, conv, query, conv.ID, conv.BuyerID, conv.SellerID, conv.ProductID)
}

// GetConversationByID retrieves a conversation by ID
func (s *Store) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.GetContext(ctx, &conv, "SELECT * FROM conversations WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "conversation", id)
	}
	return &conv, nil
}

// ListConversationsByUser returns the user's threads, most recently active first
func (s *Store) ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	err := s.db.SelectContext(ctx, &convs,
		"SELECT * FROM conversations WHERE buyer_id = $1 OR seller_id = $1 ORDER BY updated_at DESC",
		userID)
	return convs, err
}

// CreateMessage appends a message and bumps the conversation preview
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO messages (id, conversation_id, sender_id, content, type, offer_amount, offer_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING is_read, created_at`

		if err := tx.GetContext(ctx, msg, query,
			msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.Type,
			msg.OfferAmount, msg.OfferStatus); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		_, err := tx.ExecContext(ctx,
			"UPDATE conversations SET last_message = $1, unread_count = unread_count + 1, updated_at = NOW() WHERE id = $2",
			msg.Content, msg.ConversationID)
		return err
	})
}

// GetMessageByID retrieves a message by ID
func (s *Store) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.db.GetContext(ctx, &msg, "SELECT * FROM messages WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "message", id)
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages in send order
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := s.db.SelectContext(ctx, &msgs,
		"SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC", conversationID)
	return msgs, err
}

// MarkConversationRead clears the unread counter and flags the other party's messages read
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE messages SET is_read = TRUE WHERE conversation_id = $1 AND sender_id <> $2",
			conversationID, readerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE conversations SET unread_count = 0 WHERE id = $1", conversationID)
		return err
	})
}

// UpdateOfferStatus resolves a pending offer. Returns ErrStaleState if it was already answered.
func (s *Store) UpdateOfferStatus(ctx context.Context, messageID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET offer_status = $1 WHERE id = $2 AND type = $3 AND offer_status = $4",
		status, messageID, models.MessageTypeOffer, models.OfferStatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s: %w", messageID, ErrStaleState)
	}
	return nil
}
