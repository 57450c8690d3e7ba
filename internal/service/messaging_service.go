package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"balmar-shop/internal/models"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	offerAcceptedText = "Offre acceptée ! Vous pouvez procéder au paiement."
	offerRejectedText = "Offre refusée."
)

// MessagingService runs buyer/seller conversations and price offers
type MessagingService struct {
	messages MessageStore
	products ProductStore
	bus      MessageBus
	logger   *zap.Logger
}

// NewMessagingService creates a new messaging service
func NewMessagingService(messages MessageStore, products ProductStore, bus MessageBus) *MessagingService {
	return &MessagingService{
		messages: messages,
		products: products,
		bus:      bus,
		logger:   util.GetLogger(),
	}
}

// SendMessageRequest represents a chat message or a price offer
type SendMessageRequest struct {
	ConversationID string `json:"-"`
	SenderID       string `json:"-"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	OfferAmount    *int64 `json:"offer_amount,omitempty"`
}

// StartConversation opens the buyer's thread about a product, reusing an existing one
func (s *MessagingService) StartConversation(ctx context.Context, buyerID, productID string) (*models.Conversation, error) {
	ctx, span := util.StartSpan(ctx, "MessagingService.StartConversation")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID == buyerID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}

	existing, err := s.messages.FindConversation(ctx, buyerID, product.SellerID, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		ProductID: productID,
	}
	if err := s.messages.CreateConversation(ctx, conv); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to create conversation: %w", err))
	}
	return conv, nil
}

// ListConversations returns the user's threads, most recently active first
func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.messages.ListConversationsByUser(ctx, userID)
}

// Messages returns a thread's messages oldest first and marks them read for userID
func (s *MessagingService) Messages(ctx context.Context, conversationID, userID string) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.messages.MarkConversationRead(ctx, conversationID, userID); err != nil {
		s.logger.Warn("Failed to mark conversation read",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
	return msgs, nil
}

// Subscribable reports whether userID may follow the live feed of a conversation
func (s *MessagingService) Subscribable(ctx context.Context, conversationID, userID string) error {
	_, err := s.participantConversation(ctx, conversationID, userID)
	return err
}

// SendMessage posts a text message or a pending offer
func (s *MessagingService) SendMessage(ctx context.Context, req *SendMessageRequest) (*models.Message, error) {
	ctx, span := util.StartSpan(ctx, "MessagingService.SendMessage")
	defer span.End()

	if _, err := s.participantConversation(ctx, req.ConversationID, req.SenderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Content:        strings.TrimSpace(req.Content),
		Type:           req.Type,
	}

	switch req.Type {
	case "", models.MessageTypeText:
		msg.Type = models.MessageTypeText
		if msg.Content == "" {
			return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
		}
	case models.MessageTypeOffer:
		if req.OfferAmount == nil || *req.OfferAmount <= 0 {
			return nil, fmt.Errorf("%w: offer amount must be positive", ErrInvalidInput)
		}
		amount := *req.OfferAmount
		pending := models.OfferStatusPending
		msg.OfferAmount = &amount
		msg.OfferStatus = &pending
		if msg.Content == "" {
			msg.Content = fmt.Sprintf("Je vous propose une offre de %d MAD", amount)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported message type %q", ErrInvalidInput, req.Type)
	}

	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to send message: %w", err))
	}

	util.MessagesSentTotal.WithLabelValues(msg.Type).Inc()
	s.broadcast(ctx, msg)
	return msg, nil
}

// RespondToOffer accepts or rejects a pending offer and posts a system message
// into the conversation. Only the party who did not make the offer may answer.
func (s *MessagingService) RespondToOffer(ctx context.Context, messageID, responderID, status string) (*models.Message, error) {
	ctx, span := util.StartSpan(ctx, "MessagingService.RespondToOffer")
	defer span.End()

	if status != models.OfferStatusAccepted && status != models.OfferStatusRejected {
		return nil, fmt.Errorf("%w: status must be ACCEPTED or REJECTED", ErrInvalidInput)
	}

	offer, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if offer.Type != models.MessageTypeOffer {
		return nil, fmt.Errorf("%w: message is not an offer", ErrInvalidInput)
	}
	if _, err := s.participantConversation(ctx, offer.ConversationID, responderID); err != nil {
		return nil, err
	}
	if offer.SenderID == responderID {
		return nil, fmt.Errorf("%w: cannot answer your own offer", ErrForbidden)
	}
	if offer.OfferStatus == nil || *offer.OfferStatus != models.OfferStatusPending {
		return nil, ErrOfferNotPending
	}

	if err := s.messages.UpdateOfferStatus(ctx, messageID, status); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrOfferNotPending
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to update offer: %w", err))
	}
	offer.OfferStatus = &status
	util.OffersRespondedTotal.WithLabelValues(status).Inc()

	content := offerRejectedText
	if status == models.OfferStatusAccepted {
		content = offerAcceptedText
	}
	notice := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: offer.ConversationID,
		SenderID:       models.SystemSenderID,
		Content:        content,
		Type:           models.MessageTypeSystem,
	}
	if err := s.messages.CreateMessage(ctx, notice); err != nil {
		s.logger.Error("Failed to post offer response notice", zap.String("message_id", messageID), zap.Error(err))
	} else {
		util.MessagesSentTotal.WithLabelValues(notice.Type).Inc()
		s.broadcast(ctx, notice)
	}

	s.logger.Info("Offer answered",
		zap.String("message_id", messageID),
		zap.String("status", status))
	return offer, nil
}

// AcceptedOffer returns the amount of an accepted offer made in buyerID's
// conversation about productID
func (s *MessagingService) AcceptedOffer(ctx context.Context, messageID, buyerID, productID string) (int64, error) {
	offer, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if offer.Type != models.MessageTypeOffer || offer.OfferAmount == nil ||
		offer.OfferStatus == nil || *offer.OfferStatus != models.OfferStatusAccepted {
		return 0, fmt.Errorf("%w: offer %s is not accepted", ErrInvalidInput, messageID)
	}

	conv, err := s.messages.GetConversationByID(ctx, offer.ConversationID)
	if err != nil {
		return 0, err
	}
	if conv.BuyerID != buyerID || conv.ProductID != productID {
		return 0, fmt.Errorf("%w: offer %s does not apply to this purchase", ErrInvalidInput, messageID)
	}
	return *offer.OfferAmount, nil
}

func (s *MessagingService) participantConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.messages.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func (s *MessagingService) broadcast(ctx context.Context, msg *models.Message) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, msg.ConversationID, msg); err != nil {
		s.logger.Warn("Failed to broadcast message",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
	}
}
