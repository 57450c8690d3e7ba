package service

import (
	"context"
	"fmt"

	"balmar-shop/internal/models"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService turns domain events into in-app notifications
type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	events        EventLog
	logger        *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications NotificationStore, users UserStore, events EventLog) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		events:        events,
		logger:        util.GetLogger(),
	}
}

// HandleTransactionCreated tells the seller about a new order
func (ns *NotificationService) HandleTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleTransactionCreated")
	defer span.End()

	return ns.once(ctx, event.BaseEvent, func() error {
		return ns.notify(ctx, &models.Notification{
			UserID:  event.SellerID,
			Title:   "Nouvelle commande",
			Message: fmt.Sprintf("Un acheteur a commandé votre article (%d MAD).", event.Amounts.Total),
			Type:    models.NotificationTypeOrder,
			Link:    "/transactions/" + event.TransactionID,
		})
	})
}

// HandleTransactionStatusChanged tells the counterpart of the actor about the new status
func (ns *NotificationService) HandleTransactionStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleTransactionStatusChanged")
	defer span.End()

	recipients := []string{event.BuyerID, event.SellerID}
	switch event.ActorID {
	case event.BuyerID:
		recipients = []string{event.SellerID}
	case event.SellerID:
		recipients = []string{event.BuyerID}
	}

	return ns.once(ctx, event.BaseEvent, func() error {
		for _, userID := range recipients {
			err := ns.notify(ctx, &models.Notification{
				UserID:  userID,
				Title:   "Commande mise à jour",
				Message: fmt.Sprintf("Votre commande est passée de %s à %s.", event.From, event.To),
				Type:    models.NotificationTypeOrder,
				Link:    "/transactions/" + event.TransactionID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// HandleProductListed tells the seller's followers about a new listing
func (ns *NotificationService) HandleProductListed(ctx context.Context, event *models.ProductListedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleProductListed")
	defer span.End()

	return ns.once(ctx, event.BaseEvent, func() error {
		followers, err := ns.users.GetFollowers(ctx, event.SellerID)
		if err != nil {
			return fmt.Errorf("failed to load followers: %w", err)
		}

		for _, follower := range followers {
			err := ns.notify(ctx, &models.Notification{
				UserID:  follower.ID,
				Title:   fmt.Sprintf("Nouveauté chez %s", event.SellerName),
				Message: fmt.Sprintf("%s a publié un nouvel article : %q", event.SellerName, event.Title),
				Type:    models.NotificationTypeNewPost,
				Link:    "/product/" + event.ProductID,
			})
			if err != nil {
				return err
			}
		}

		ns.logger.Info("Followers notified",
			zap.String("product_id", event.ProductID),
			zap.Int("count", len(followers)))
		return nil
	})
}

// HandleUserVerified confirms a successful identity check to the user
func (ns *NotificationService) HandleUserVerified(ctx context.Context, event *models.UserVerifiedEvent) error {
	return ns.once(ctx, event.BaseEvent, func() error {
		return ns.notify(ctx, &models.Notification{
			UserID:  event.UserID,
			Title:   "Identité vérifiée",
			Message: fmt.Sprintf("Votre score de confiance est maintenant de %d.", event.TrustScore),
			Type:    models.NotificationTypeSystem,
		})
	})
}

// once runs fn unless the event was already handled, then records it
func (ns *NotificationService) once(ctx context.Context, event models.BaseEvent, fn func() error) error {
	processed, err := ns.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ns.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	if err := fn(); err != nil {
		return err
	}

	if err := ns.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ns.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

func (ns *NotificationService) notify(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New().String()
	if err := ns.notifications.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	util.NotificationsCreatedTotal.WithLabelValues(n.Type).Inc()
	return nil
}
