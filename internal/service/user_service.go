package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"balmar-shop/internal/broker"
	"balmar-shop/internal/models"
	"balmar-shop/internal/rules"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Trust recompute triggers, used as metric labels
const (
	TriggerRating     = "rating"
	TriggerCompletion = "completion"
	TriggerKYC        = "kyc"
	TriggerManual     = "manual"
)

// refreshTrustScore recomputes and stores the user's score in place
func refreshTrustScore(user *models.User, trigger string) rules.TrustScore {
	ts := rules.CalculateTrustScore(user)
	user.TrustScore = ts.Score
	util.TrustScoreRecomputedTotal.WithLabelValues(trigger).Inc()
	return ts
}

func kycLockKey(userID string) string {
	return "kyc:" + userID
}

// UserService manages accounts, reputation and follows
type UserService struct {
	users         UserStore
	notifications NotificationStore
	cache         Cache
	publisher     EventPublisher
	kycLockTTL    time.Duration
	logger        *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users UserStore,
	notifications NotificationStore,
	cache Cache,
	publisher EventPublisher,
	kycLockTTL time.Duration,
) *UserService {
	return &UserService{
		users:         users,
		notifications: notifications,
		cache:         cache,
		publisher:     publisher,
		kycLockTTL:    kycLockTTL,
		logger:        util.GetLogger(),
	}
}

// RegisterRequest represents a signup
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Location string `json:"location"`
}

// UpdateProfileRequest carries the editable profile fields; nil means unchanged
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Location *string `json:"location"`
}

// Register creates a user with the neutral trust score and basic verification
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	user := &models.User{
		ID:                uuid.New().String(),
		Name:              name,
		Email:             strings.TrimSpace(req.Email),
		Avatar:            req.Avatar,
		Location:          req.Location,
		TrustScore:        rules.NeutralTrustScore,
		VerificationLevel: models.VerificationBasic,
		Following:         []string{},
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to create user: %w", err))
	}

	welcome := &models.Notification{
		ID:      uuid.New().String(),
		UserID:  user.ID,
		Title:   "Bienvenue !",
		Message: "Remplissez votre profil.",
		Type:    models.NotificationTypeSystem,
	}
	if err := s.notifications.CreateNotification(ctx, welcome); err != nil {
		s.logger.Warn("Failed to create welcome notification", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// UpdateProfile changes name, avatar or location
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.UpdateProfile")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		user.Name = name
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Location != nil {
		user.Location = *req.Location
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to update profile: %w", err))
	}
	return user, nil
}

// DeleteUser removes an account
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("User deleted", zap.String("user_id", userID))
	return nil
}

// RateSeller folds a 1-5 star rating into the seller's running average
// (rounded to one decimal) and recomputes their trust score.
func (s *UserService) RateSeller(ctx context.Context, raterID, sellerID string, rating int) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.RateSeller")
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if raterID == sellerID {
		return nil, fmt.Errorf("%w: cannot rate yourself", ErrInvalidInput)
	}

	seller, err := s.users.UpdateUserReputation(ctx, sellerID, func(u *models.User) error {
		count := decimal.NewFromInt(int64(u.ReviewsCount))
		total := decimal.NewFromFloat(u.AverageRating).Mul(count).Add(decimal.NewFromInt(int64(rating)))
		u.AverageRating = total.Div(count.Add(decimal.NewFromInt(1))).Round(1).InexactFloat64()
		u.ReviewsCount++
		refreshTrustScore(u, TriggerRating)
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to save rating: %w", err))
	}

	s.logger.Info("Seller rated",
		zap.String("seller_id", sellerID),
		zap.Int("rating", rating),
		zap.Float64("average", seller.AverageRating),
		zap.Int("trust_score", seller.TrustScore))
	return seller, nil
}

// RecomputeTrustScore recalculates a user's score from their current signals
func (s *UserService) RecomputeTrustScore(ctx context.Context, userID string) (*models.User, rules.TrustScore, error) {
	var ts rules.TrustScore
	user, err := s.users.UpdateUserReputation(ctx, userID, func(u *models.User) error {
		ts = refreshTrustScore(u, TriggerManual)
		return nil
	})
	if err != nil {
		return nil, rules.TrustScore{}, fmt.Errorf("failed to save trust score: %w", err)
	}
	return user, ts, nil
}

// OverrideTrustScore sets a score directly. Reserved to administrators.
func (s *UserService) OverrideTrustScore(ctx context.Context, userID string, score int) (*models.User, error) {
	if score < 0 || score > rules.MaxTrustScore {
		return nil, fmt.Errorf("%w: trust score must be between 0 and %d", ErrInvalidInput, rules.MaxTrustScore)
	}

	var previous int
	user, err := s.users.UpdateUserReputation(ctx, userID, func(u *models.User) error {
		previous = u.TrustScore
		u.TrustScore = score
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save trust score: %w", err)
	}

	s.logger.Warn("Trust score overridden",
		zap.String("user_id", userID),
		zap.Int("from", previous),
		zap.Int("to", score))
	return user, nil
}

// Follow subscribes userID to a seller's new listings
func (s *UserService) Follow(ctx context.Context, userID, sellerID string) error {
	if userID == sellerID {
		return fmt.Errorf("%w: cannot follow yourself", ErrInvalidInput)
	}
	if _, err := s.users.GetUserByID(ctx, sellerID); err != nil {
		return err
	}
	return s.users.AddFollowing(ctx, userID, sellerID)
}

// Notifications lists a user's notifications, newest first
func (s *UserService) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifications.ListNotifications(ctx, userID)
}

// MarkNotificationRead flags one notification as read
func (s *UserService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.notifications.MarkNotificationRead(ctx, notificationID, userID)
}

// RequestVerification queues an identity check. Only one check per user can be in flight.
func (s *UserService) RequestVerification(ctx context.Context, userID string) error {
	ctx, span := util.StartSpan(ctx, "UserService.RequestVerification")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.VerificationLevel == models.VerificationBiometric {
		return fmt.Errorf("%w: user is already verified", ErrInvalidInput)
	}

	acquired, err := s.cache.AcquireLock(ctx, kycLockKey(userID), s.kycLockTTL)
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to acquire verification lock: %w", err))
	}
	if !acquired {
		return ErrKYCInProgress
	}

	event := &models.KYCRequestedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeKYCRequested),
		UserID:    userID,
	}
	if err := s.publisher.PublishKYCRequested(ctx, event); err != nil {
		if relErr := s.cache.ReleaseLock(ctx, kycLockKey(userID)); relErr != nil {
			s.logger.Error("Failed to release verification lock", zap.String("user_id", userID), zap.Error(relErr))
		}
		return util.RecordError(span, fmt.Errorf("failed to queue verification: %w", err))
	}

	s.logger.Info("Verification requested", zap.String("user_id", userID))
	return nil
}
