package service

import (
	"context"
	"fmt"
	"time"

	"balmar-shop/internal/broker"
	"balmar-shop/internal/models"
	"balmar-shop/internal/util"

	"go.uber.org/zap"
)

// VerificationOutcome is the verdict of an identity provider
type VerificationOutcome string

const (
	OutcomeVerified     VerificationOutcome = "VERIFIED"
	OutcomeRejected     VerificationOutcome = "REJECTED"
	OutcomeInconclusive VerificationOutcome = "INCONCLUSIVE"
)

// Verifier checks a user's identity with an external provider
type Verifier interface {
	Verify(ctx context.Context, user *models.User) (VerificationOutcome, error)
}

// SimulatedVerifier approves everyone after a fixed delay
type SimulatedVerifier struct {
	Delay time.Duration
}

func (v SimulatedVerifier) Verify(ctx context.Context, _ *models.User) (VerificationOutcome, error) {
	timer := time.NewTimer(v.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return OutcomeInconclusive, ctx.Err()
	case <-timer.C:
		return OutcomeVerified, nil
	}
}

// KYCService runs identity checks and applies their result to the account
type KYCService struct {
	users     UserStore
	events    EventLog
	cache     Cache
	publisher EventPublisher
	verifier  Verifier
	timeout   time.Duration
	logger    *zap.Logger
}

// NewKYCService creates a new verification service
func NewKYCService(
	users UserStore,
	events EventLog,
	cache Cache,
	publisher EventPublisher,
	verifier Verifier,
	timeout time.Duration,
) *KYCService {
	return &KYCService{
		users:     users,
		events:    events,
		cache:     cache,
		publisher: publisher,
		verifier:  verifier,
		timeout:   timeout,
		logger:    util.GetLogger(),
	}
}

// VerifyUserIdentity asks the provider to check userID. On success the user is
// upgraded to biometric verification and their trust score recomputed.
// A rejected or inconclusive check returns false with a nil error.
func (s *KYCService) VerifyUserIdentity(ctx context.Context, userID string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "KYCService.VerifyUserIdentity")
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}

	start := time.Now()
	outcome, err := s.verifier.Verify(ctx, user)
	util.KYCLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.KYCChecksTotal.WithLabelValues("error").Inc()
		return false, util.RecordError(span, fmt.Errorf("identity check failed: %w", err))
	}
	util.KYCChecksTotal.WithLabelValues(string(outcome)).Inc()

	if outcome != OutcomeVerified {
		s.logger.Warn("Identity not verified",
			zap.String("user_id", userID),
			zap.String("outcome", string(outcome)))
		return false, nil
	}

	// applied to the current row, not the snapshot handed to the provider
	user, err = s.users.UpdateUserReputation(ctx, userID, func(u *models.User) error {
		u.VerificationLevel = models.VerificationBiometric
		refreshTrustScore(u, TriggerKYC)
		return nil
	})
	if err != nil {
		return false, util.RecordError(span, fmt.Errorf("failed to save verification: %w", err))
	}

	s.logger.Info("Identity verified",
		zap.String("user_id", userID),
		zap.Int("trust_score", user.TrustScore))

	event := &models.UserVerifiedEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeUserVerified),
		UserID:     userID,
		TrustScore: user.TrustScore,
	}
	if err := s.publisher.PublishUserVerified(ctx, event); err != nil {
		s.logger.Error("Failed to publish UserVerified event", zap.Error(err))
	}
	return true, nil
}

// HandleVerificationRequested consumes KYC_REQUESTED events. Redelivered
// events are skipped; the in-flight lock is released once the check ran.
func (s *KYCService) HandleVerificationRequested(ctx context.Context, event *models.KYCRequestedEvent) error {
	processed, err := s.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check idempotency: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	defer func() {
		if err := s.cache.ReleaseLock(ctx, kycLockKey(event.UserID)); err != nil {
			s.logger.Warn("Failed to release verification lock", zap.String("user_id", event.UserID), zap.Error(err))
		}
	}()

	if _, err := s.VerifyUserIdentity(ctx, event.UserID); err != nil {
		return err
	}

	return s.events.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
