package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"balmar-shop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	outcome VerificationOutcome
	err     error
}

func (v stubVerifier) Verify(context.Context, *models.User) (VerificationOutcome, error) {
	return v.outcome, v.err
}

func newKYCFixture(v Verifier, timeout time.Duration) (*KYCService, *mockUserStore, *mockEventLog, *mockCache, *mockPublisher) {
	users := &mockUserStore{}
	events := &mockEventLog{}
	cache := &mockCache{}
	pub := &mockPublisher{}
	return NewKYCService(users, events, cache, pub, v, timeout), users, events, cache, pub
}

func TestSimulatedVerifierApprovesAfterDelay(t *testing.T) {
	v := SimulatedVerifier{Delay: 10 * time.Millisecond}

	start := time.Now()
	outcome, err := v.Verify(context.Background(), newUser("u1", 50))
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSimulatedVerifierHonoursCancellation(t *testing.T) {
	v := SimulatedVerifier{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := v.Verify(ctx, newUser("u1", 50))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeInconclusive, outcome)
}

func TestVerifyUserIdentityUpgradesToBiometric(t *testing.T) {
	svc, users, _, _, pub := newKYCFixture(stubVerifier{outcome: OutcomeVerified}, time.Second)
	user := &models.User{ID: "u1", AverageRating: 4, SuccessfulTransactions: 2, VerificationLevel: models.VerificationBasic}
	users.On("GetUserByID", anyCtx, "u1").Return(user, nil)
	users.On("UpdateUserReputation", anyCtx, "u1").Return(user, nil)
	pub.On("PublishUserVerified", anyCtx, mock.MatchedBy(func(e *models.UserVerifiedEvent) bool {
		return e.UserID == "u1" && e.TrustScore == 70
	})).Return(nil)

	ok, err := svc.VerifyUserIdentity(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.VerificationBiometric, user.VerificationLevel)
	// 0.6*80 + 0.2*10 + 0.2*100 = 70
	assert.Equal(t, 70, user.TrustScore)
	pub.AssertExpectations(t)
}

// ratingDuringCheck records a new review on the stored row while the provider works
type ratingDuringCheck struct {
	row *models.User
}

func (v ratingDuringCheck) Verify(context.Context, *models.User) (VerificationOutcome, error) {
	v.row.ReviewsCount = 2
	v.row.AverageRating = 4.5
	return OutcomeVerified, nil
}

func TestVerifyUserIdentityKeepsRatingsReceivedDuringCheck(t *testing.T) {
	row := &models.User{ID: "u1", AverageRating: 4, ReviewsCount: 1, VerificationLevel: models.VerificationBasic}
	snapshot := *row
	svc, users, _, _, pub := newKYCFixture(ratingDuringCheck{row: row}, time.Second)
	users.On("GetUserByID", anyCtx, "u1").Return(&snapshot, nil)
	users.On("UpdateUserReputation", anyCtx, "u1").Return(row, nil)
	pub.On("PublishUserVerified", anyCtx, mock.MatchedBy(func(e *models.UserVerifiedEvent) bool {
		return e.TrustScore == 74
	})).Return(nil)

	ok, err := svc.VerifyUserIdentity(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, row.ReviewsCount)
	assert.Equal(t, 4.5, row.AverageRating)
	assert.Equal(t, models.VerificationBiometric, row.VerificationLevel)
	// 0.6*90 + 0 + 0.2*100 = 74
	assert.Equal(t, 74, row.TrustScore)
	pub.AssertExpectations(t)
}

func TestVerifyUserIdentityRejected(t *testing.T) {
	svc, users, _, _, _ := newKYCFixture(stubVerifier{outcome: OutcomeRejected}, time.Second)
	users.On("GetUserByID", anyCtx, "u1").Return(newUser("u1", 50), nil)

	ok, err := svc.VerifyUserIdentity(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	users.AssertNotCalled(t, "UpdateUserReputation", mock.Anything, mock.Anything)
}

func TestVerifyUserIdentityTimesOut(t *testing.T) {
	svc, users, _, _, _ := newKYCFixture(SimulatedVerifier{Delay: time.Hour}, 20*time.Millisecond)
	users.On("GetUserByID", anyCtx, "u1").Return(newUser("u1", 50), nil)

	ok, err := svc.VerifyUserIdentity(context.Background(), "u1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandleVerificationRequestedReleasesLock(t *testing.T) {
	svc, users, events, cache, pub := newKYCFixture(stubVerifier{outcome: OutcomeVerified}, time.Second)
	user := newUser("u1", 50)
	event := &models.KYCRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeKYCRequested},
		UserID:    "u1",
	}
	events.On("IsEventProcessed", anyCtx, "e1").Return(false, nil)
	events.On("MarkEventProcessed", anyCtx, "e1", models.EventTypeKYCRequested).Return(nil)
	users.On("GetUserByID", anyCtx, "u1").Return(user, nil)
	users.On("UpdateUserReputation", anyCtx, "u1").Return(user, nil)
	pub.On("PublishUserVerified", anyCtx, mock.Anything).Return(nil)
	cache.On("ReleaseLock", anyCtx, "kyc:u1").Return(nil)

	require.NoError(t, svc.HandleVerificationRequested(context.Background(), event))
	events.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestHandleVerificationRequestedSkipsDuplicates(t *testing.T) {
	svc, users, events, _, _ := newKYCFixture(stubVerifier{outcome: OutcomeVerified}, time.Second)
	events.On("IsEventProcessed", anyCtx, "e1").Return(true, nil)

	err := svc.HandleVerificationRequested(context.Background(), &models.KYCRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1"}, UserID: "u1",
	})
	require.NoError(t, err)
	users.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestHandleVerificationRequestedLeavesFailuresUnmarked(t *testing.T) {
	svc, users, events, cache, _ := newKYCFixture(stubVerifier{err: errors.New("provider down")}, time.Second)
	events.On("IsEventProcessed", anyCtx, "e1").Return(false, nil)
	users.On("GetUserByID", anyCtx, "u1").Return(newUser("u1", 50), nil)
	cache.On("ReleaseLock", anyCtx, "kyc:u1").Return(nil)

	err := svc.HandleVerificationRequested(context.Background(), &models.KYCRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1"}, UserID: "u1",
	})
	assert.ErrorContains(t, err, "provider down")
	events.AssertNotCalled(t, "MarkEventProcessed", mock.Anything, mock.Anything, mock.Anything)
}
