package store

import (
	"context"
	"fmt"

	"balmar-shop/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, avatar, location, trust_score, verification_level,
			average_rating, reviews_count, successful_transactions, following)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if user.Following == nil {
		user.Following = []string{}
	}
	return s.db.GetContext(ctx, user, query,
		user.ID, user.Name, user.Email, user.Avatar, user.Location, user.TrustScore,
		user.VerificationLevel, user.AverageRating, user.ReviewsCount,
		user.SuccessfulTransactions, user.Following)
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// UpdateUserProfile updates the editable profile fields
func (s *Store) UpdateUserProfile(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = $1, avatar = $2, location = $3, updated_at = NOW() WHERE id = $4",
		user.Name, user.Avatar, user.Location, user.ID)
	return expectOneRow(res, err, "user", user.ID)
}

// UpdateUserReputation locks the user row, lets apply change it and saves the
// rating, history, verification and trust score columns in the same transaction.
func (s *Store) UpdateUserReputation(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error) {
	var user models.User
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1 FOR UPDATE", id); err != nil {
			return notFound(err, "user", id)
		}
		if err := apply(&user); err != nil {
			return err
		}

		query := `
			UPDATE users
			SET trust_score = $1, verification_level = $2, average_rating = $3,
				reviews_count = $4, successful_transactions = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING updated_at`

		return tx.GetContext(ctx, &user.UpdatedAt, query,
			user.TrustScore, user.VerificationLevel, user.AverageRating,
			user.ReviewsCount, user.SuccessfulTransactions, user.ID)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user. Returns ErrInUse while the user still owns
// listings, transactions or conversations.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return expectOneRow(res, referenced(err, "user", id), "user", id)
}

// AddFollowing appends sellerID to the user's following list once
func (s *Store) AddFollowing(ctx context.Context, userID, sellerID string) error {
	query := `
		UPDATE users
		SET following = array_append(following, $1), updated_at = NOW()
		WHERE id = $2 AND NOT ($1 = ANY(following))`

	res, err := s.db.ExecContext(ctx, query, sellerID, userID)
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// either already following or the user is gone
		if _, err := s.GetUserByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// GetFollowers returns the users following sellerID
func (s *Store) GetFollowers(ctx context.Context, sellerID string) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT * FROM users WHERE $1 = ANY(following)", sellerID)
	return users, err
}
