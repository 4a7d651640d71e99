package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/repository"
)

const (
	UserResource = "user"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetUserIDByWallet retrieves a user ID by wallet address.
func (r *UserRepository) GetUserIDByWallet(ctx context.Context, walletAddress string) (uuid.UUID, error) {
	if walletAddress == "" {
		return uuid.Nil, fmt.Errorf("wallet address cannot be empty")
	}

	const query = `SELECT id FROM users WHERE wallet_address = $1`

	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, query, walletAddress).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, &repository.NotFoundError{
				Resource: UserResource,
				Key:      "wallet_address",
				Value:    walletAddress,
			}
		}
		return uuid.Nil, fmt.Errorf("query user ID by wallet %s: %w", walletAddress, err)
	}

	return userID, nil
}

// GetUserSummary retrieves the denormalized user slice used in order
// responses and listings.
func (r *UserRepository) GetUserSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	const query = `
SELECT id, name, username, wallet_address, avatar_url, rating, is_verified
FROM users
WHERE id = $1`

	var summary domain.UserSummary
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&summary.ID,
		&summary.Name,
		&summary.Username,
		&summary.WalletAddress,
		&summary.AvatarURL,
		&summary.Rating,
		&summary.IsVerified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &repository.NotFoundError{
				Resource: UserResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return nil, fmt.Errorf("query summary for user %s: %w", id, err)
	}

	return &summary, nil
}

// GetUserRole retrieves the role of a user for permission checks.
func (r *UserRepository) GetUserRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	const query = `SELECT role FROM users WHERE id = $1`

	var role domain.Role
	err := r.pool.QueryRow(ctx, query, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &repository.NotFoundError{
				Resource: UserResource,
				Key:      "id",
				Value:    id.String(),
			}
		}
		return "", fmt.Errorf("query role for user %s: %w", id, err)
	}

	return role, nil
}

// UsernameExists reports whether a username is already taken, compared
// case-insensitively against the stored lowercase canonical form.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, strings.ToLower(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username %s: %w", username, err)
	}

	return exists, nil
}
