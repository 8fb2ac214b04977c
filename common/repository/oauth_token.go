package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/models"
)

// OAuthTokenRepository is the read-only contract over the OAuth token store
type OAuthTokenRepository struct {
	db *db.DB
}

// NewOAuthTokenRepository creates a new OAuth token repository
func NewOAuthTokenRepository(database *db.DB) *OAuthTokenRepository {
	return &OAuthTokenRepository{db: database}
}

// GetActive returns the active token for (user, provider)
func (r *OAuthTokenRepository) GetActive(ctx context.Context, userID, provider string) (*models.OAuthToken, error) {
	query := `
		SELECT user_id, provider, access_token, credential_data, is_active
		FROM oauth_token
		WHERE user_id = $1 AND provider = $2 AND is_active
	`

	tok := &models.OAuthToken{}
	err := r.db.QueryRow(ctx, query, userID, provider).Scan(
		&tok.UserID,
		&tok.Provider,
		&tok.AccessToken,
		&tok.CredentialData,
		&tok.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	return tok, nil
}
