package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/shared"
	"golang.org/x/oauth2"
)

// AccountRepository persists user accounts and their OAuth tokens.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a generated ID when none is provided.
func (r *AccountRepository) Create(account *models.Account) error {
	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if account.ID == "" {
		account.ID = shared.GenerateID()
	}
	account.Sequence = sequence

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, sequence, display_name, access_token, refresh_token, token_type, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		account.ID,
		account.Sequence,
		account.DisplayName,
		account.AccessToken,
		account.RefreshToken,
		account.TokenType,
		nullableTime(account.TokenExpiry),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	query := `
		SELECT id, sequence, display_name, access_token, refresh_token, token_type, token_expiry, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`

	var (
		account models.Account
		expiry  sql.NullTime
	)

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.Sequence,
		&account.DisplayName,
		&account.AccessToken,
		&account.RefreshToken,
		&account.TokenType,
		&expiry,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if expiry.Valid {
		account.TokenExpiry = expiry.Time
	}

	return &account, nil
}

// SaveToken stores the user's OAuth token, creating the account on first use.
func (r *AccountRepository) SaveToken(userID string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token is nil", shared.ErrInvalidArgument)
	}

	if _, err := r.Get(userID); err != nil {
		account := &models.Account{ID: userID}
		if err := r.Create(account); err != nil {
			return err
		}
	}

	query := `
		UPDATE accounts
		SET access_token = ?, refresh_token = ?, token_type = ?, token_expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		nullableTime(token.Expiry),
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, userID)
	}

	return nil
}

// Token returns the user's stored OAuth token.
//
// Returns [shared.ErrNoTokens] when the account is missing or holds no
// credentials.
func (r *AccountRepository) Token(userID string) (*oauth2.Token, error) {
	account, err := r.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoTokens, userID)
	}

	if account.AccessToken == "" && account.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoTokens, userID)
	}

	return &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    account.TokenType,
		Expiry:       account.TokenExpiry,
	}, nil
}

// nullableTime converts a zero time to a SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
