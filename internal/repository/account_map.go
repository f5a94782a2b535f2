package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AccountMapRepository is the identity index binding nicknames to account
// ids, refreshed opportunistically from search results.
type AccountMapRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAccountMapRepository(sqlDB *sql.DB, logger zerolog.Logger) *AccountMapRepository {
	return &AccountMapRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// IdsByNickname returns every account id currently bound to the nickname.
func (r *AccountMapRepository) IdsByNickname(ctx context.Context, nickname string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id FROM account_map WHERE nickname = ? ORDER BY account_id`, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to query account map: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert binds an account id to a nickname, replacing any previous binding
// for that id.
func (r *AccountMapRepository) Upsert(ctx context.Context, accountID int64, nickname string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_map (account_id, nickname, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET nickname = excluded.nickname,
			updated_at = excluded.updated_at`,
		accountID, nickname, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert account map %d: %w", accountID, err)
	}
	return nil
}
