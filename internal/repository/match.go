package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mspt-tracker/internal/domain"
)

// MatchRepository reads the locally replicated observation store. The upsert
// methods are the ingest surface the replication feed writes through;
// resolution itself only reads.
type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// FindLatestMatch returns the most recent observed match containing the
// account, ordered by start time descending, or nil when the account has no
// observed matches.
func (r *MatchRepository) FindLatestMatch(ctx context.Context, accountID int64) (*domain.MatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT m.uuid, m.started_at, m.player_count
		FROM matches m
		JOIN match_players mp ON mp.match_uuid = m.uuid
		WHERE mp.account_id = ?
		ORDER BY m.started_at DESC
		LIMIT 1`, accountID)

	var rec domain.MatchRecord
	err := row.Scan(&rec.UUID, &rec.StartedAt, &rec.PlayerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest match: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, nickname, seat, level_id, level_score, level3_id, level3_score
		FROM match_players
		WHERE match_uuid = ?
		ORDER BY seat`, rec.UUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.MatchSeat
		if err := rows.Scan(&p.AccountID, &p.Nickname, &p.Seat,
			&p.Level.ID, &p.Level.Score, &p.Level3.ID, &p.Level3.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match player: %w", err)
		}
		rec.Players = append(rec.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results, err := r.matchResults(ctx, rec.UUID)
	if err != nil {
		return nil, err
	}
	rec.Results = results

	return &rec, nil
}

func (r *MatchRepository) matchResults(ctx context.Context, uuid string) ([]domain.MatchResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, seat, point
		FROM match_results
		WHERE match_uuid = ?
		ORDER BY seat`, uuid)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %w", err)
	}
	defer rows.Close()

	var results []domain.MatchResult
	for rows.Next() {
		var res domain.MatchResult
		if err := rows.Scan(&res.AccountID, &res.Seat, &res.Point); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// UpsertMatch writes an observed match and its seats in one transaction.
func (r *MatchRepository) UpsertMatch(ctx context.Context, rec *domain.MatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (uuid, started_at, player_count)
		VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET started_at = excluded.started_at,
			player_count = excluded.player_count`,
		rec.UUID, rec.StartedAt, rec.PlayerCount)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", rec.UUID, err)
	}

	for _, p := range rec.Players {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_players (match_uuid, account_id, nickname, seat,
				level_id, level_score, level3_id, level3_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(match_uuid, account_id) DO UPDATE SET nickname = excluded.nickname,
				seat = excluded.seat,
				level_id = excluded.level_id, level_score = excluded.level_score,
				level3_id = excluded.level3_id, level3_score = excluded.level3_score`,
			rec.UUID, p.AccountID, p.Nickname, p.Seat,
			p.Level.ID, p.Level.Score, p.Level3.ID, p.Level3.Score)
		if err != nil {
			return fmt.Errorf("failed to upsert match player %s/%d: %w", rec.UUID, p.AccountID, err)
		}
	}

	return tx.Commit()
}

// SetMatchResults records finalized per-player points for a match.
func (r *MatchRepository) SetMatchResults(ctx context.Context, uuid string, results []domain.MatchResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, res := range results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_results (match_uuid, account_id, seat, point)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(match_uuid, account_id) DO UPDATE SET seat = excluded.seat,
				point = excluded.point`,
			uuid, res.AccountID, res.Seat, res.Point)
		if err != nil {
			return fmt.Errorf("failed to upsert match result %s/%d: %w", uuid, res.AccountID, err)
		}
	}

	return tx.Commit()
}
