package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/config"
	"mspt-tracker/internal/domain"
	"mspt-tracker/internal/level"
)

type observationSource interface {
	QueryRankByID(ctx context.Context, accountID int64) (*domain.Result, error)
	IdsByNickname(ctx context.Context, nickname string) ([]int64, error)
}

type serverSource interface {
	FetchAccountInfo(ctx context.Context, accountID int64) (*api.AccountInfo, error)
}

type statsSource interface {
	QueryAids(ctx context.Context, res domain.ResultSet, nickname, matchType string) []int64
	QueryRank(ctx context.Context, res domain.ResultSet, accountID int64, matchType string, forceUpdate bool)
}

// Query is one resolution request. Exactly one of AccountID and Nickname is
// expected; zero preferences fall back to the configured defaults.
type Query struct {
	AccountID int64
	Nickname  string
	Prefs     domain.Preference
	MatchType string // "", "3" or "4"
	Refresh   bool
}

// Resolver orchestrates the three sources according to the querying
// preferences, owning the dedup/merge/fallback policy.
type Resolver struct {
	obs    observationSource
	server serverSource
	stats  statsSource
	cfg    *config.Config
	logger zerolog.Logger
}

func NewResolver(obs *ObservationService, server *api.MajsoulClient, stats *StatsService, cfg *config.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{obs: obs, server: server, stats: stats, cfg: cfg, logger: logger}
}

func (r *Resolver) withDefaults(prefs domain.Preference) domain.Preference {
	if prefs.AidQuerying == "" {
		prefs.AidQuerying = r.cfg.AidQueryingPreference
	}
	if prefs.RankQuerying == "" {
		prefs.RankQuerying = r.cfg.RankQueryingPreference
	}
	return prefs
}

// Resolve answers either "what is this account's rank" or "which accounts
// match this nickname, and what are their ranks". Source failures degrade to
// absent results; an error is returned only for invalid input.
func (r *Resolver) Resolve(ctx context.Context, q Query) (domain.ResultSet, error) {
	qid, _ := gonanoid.New(8)
	logger := r.logger.With().Str("query_id", qid).Logger()

	res := domain.ResultSet{}
	prefs := r.withDefaults(q.Prefs)

	switch {
	case q.AccountID != 0:
		r.resolveByID(ctx, logger, res, q.AccountID, prefs, q.MatchType, q.Refresh)
	case q.Nickname != "":
		r.resolveByNickname(ctx, logger, res, q.Nickname, prefs, q.MatchType, q.Refresh)
	default:
		return nil, fmt.Errorf("either an account id or a nickname is required")
	}

	return res, nil
}

// resolveByID runs the id→rank fallback chain. The observation store is
// cheapest and freshest, so it short-circuits on success; the server is
// authoritative and also short-circuits; the stats service is the last
// resort and merges whatever it can.
func (r *Resolver) resolveByID(ctx context.Context, logger zerolog.Logger, res domain.ResultSet, accountID int64, prefs domain.Preference, matchType string, refresh bool) {
	if prefs.RankQuerying == domain.PrefDatabase {
		result, err := r.obs.QueryRankByID(ctx, accountID)
		if err != nil {
			logger.Debug().Err(err).Int64("account_id", accountID).
				Msg("observation store failed, falling back to server")
		} else if result != nil {
			res[accountID] = result
			return
		} else {
			logger.Debug().Int64("account_id", accountID).
				Msg("no observed match, falling back to server")
		}
	}

	if prefs.RankQuerying == domain.PrefDatabase || prefs.RankQuerying == domain.PrefServer {
		info, err := r.server.FetchAccountInfo(ctx, accountID)
		if err != nil || info == nil {
			logger.Debug().Err(err).Int64("account_id", accountID).
				Msg("server failed, falling back to sapk")
		} else {
			lv4, lv3 := info.Level, info.Level3
			res[accountID] = &domain.Result{
				AccountID: info.AccountID,
				Nickname:  info.Nickname,
				M4:        level.Format(lv4.ID, lv4.Score, lv4.Delta),
				M3:        level.Format(lv3.ID, lv3.Score, lv3.Delta),
				Raw4:      &lv4,
				Raw3:      &lv3,
				Src:       domain.SourceServer,
			}
			return
		}
	}

	r.stats.QueryRank(ctx, res, accountID, matchType, refresh)
}

// resolveByNickname turns the nickname into candidate account ids, then runs
// the id→rank chain for each id sequentially.
func (r *Resolver) resolveByNickname(ctx context.Context, logger zerolog.Logger, res domain.ResultSet, nickname string, prefs domain.Preference, matchType string, refresh bool) {
	var aids []int64
	if prefs.AidQuerying == domain.PrefDatabase {
		ids, err := r.obs.IdsByNickname(ctx, nickname)
		if err != nil {
			logger.Debug().Err(err).Str("nickname", nickname).Msg("identity index failed")
		} else {
			aids = ids
		}
		logger.Debug().Str("nickname", nickname).Ints64("account_ids", aids).
			Msg("queried ids from observation store")
	}

	if len(aids) == 0 {
		found := r.stats.QueryAids(ctx, res, nickname, matchType)
		aids = unionIDs(aids, found)
		logger.Debug().Str("nickname", nickname).Ints64("account_ids", aids).
			Msg("queried ids from sapk")
	}

	for _, aid := range aids {
		r.resolveByID(ctx, logger, res, aid, prefs, matchType, refresh)
	}
}

// unionIDs appends b to a, dropping duplicates and preserving order.
func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
