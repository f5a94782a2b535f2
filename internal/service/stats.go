package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/constants"
	"mspt-tracker/internal/domain"
	"mspt-tracker/internal/level"
	"mspt-tracker/internal/repository"
)

type sapkSource interface {
	SearchPlayer(ctx context.Context, mode int, nickname string) ([]api.SapkPlayer, error)
	PlayerStats(ctx context.Context, mode int, accountID int64) (*api.SapkStats, error)
}

type accountMapWriter interface {
	Upsert(ctx context.Context, accountID int64, nickname string) error
}

// StatsService merges third-party statistics lookups into a ResultSet. The
// two game-mode endpoints are queried independently; either one failing
// never stops the other.
type StatsService struct {
	sapk       sapkSource
	accountMap accountMapWriter
	logger     zerolog.Logger
}

func NewStatsService(sapk *api.SapkClient, accountMap *repository.AccountMapRepository, logger zerolog.Logger) *StatsService {
	return &StatsService{sapk: sapk, accountMap: accountMap, logger: logger}
}

// modesToQuery maps a matchType filter to the game-mode endpoints to hit.
func modesToQuery(matchType string) []int {
	switch matchType {
	case "4":
		return []int{4}
	case "3":
		return []int{3}
	default:
		return []int{4, 3}
	}
}

// QueryAids searches both game-mode endpoints for exact nickname matches,
// merges the survivors into res, and returns every account id now present.
// Candidates are kept only when their nickname, after trimming, equals the
// query exactly.
func (s *StatsService) QueryAids(ctx context.Context, res domain.ResultSet, nickname, matchType string) []int64 {
	for _, mode := range modesToQuery(matchType) {
		players, err := s.sapk.SearchPlayer(ctx, mode, nickname)
		if err != nil {
			s.logger.Debug().Err(err).Int("mode", mode).Str("nickname", nickname).
				Msg("failed to query nickname from sapk")
			continue
		}
		for _, d := range players {
			if strings.TrimSpace(d.Nickname) != nickname {
				continue
			}
			r := res.Ensure(d.ID, d.Nickname)
			lv := d.Level
			if mode == 4 {
				r.M4 = level.Format(lv.ID, lv.Score, lv.Delta)
				r.Raw4 = &lv
			} else {
				r.M3 = level.Format(lv.ID, lv.Score, lv.Delta)
				r.Raw3 = &lv
			}
			r.Src = domain.SourceSapk
		}
	}

	s.pushAccountMap(res)

	ids := make([]int64, 0, len(res))
	for id := range res {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// pushAccountMap records every discovered (id, nickname) pair in the identity
// index for future fast lookups. Fire-and-forget.
func (s *StatsService) pushAccountMap(res domain.ResultSet) {
	type pair struct {
		id       int64
		nickname string
	}
	pairs := make([]pair, 0, len(res))
	for _, r := range res {
		pairs = append(pairs, pair{id: r.AccountID, nickname: r.Nickname})
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
		defer cancel()
		for _, p := range pairs {
			if err := s.accountMap.Upsert(ctx, p.id, p.nickname); err != nil {
				return err
			}
		}
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to update account map")
		}
	}()
}

// QueryRank fetches the account's rank from both game-mode endpoints and
// merges whatever succeeds into res with src sapk. An existing entry for the
// id short-circuits the whole adapter unless forceUpdate is set. An in-band
// error field from the service means "no data" for that mode.
func (s *StatsService) QueryRank(ctx context.Context, res domain.ResultSet, accountID int64, matchType string, forceUpdate bool) {
	if _, ok := res[accountID]; ok && !forceUpdate {
		return
	}

	for _, mode := range modesToQuery(matchType) {
		d, err := s.sapk.PlayerStats(ctx, mode, accountID)
		if err != nil {
			s.logger.Debug().Err(err).Int("mode", mode).Int64("account_id", accountID).
				Msg("failed to query rank from sapk")
			continue
		}
		if d == nil || d.HasError() {
			continue
		}

		r := res.Ensure(d.ID, d.Nickname)
		lv := d.Level
		if mode == 4 {
			r.M4 = level.Format(lv.ID, lv.Score, lv.Delta)
			r.Raw4 = &lv
			if d.MaxLevel != nil {
				r.HM4 = level.Format(d.MaxLevel.ID, d.MaxLevel.Score, d.MaxLevel.Delta)
			}
		} else {
			r.M3 = level.Format(lv.ID, lv.Score, lv.Delta)
			r.Raw3 = &lv
			if d.MaxLevel != nil {
				r.HM3 = level.Format(d.MaxLevel.ID, d.MaxLevel.Score, d.MaxLevel.Delta)
			}
		}
		r.Src = domain.SourceSapk
	}
}
