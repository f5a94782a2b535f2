package service

import (
	"context"

	"github.com/rs/zerolog"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/constants"
	"mspt-tracker/internal/domain"
	"mspt-tracker/internal/level"
	"mspt-tracker/internal/repository"
)

type matchStore interface {
	FindLatestMatch(ctx context.Context, accountID int64) (*domain.MatchRecord, error)
}

type identityIndex interface {
	IdsByNickname(ctx context.Context, nickname string) ([]int64, error)
}

type paipuSource interface {
	GetPaipuHead(ctx context.Context, uuid string) (*api.PaipuHead, error)
}

// ObservationService derives a provisional rank from the most recent match in
// the observation-store replica, falling back to a live match-detail lookup
// for matches whose result has not been replicated yet.
type ObservationService struct {
	matches matchStore
	index   identityIndex
	majsoul paipuSource
	logger  zerolog.Logger
}

func NewObservationService(matches *repository.MatchRepository, index *repository.AccountMapRepository, majsoul *api.MajsoulClient, logger zerolog.Logger) *ObservationService {
	return &ObservationService{matches: matches, index: index, majsoul: majsoul, logger: logger}
}

// QueryRankByID resolves the account's rank from its latest observed match.
// No observed match is (nil, nil): a normal outcome, not an error.
func (s *ObservationService) QueryRankByID(ctx context.Context, accountID int64) (*domain.Result, error) {
	rec, err := s.matches.FindLatestMatch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	seat := rec.Seat(accountID)
	if seat == nil {
		s.logger.Error().Str("uuid", rec.UUID).Int64("account_id", accountID).
			Msg("latest match record has no seat for account")
		return nil, nil
	}

	delta, src := s.deriveDelta(ctx, rec, accountID)

	// The delta applies only to the mode the match was played in.
	raw4, raw3 := seat.Level, seat.Level3
	if rec.PlayerCount == 4 {
		raw4.Delta = delta
	} else if rec.PlayerCount == 3 {
		raw3.Delta = delta
	}

	return &domain.Result{
		AccountID: accountID,
		Nickname:  seat.Nickname,
		M4:        level.Format(raw4.ID, raw4.Score, raw4.Delta),
		M3:        level.Format(raw3.ID, raw3.Score, raw3.Delta),
		Raw4:      &raw4,
		Raw3:      &raw3,
		Src:       src,
	}, nil
}

// deriveDelta determines the provisional point delta for the player in the
// match, tagging each degraded outcome rather than failing the query.
func (s *ObservationService) deriveDelta(ctx context.Context, rec *domain.MatchRecord, accountID int64) (int, domain.Source) {
	if len(rec.Results) > 0 {
		for _, res := range rec.Results {
			if res.AccountID == accountID {
				return res.Point, domain.SourceSubscription
			}
		}
		s.logger.Error().Str("uuid", rec.UUID).Int64("account_id", accountID).
			Msg("finalized match result is missing the account")
		return 0, domain.SourceFailed
	}

	head, err := s.majsoul.GetPaipuHead(ctx, rec.UUID)
	if err != nil {
		s.logger.Debug().Err(err).Str("uuid", rec.UUID).Msg("failed to fetch paipu head")
		return 0, domain.SourceFailedServer
	}
	if head.Err {
		if head.Code == constants.PaipuCodePlaying {
			return 0, domain.SourcePlaying
		}
		return 0, domain.SourceFailedServer
	}

	seat := -1
	for _, a := range head.Head.Accounts {
		if a.AccountID == accountID {
			seat = a.Seat
			break
		}
	}
	for _, p := range head.Head.Result.Players {
		if p.Seat == seat {
			return p.GradingScore, domain.SourceSync
		}
	}

	s.logger.Error().Str("uuid", rec.UUID).Int64("account_id", accountID).
		Msg("paipu head has no graded seat for account")
	return 0, domain.SourceFailed
}

// IdsByNickname delegates to the identity index.
func (s *ObservationService) IdsByNickname(ctx context.Context, nickname string) ([]int64, error) {
	return s.index.IdsByNickname(ctx, nickname)
}
