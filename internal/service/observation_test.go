package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/domain"
	"mspt-tracker/internal/level"
)

type fakeMatchStore struct {
	rec *domain.MatchRecord
	err error
}

func (f *fakeMatchStore) FindLatestMatch(ctx context.Context, accountID int64) (*domain.MatchRecord, error) {
	return f.rec, f.err
}

type fakeIndex struct {
	ids []int64
	err error
}

func (f *fakeIndex) IdsByNickname(ctx context.Context, nickname string) ([]int64, error) {
	return f.ids, f.err
}

type fakePaipu struct {
	head  *api.PaipuHead
	err   error
	calls int
}

func (f *fakePaipu) GetPaipuHead(ctx context.Context, uuid string) (*api.PaipuHead, error) {
	f.calls++
	return f.head, f.err
}

func observedMatch(playerCount int) *domain.MatchRecord {
	rec := &domain.MatchRecord{
		UUID:        "uuid-1",
		StartedAt:   time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC),
		PlayerCount: playerCount,
	}
	for i := 0; i < playerCount; i++ {
		rec.Players = append(rec.Players, domain.MatchSeat{
			AccountID: int64(100 + i),
			Nickname:  "player",
			Seat:      i,
			Level:     domain.LevelData{ID: 302, Score: 800},
			Level3:    domain.LevelData{ID: 201, Score: 400},
		})
	}
	return rec
}

func newObservation(matches matchStore, paipu paipuSource) *ObservationService {
	return &ObservationService{
		matches: matches,
		index:   &fakeIndex{},
		majsoul: paipu,
		logger:  zerolog.Nop(),
	}
}

func TestQueryRankByIDNoMatch(t *testing.T) {
	svc := newObservation(&fakeMatchStore{}, &fakePaipu{})

	res, err := svc.QueryRankByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("QueryRankByID: %v", err)
	}
	if res != nil {
		t.Errorf("res = %+v, want nil for no observed match", res)
	}
}

func TestQueryRankByIDSubscription(t *testing.T) {
	rec := observedMatch(4)
	rec.Results = []domain.MatchResult{
		{AccountID: 100, Seat: 0, Point: 75},
		{AccountID: 101, Seat: 1, Point: -30},
	}
	paipu := &fakePaipu{}
	svc := newObservation(&fakeMatchStore{rec: rec}, paipu)

	res, err := svc.QueryRankByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("QueryRankByID: %v", err)
	}
	if res == nil {
		t.Fatal("res = nil")
	}
	if res.Src != domain.SourceSubscription {
		t.Errorf("Src = %q, want %q", res.Src, domain.SourceSubscription)
	}
	// The delta applies only to the 4-player mode; the replicated result
	// makes the server lookup unnecessary.
	if want := level.Format(302, 800, 75); res.M4 != want {
		t.Errorf("M4 = %q, want %q", res.M4, want)
	}
	if want := level.Format(201, 400, 0); res.M3 != want {
		t.Errorf("M3 = %q, want %q", res.M3, want)
	}
	if paipu.calls != 0 {
		t.Errorf("paipu calls = %d, want 0", paipu.calls)
	}
	if res.Raw4 == nil || res.Raw4.Delta != 75 || res.Raw3.Delta != 0 {
		t.Errorf("raw deltas = %+v / %+v", res.Raw4, res.Raw3)
	}
}

func TestQueryRankByIDSync(t *testing.T) {
	head := &api.PaipuHead{}
	head.Head.Accounts = []api.PaipuAccount{{AccountID: 100, Seat: 3}}
	head.Head.Result.Players = []api.PaipuPlayer{{Seat: 3, GradingScore: 120}}
	svc := newObservation(&fakeMatchStore{rec: observedMatch(3)}, &fakePaipu{head: head})

	res, err := svc.QueryRankByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("QueryRankByID: %v", err)
	}
	if res.Src != domain.SourceSync {
		t.Errorf("Src = %q, want %q", res.Src, domain.SourceSync)
	}
	// 3-player match: delta lands on the 3-player mode only.
	if want := level.Format(201, 400, 120); res.M3 != want {
		t.Errorf("M3 = %q, want %q", res.M3, want)
	}
	if want := level.Format(302, 800, 0); res.M4 != want {
		t.Errorf("M4 = %q, want %q", res.M4, want)
	}
}

func TestQueryRankByIDPlaying(t *testing.T) {
	svc := newObservation(&fakeMatchStore{rec: observedMatch(4)},
		&fakePaipu{head: &api.PaipuHead{Err: true, Code: 1203}})

	res, err := svc.QueryRankByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("QueryRankByID: %v", err)
	}
	if res.Src != domain.SourcePlaying {
		t.Errorf("Src = %q, want %q", res.Src, domain.SourcePlaying)
	}
	if res.Raw4.Delta != 0 {
		t.Errorf("Raw4.Delta = %d, want 0 while playing", res.Raw4.Delta)
	}
}

func TestQueryRankByIDServerUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		paipu *fakePaipu
	}{
		{"transport failure", &fakePaipu{err: errors.New("connection refused")}},
		{"gateway error", &fakePaipu{head: &api.PaipuHead{Err: true, Code: 500}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newObservation(&fakeMatchStore{rec: observedMatch(4)}, tt.paipu)

			res, err := svc.QueryRankByID(context.Background(), 100)
			if err != nil {
				t.Fatalf("QueryRankByID: %v", err)
			}
			if res.Src != domain.SourceFailedServer {
				t.Errorf("Src = %q, want %q", res.Src, domain.SourceFailedServer)
			}
			if res.Raw4.Delta != 0 {
				t.Errorf("Raw4.Delta = %d, want 0", res.Raw4.Delta)
			}
		})
	}
}

func TestQueryRankByIDSeatMissing(t *testing.T) {
	// Head fetched fine but the account has no graded seat: degrade to the
	// generic failure tag instead of erroring.
	head := &api.PaipuHead{}
	head.Head.Accounts = []api.PaipuAccount{{AccountID: 999, Seat: 0}}
	head.Head.Result.Players = []api.PaipuPlayer{{Seat: 0, GradingScore: 50}}
	svc := newObservation(&fakeMatchStore{rec: observedMatch(4)}, &fakePaipu{head: head})

	res, err := svc.QueryRankByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("QueryRankByID: %v", err)
	}
	if res.Src != domain.SourceFailed {
		t.Errorf("Src = %q, want %q", res.Src, domain.SourceFailed)
	}
}

func TestQueryRankByIDStoreError(t *testing.T) {
	svc := newObservation(&fakeMatchStore{err: errors.New("db locked")}, &fakePaipu{})

	if _, err := svc.QueryRankByID(context.Background(), 100); err == nil {
		t.Error("QueryRankByID = nil error, want store error")
	}
}
