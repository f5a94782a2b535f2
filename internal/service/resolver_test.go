package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/config"
	"mspt-tracker/internal/domain"
)

type resolverObs struct {
	result    *domain.Result
	err       error
	ids       []int64
	idsErr    error
	rankCalls int
	idsCalls  int
	log       *[]string
}

func (f *resolverObs) QueryRankByID(ctx context.Context, accountID int64) (*domain.Result, error) {
	f.rankCalls++
	if f.log != nil {
		*f.log = append(*f.log, "database")
	}
	return f.result, f.err
}

func (f *resolverObs) IdsByNickname(ctx context.Context, nickname string) ([]int64, error) {
	f.idsCalls++
	return f.ids, f.idsErr
}

type resolverServer struct {
	info  *api.AccountInfo
	err   error
	calls int
	log   *[]string
}

func (f *resolverServer) FetchAccountInfo(ctx context.Context, accountID int64) (*api.AccountInfo, error) {
	f.calls++
	if f.log != nil {
		*f.log = append(*f.log, "server")
	}
	return f.info, f.err
}

type resolverStats struct {
	aids      []int64
	aidsCalls int
	rankCalls []int64
	populate  bool
	log       *[]string
}

func (f *resolverStats) QueryAids(ctx context.Context, res domain.ResultSet, nickname, matchType string) []int64 {
	f.aidsCalls++
	for _, id := range f.aids {
		r := res.Ensure(id, nickname)
		r.Src = domain.SourceSapk
	}
	return f.aids
}

func (f *resolverStats) QueryRank(ctx context.Context, res domain.ResultSet, accountID int64, matchType string, forceUpdate bool) {
	f.rankCalls = append(f.rankCalls, accountID)
	if f.log != nil {
		*f.log = append(*f.log, "sapk")
	}
	if f.populate {
		r := res.Ensure(accountID, "Foo")
		r.Src = domain.SourceSapk
	}
}

func newTestResolver(obs observationSource, server serverSource, stats statsSource, aidPref, rankPref string) *Resolver {
	return &Resolver{
		obs:    obs,
		server: server,
		stats:  stats,
		cfg: &config.Config{
			AidQueryingPreference:  aidPref,
			RankQueryingPreference: rankPref,
		},
		logger: zerolog.Nop(),
	}
}

func TestResolveByIDObservationShortCircuit(t *testing.T) {
	obs := &resolverObs{result: &domain.Result{AccountID: 100, Nickname: "Foo", Src: domain.SourceSync}}
	server := &resolverServer{}
	stats := &resolverStats{populate: true}
	r := newTestResolver(obs, server, stats, domain.PrefDatabase, domain.PrefDatabase)

	res, err := r.Resolve(context.Background(), Query{AccountID: 100})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res[100] == nil || res[100].Src != domain.SourceSync {
		t.Fatalf("res = %+v, want observation result", res)
	}
	if server.calls != 0 {
		t.Errorf("server calls = %d, want 0 after observation hit", server.calls)
	}
	if len(stats.rankCalls) != 0 {
		t.Errorf("stats calls = %v, want none", stats.rankCalls)
	}
}

func TestResolveByIDFallbackOrdering(t *testing.T) {
	// Observation store empty, server down: the stats service must still be
	// attempted, in that order.
	var log []string
	obs := &resolverObs{log: &log}
	server := &resolverServer{err: errors.New("gateway down"), log: &log}
	stats := &resolverStats{populate: true, log: &log}
	r := newTestResolver(obs, server, stats, domain.PrefDatabase, domain.PrefDatabase)

	res, err := r.Resolve(context.Background(), Query{AccountID: 100})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"database", "server", "sapk"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("source order = %v, want %v", log, want)
	}
	if res[100] == nil || res[100].Src != domain.SourceSapk {
		t.Errorf("res = %+v, want sapk fallback result", res)
	}
}

func TestResolveByIDServerPreference(t *testing.T) {
	obs := &resolverObs{}
	server := &resolverServer{info: &api.AccountInfo{
		AccountID: 100,
		Nickname:  "Foo",
		Level:     domain.LevelData{ID: 302, Score: 800},
		Level3:    domain.LevelData{ID: 201, Score: 400},
	}}
	stats := &resolverStats{}
	r := newTestResolver(obs, server, stats, domain.PrefSapk, domain.PrefServer)

	res, err := r.Resolve(context.Background(), Query{AccountID: 100})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obs.rankCalls != 0 {
		t.Errorf("observation calls = %d, want 0 with server preference", obs.rankCalls)
	}
	got := res[100]
	if got == nil || got.Src != domain.SourceServer {
		t.Fatalf("res = %+v, want server result", res)
	}
	if got.M4 == "" || got.M3 == "" || got.Raw4 == nil || got.Raw3 == nil {
		t.Errorf("server result incomplete: %+v", got)
	}
	if len(stats.rankCalls) != 0 {
		t.Errorf("stats calls = %v, want none after server hit", stats.rankCalls)
	}
}

func TestResolveByIDSapkPreference(t *testing.T) {
	obs := &resolverObs{}
	server := &resolverServer{}
	stats := &resolverStats{populate: true}
	r := newTestResolver(obs, server, stats, domain.PrefSapk, domain.PrefSapk)

	if _, err := r.Resolve(context.Background(), Query{AccountID: 100}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obs.rankCalls != 0 || server.calls != 0 {
		t.Errorf("obs=%d server=%d calls, want 0/0 with sapk preference", obs.rankCalls, server.calls)
	}
	if !reflect.DeepEqual(stats.rankCalls, []int64{100}) {
		t.Errorf("stats calls = %v, want [100]", stats.rankCalls)
	}
}

func TestResolveByNicknameDatabaseIndex(t *testing.T) {
	obs := &resolverObs{ids: []int64{5}}
	server := &resolverServer{}
	stats := &resolverStats{populate: true}
	r := newTestResolver(obs, server, stats, domain.PrefDatabase, domain.PrefSapk)

	res, err := r.Resolve(context.Background(), Query{Nickname: "Foo"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if stats.aidsCalls != 0 {
		t.Errorf("sapk searches = %d, want 0 after index hit", stats.aidsCalls)
	}
	if !reflect.DeepEqual(stats.rankCalls, []int64{5}) {
		t.Errorf("rank calls = %v, want [5]", stats.rankCalls)
	}
	if res[5] == nil {
		t.Errorf("res = %+v, want entry for 5", res)
	}
}

func TestResolveByNicknameIndexMissFallsBack(t *testing.T) {
	obs := &resolverObs{}
	server := &resolverServer{}
	stats := &resolverStats{aids: []int64{9}, populate: true}
	r := newTestResolver(obs, server, stats, domain.PrefDatabase, domain.PrefSapk)

	if _, err := r.Resolve(context.Background(), Query{Nickname: "Foo"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obs.idsCalls != 1 {
		t.Errorf("index calls = %d, want 1", obs.idsCalls)
	}
	if stats.aidsCalls != 1 {
		t.Errorf("sapk searches = %d, want 1 after index miss", stats.aidsCalls)
	}
	if !reflect.DeepEqual(stats.rankCalls, []int64{9}) {
		t.Errorf("rank calls = %v, want [9]", stats.rankCalls)
	}
}

func TestResolveByNicknameFanOutDedup(t *testing.T) {
	// Two mode searches with overlapping ids already deduped into the set:
	// each id resolves exactly once.
	obs := &resolverObs{}
	server := &resolverServer{}
	stats := &resolverStats{aids: []int64{1, 2, 3}, populate: true}
	r := newTestResolver(obs, server, stats, domain.PrefSapk, domain.PrefSapk)

	res, err := r.Resolve(context.Background(), Query{Nickname: "Foo"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obs.idsCalls != 0 {
		t.Errorf("index calls = %d, want 0 with sapk preference", obs.idsCalls)
	}
	if !reflect.DeepEqual(stats.rankCalls, []int64{1, 2, 3}) {
		t.Errorf("rank calls = %v, want [1 2 3] once each", stats.rankCalls)
	}
	if len(res) != 3 {
		t.Errorf("len(res) = %d, want 3", len(res))
	}
}

func TestResolveRequiresInput(t *testing.T) {
	r := newTestResolver(&resolverObs{}, &resolverServer{}, &resolverStats{}, domain.PrefSapk, domain.PrefSapk)

	if _, err := r.Resolve(context.Background(), Query{}); err == nil {
		t.Error("Resolve with empty query = nil error, want error")
	}
}
