package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mspt-tracker/internal/account"
	"mspt-tracker/internal/api"
	"mspt-tracker/internal/constants"
	"mspt-tracker/internal/domain"
	"mspt-tracker/internal/level"
	"mspt-tracker/internal/service"
)

type resolverSource interface {
	Resolve(ctx context.Context, q service.Query) (domain.ResultSet, error)
}

type gatewaySource interface {
	FetchAccountInfo(ctx context.Context, accountID int64) (*api.AccountInfo, error)
	SearchAccountByPattern(ctx context.Context, pattern string) (int64, error)
}

// TrackerServer hosts the rank-query HTTP surface.
type TrackerServer struct {
	resolver resolverSource
	majsoul  gatewaySource
	logger   zerolog.Logger
}

func NewTrackerServer(resolver *service.Resolver, majsoul *api.MajsoulClient, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{resolver: resolver, majsoul: majsoul, logger: logger}
}

type queryResponse struct {
	Results []*domain.Result `json:"results"`
	Reply   string           `json:"reply"`
}

// HandleMspt resolves a pattern (NICKNAME / $AID / $$EID) or an explicit aid
// through the full fallback pipeline. Query params: pattern, aid, rank
// (preference override), type (3/4), refresh.
func (s *TrackerServer) HandleMspt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	params := r.URL.Query()
	pattern := params.Get("pattern")

	if strings.HasPrefix(pattern, "$$") {
		s.lookupServerOnly(ctx, w, strings.TrimPrefix(pattern, "$$"))
		return
	}

	q := service.Query{
		MatchType: params.Get("type"),
		Refresh:   params.Get("refresh") == "1" || params.Get("refresh") == "true",
	}

	switch rank := params.Get("rank"); rank {
	case "":
	case domain.PrefDatabase, domain.PrefServer, domain.PrefSapk:
		q.Prefs.RankQuerying = rank
	default:
		writeError(w, http.StatusBadRequest, "invalid rank preference")
		return
	}

	switch {
	case params.Get("aid") != "":
		aid, err := strconv.ParseInt(params.Get("aid"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid aid")
			return
		}
		q.AccountID = aid
	case strings.HasPrefix(pattern, "$"):
		aid, err := strconv.ParseInt(strings.TrimPrefix(pattern, "$"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pattern")
			return
		}
		q.AccountID = aid
	case pattern != "":
		q.Nickname = pattern
	default:
		writeError(w, http.StatusBadRequest, "pattern or aid is required")
		return
	}

	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeResultSet(w, res)
}

// HandleMspt2 is the direct server-only lookup: pattern is an external id or
// $AID, resolved against the live server without the fallback pipeline.
func (s *TrackerServer) HandleMspt2(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return
	}
	s.lookupServerOnly(ctx, w, pattern)
}

func (s *TrackerServer) lookupServerOnly(ctx context.Context, w http.ResponseWriter, pattern string) {
	var accountID int64
	if strings.HasPrefix(pattern, "$") {
		aid, err := strconv.ParseInt(strings.TrimPrefix(pattern, "$"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pattern")
			return
		}
		accountID = aid
	} else {
		// A bare numeric pattern is a shared external id; decode it
		// locally before bothering the server's search.
		if eid, err := strconv.ParseInt(pattern, 10, 64); err == nil {
			accountID = account.DecodeAccountID(eid)
		}
		if accountID == 0 {
			aid, err := s.majsoul.SearchAccountByPattern(ctx, pattern)
			if err != nil {
				s.logger.Debug().Err(err).Str("pattern", pattern).Msg("pattern search failed")
			}
			accountID = aid
		}
	}

	if accountID == 0 {
		s.writeResultSet(w, domain.ResultSet{})
		return
	}

	info, err := s.majsoul.FetchAccountInfo(ctx, accountID)
	if err != nil || info == nil {
		if err != nil {
			s.logger.Debug().Err(err).Int64("account_id", accountID).Msg("account info fetch failed")
		}
		s.writeResultSet(w, domain.ResultSet{})
		return
	}

	lv4, lv3 := info.Level, info.Level3
	res := domain.ResultSet{}
	res[info.AccountID] = &domain.Result{
		AccountID: info.AccountID,
		Nickname:  info.Nickname,
		M4:        level.Format(lv4.ID, lv4.Score, lv4.Delta),
		M3:        level.Format(lv3.ID, lv3.Score, lv3.Delta),
		Raw4:      &lv4,
		Raw3:      &lv3,
		Src:       domain.SourceServer,
	}
	s.writeResultSet(w, res)
}

func (s *TrackerServer) writeResultSet(w http.ResponseWriter, res domain.ResultSet) {
	resp := queryResponse{
		Results: sortedResults(res),
		Reply:   FormatReplies(res),
	}
	status := http.StatusOK
	if len(res) == 0 {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
