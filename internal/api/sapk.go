package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"mspt-tracker/internal/config"
	"mspt-tracker/internal/constants"
	"mspt-tracker/internal/domain"
)

// SapkClient talks to the third-party statistics service. The 4-player and
// 3-player games live behind separate base endpoints with the same shape.
type SapkClient struct {
	baseURI string
	triURI  string
	client  *fasthttp.Client
}

func NewSapkClient(cfg *config.Config) *SapkClient {
	return &SapkClient{
		baseURI: cfg.SapkURI,
		triURI:  cfg.SapkTriURI,
		client:  newHTTPClient(),
	}
}

func (c *SapkClient) uriFor(mode int) string {
	if mode == 3 {
		return c.triURI
	}
	return c.baseURI
}

func modesFor(mode int) string {
	if mode == 3 {
		return constants.StatsModes3
	}
	return constants.StatsModes4
}

type SapkPlayer struct {
	ID              int64            `json:"id"`
	Nickname        string           `json:"nickname"`
	Level           domain.LevelData `json:"level"`
	LatestTimestamp int64            `json:"latest_timestamp"`
}

type SapkStats struct {
	ID       int64             `json:"id"`
	Nickname string            `json:"nickname"`
	Level    domain.LevelData  `json:"level"`
	MaxLevel *domain.LevelData `json:"max_level"`
	Error    json.RawMessage   `json:"error"`
}

// HasError reports whether the service answered with its in-band error
// field, which means "no data" rather than a transport failure.
func (s *SapkStats) HasError() bool {
	return len(s.Error) > 0 && string(s.Error) != "null"
}

// SearchPlayer queries one game mode's search endpoint for candidate players
// matching the nickname. mode is 4 or 3.
func (c *SapkClient) SearchPlayer(ctx context.Context, mode int, nickname string) ([]SapkPlayer, error) {
	u := fmt.Sprintf("%s/search_player/%s?limit=%d",
		c.uriFor(mode), url.PathEscape(nickname), constants.SearchPlayerLimit)
	players, err := doRequest[[]SapkPlayer](ctx, c.client, u)
	if err != nil {
		return nil, err
	}
	return *players, nil
}

// PlayerStats queries one game mode's rank endpoint for an account over the
// service's all-time window.
func (c *SapkClient) PlayerStats(ctx context.Context, mode int, accountID int64) (*SapkStats, error) {
	u := fmt.Sprintf("%s/player_stats/%d/%d/%d?mode=%s",
		c.uriFor(mode), accountID, constants.StatsEpochStartMs, time.Now().UnixMilli(), modesFor(mode))
	return doRequest[SapkStats](ctx, c.client, u)
}
