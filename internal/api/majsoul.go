package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/valyala/fasthttp"

	"mspt-tracker/internal/config"
	"mspt-tracker/internal/domain"
)

// MajsoulClient is a thin client for the live game server's HTTP gateway.
// Its failure modes are opaque: any transport or gateway error is returned
// as-is and callers treat it as "source unavailable".
type MajsoulClient struct {
	baseURI string
	client  *fasthttp.Client
}

func NewMajsoulClient(cfg *config.Config) *MajsoulClient {
	return &MajsoulClient{
		baseURI: cfg.GatewayURI,
		client:  newHTTPClient(),
	}
}

type AccountInfo struct {
	AccountID int64            `json:"account_id"`
	Nickname  string           `json:"nickname"`
	Level     domain.LevelData `json:"level"`
	Level3    domain.LevelData `json:"level3"`
}

type accountInfoResponse struct {
	Account *AccountInfo `json:"account"`
}

// FetchAccountInfo looks up authoritative current rank data by account id.
// A missing account is (nil, nil).
func (c *MajsoulClient) FetchAccountInfo(ctx context.Context, accountID int64) (*AccountInfo, error) {
	u := fmt.Sprintf("%s/account_info?account_id=%d", c.baseURI, accountID)
	resp, err := doRequest[accountInfoResponse](ctx, c.client, u)
	if err != nil {
		return nil, err
	}
	return resp.Account, nil
}

type searchAccountResponse struct {
	DecodeID int64 `json:"decode_id"`
}

// SearchAccountByPattern resolves a nickname or external-id pattern to an
// account id via the server's own search. 0 means no match.
func (c *MajsoulClient) SearchAccountByPattern(ctx context.Context, pattern string) (int64, error) {
	u := fmt.Sprintf("%s/search_account?pattern=%s", c.baseURI, url.QueryEscape(pattern))
	resp, err := doRequest[searchAccountResponse](ctx, c.client, u)
	if err != nil {
		return 0, err
	}
	return resp.DecodeID, nil
}

type PaipuAccount struct {
	AccountID int64 `json:"account_id"`
	Seat      int   `json:"seat"`
}

type PaipuPlayer struct {
	Seat         int `json:"seat"`
	GradingScore int `json:"grading_score"`
}

type PaipuHeadData struct {
	Accounts []PaipuAccount `json:"accounts"`
	Result   struct {
		Players []PaipuPlayer `json:"players"`
	} `json:"result"`
}

type PaipuHead struct {
	Err  bool          `json:"err"`
	Code int           `json:"code"`
	Head PaipuHeadData `json:"head"`
}

// GetPaipuHead fetches a match's detail header by match uuid.
func (c *MajsoulClient) GetPaipuHead(ctx context.Context, uuid string) (*PaipuHead, error) {
	u := fmt.Sprintf("%s/paipu_head?uuid=%s", c.baseURI, url.QueryEscape(uuid))
	return doRequest[PaipuHead](ctx, c.client, u)
}
