package domain

import (
	"time"
)

// Source tags which provider produced a Result, and how degraded it is.
type Source string

const (
	SourceServer       Source = "server"
	SourceSapk         Source = "sapk"
	SourceSync         Source = "sync"
	SourceSubscription Source = "subscription"
	SourcePlaying      Source = "playing"
	SourceFailed       Source = "failed"
	SourceFailedServer Source = "failed-server"
)

// Querying preferences for turning nicknames into account ids and account
// ids into ranks.
const (
	PrefDatabase = "database"
	PrefSapk     = "sapk"
	PrefServer   = "server"
)

// Preference overrides the process-wide defaults for a single query. Zero
// values fall back to the configured defaults; a Preference is never mutated
// while a resolution is in flight.
type Preference struct {
	AidQuerying  string
	RankQuerying string
}

// LevelData is the raw tier triple as reported by a source.
type LevelData struct {
	ID    int `json:"id"`
	Score int `json:"score"`
	Delta int `json:"delta,omitempty"`
}

// Result is one player's resolved rank snapshot, keyed by account id.
// Partial writes from different sources merge into the same Result; Src is
// last-writer-wins.
type Result struct {
	AccountID int64      `json:"account_id"`
	Nickname  string     `json:"nickname"`
	M4        string     `json:"m4,omitempty"`
	M3        string     `json:"m3,omitempty"`
	HM4       string     `json:"hm4,omitempty"`
	HM3       string     `json:"hm3,omitempty"`
	Raw4      *LevelData `json:"raw4,omitempty"`
	Raw3      *LevelData `json:"raw3,omitempty"`
	Src       Source     `json:"src"`
}

// ResultSet accumulates Results over one resolution call. Keys are unique by
// construction; the set is owned by the in-flight query and discarded after
// rendering.
type ResultSet map[int64]*Result

// Ensure returns the Result for accountID, creating it first if absent.
func (rs ResultSet) Ensure(accountID int64, nickname string) *Result {
	if r, ok := rs[accountID]; ok {
		return r
	}
	r := &Result{AccountID: accountID, Nickname: nickname}
	rs[accountID] = r
	return r
}

// MatchSeat is one player's entry in an observed match.
type MatchSeat struct {
	AccountID int64
	Nickname  string
	Seat      int
	Level     LevelData
	Level3    LevelData
}

// MatchResult is a finalized per-player point result for a match.
type MatchResult struct {
	AccountID int64
	Seat      int
	Point     int
}

// MatchRecord is one match from the observation-store replica. Results stays
// empty until the final standings have been observed.
type MatchRecord struct {
	UUID        string
	StartedAt   time.Time
	PlayerCount int
	Players     []MatchSeat
	Results     []MatchResult
}

// Seat returns the seat entry for accountID, or nil if the player was not in
// the match.
func (m *MatchRecord) Seat(accountID int64) *MatchSeat {
	for i := range m.Players {
		if m.Players[i].AccountID == accountID {
			return &m.Players[i]
		}
	}
	return nil
}
