package server

import (
	"fmt"
	"sort"
	"strings"

	"mspt-tracker/internal/account"
	"mspt-tracker/internal/domain"
)

// ReplyFailed is the user-facing message when every fallback path came up
// empty.
const ReplyFailed = "query failed"

func bracketOr(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}

// FormatReply renders one resolved result as a user-facing message.
func FormatReply(res *domain.Result) string {
	msg := fmt.Sprintf("%s (%s%d) %s %s",
		res.Nickname, account.ZoneOf(res.AccountID), res.AccountID,
		bracketOr(res.M4), bracketOr(res.M3))
	if res.HM4 != "" || res.HM3 != "" {
		msg += fmt.Sprintf("\npeak %s %s", bracketOr(res.HM4), bracketOr(res.HM3))
	}
	msg += fmt.Sprintf("\n*source: %s", res.Src)
	return msg
}

// FormatReplies renders a whole ResultSet, one block per account in id
// order, or the failure message when the set is empty.
func FormatReplies(res domain.ResultSet) string {
	if len(res) == 0 {
		return ReplyFailed
	}
	var blocks []string
	for _, r := range sortedResults(res) {
		blocks = append(blocks, FormatReply(r))
	}
	return strings.Join(blocks, "\n")
}

func sortedResults(res domain.ResultSet) []*domain.Result {
	out := make([]*domain.Result, 0, len(res))
	for _, r := range res {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}
