package ledger

import (
	"regexp"
	"strconv"
	"strings"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// ParseRecipients extracts user ids from free text. Chat mentions such as
// <@123> win; otherwise every comma or space separated integer is taken.
// Order of first appearance is kept and duplicates are dropped.
func ParseRecipients(s string) []int64 {
	var ids []int64
	for _, m := range mentionPattern.FindAllStringSubmatch(s, -1) {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		fields := strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
		for _, f := range fields {
			if id, err := strconv.ParseInt(f, 10, 64); err == nil && id > 0 {
				ids = append(ids, id)
			}
		}
	}

	return Dedupe(ids)
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
