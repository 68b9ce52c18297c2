package author

import (
	"strings"

	"github.com/voguh/unichat-sub000/internal/event"
)

// BadgeSets returns the set names of a raw "set/version,..." badge tag.
func BadgeSets(tag string) []string {
	var sets []string
	for _, pair := range strings.Split(tag, ",") {
		set, _, _ := strings.Cut(strings.TrimSpace(pair), "/")
		if set != "" {
			sets = append(sets, set)
		}
	}
	return sets
}

// RankFromSets picks the highest rank among badge set names:
// broadcaster > moderator > vip > subscriber/founder/member > viewer.
// Names are matched as whole tokens.
func RankFromSets(sets []string) event.AuthorType {
	has := make(map[string]bool, len(sets))
	for _, s := range sets {
		has[strings.ToLower(s)] = true
	}

	switch {
	case has["broadcaster"]:
		return event.AuthorBroadcaster
	case has["moderator"]:
		return event.AuthorModerator
	case has["vip"]:
		return event.AuthorVip
	case has["subscriber"], has["founder"], has["member"], has["sponsor"]:
		return event.AuthorSponsor
	default:
		return event.AuthorViewer
	}
}

// TwitchRank resolves the rank from a raw Twitch badges tag.
func TwitchRank(tag string) event.AuthorType {
	return RankFromSets(BadgeSets(tag))
}

// YouTubeRank resolves the rank from parsed badges: OWNER > MODERATOR >
// custom thumbnail (member) > viewer.
func YouTubeRank(badges []event.Badge) event.AuthorType {
	sets := make([]string, 0, len(badges))
	for _, b := range badges {
		sets = append(sets, b.Code)
	}
	return RankFromSets(sets)
}
