package twitch

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/voguh/unichat-sub000/internal/event"
)

const (
	actionPrefix = "\x01ACTION "
	actionSuffix = "\x01"
	emoteURLBase = "https://static-cdn.jtvnw.net/emoticons/v2/"
)

// normalizeText strips the CTCP ACTION wrapping (/me) and trims spaces.
func normalizeText(text string) string {
	if strings.HasPrefix(text, actionPrefix) {
		text = strings.TrimSuffix(strings.TrimPrefix(text, actionPrefix), actionSuffix)
	}
	return strings.TrimSpace(text)
}

// stripCheermotes removes every cheermote token from text. Text without
// cheermotes is returned unchanged.
func (r *CheermoteRegistry) stripCheermotes(text string) string {
	words := strings.Fields(text)
	kept := words[:0:0]
	for _, w := range words {
		if !r.IsCheermote(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(words) {
		return text
	}
	return strings.Join(kept, " ")
}

// EmoteURL is the CDN image of a native Twitch emote.
func EmoteURL(id string) string {
	return emoteURLBase + id + "/default/dark/3.0"
}

type emoteRange struct {
	id    string
	start int
	end   int
}

// decodeEmotes decodes the emotes tag ("id:start-end,start-end/id2:...")
// against text. The code of each id is sliced from its first range only;
// every range of the id then yields one entry with that code, ordered by
// offset. Offsets are applied to the character (rune) sequence of text.
// Twitch counts UTF-16 code units, so an astral-plane character before an
// emote shifts the slice; an id whose first range falls outside the text is
// dropped.
func decodeEmotes(text, tag string) []event.Emote {
	emotes := []event.Emote{}
	if tag == "" {
		return emotes
	}

	runes := []rune(text)
	type entry struct {
		emoteRange
		code string
	}
	var entries []entry
	for _, group := range strings.Split(tag, "/") {
		id, positions, ok := strings.Cut(group, ":")
		if !ok || id == "" {
			continue
		}
		ranges := parseRanges(id, positions)
		if len(ranges) == 0 {
			continue
		}
		first := ranges[0]
		if first.end >= len(runes) {
			continue
		}
		code := string(runes[first.start : first.end+1])
		for _, r := range ranges {
			entries = append(entries, entry{emoteRange: r, code: code})
		}
	}

	slices.SortStableFunc(entries, func(a, b entry) int { return cmp.Compare(a.start, b.start) })
	for _, e := range entries {
		emotes = append(emotes, event.Emote{ID: e.id, Code: e.code, URL: EmoteURL(e.id)})
	}
	return emotes
}

// parseRanges parses "start-end,start-end", skipping malformed pairs.
func parseRanges(id, positions string) []emoteRange {
	var ranges []emoteRange
	for _, pos := range strings.Split(positions, ",") {
		startStr, endStr, ok := strings.Cut(pos, "-")
		if !ok {
			continue
		}
		start, err1 := strconv.Atoi(startStr)
		end, err2 := strconv.Atoi(endStr)
		if err1 != nil || err2 != nil || start < 0 || end < start {
			continue
		}
		ranges = append(ranges, emoteRange{id: id, start: start, end: end})
	}
	return ranges
}
