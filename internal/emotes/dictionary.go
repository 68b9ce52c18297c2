// Package emotes keeps the shared third-party emote dictionary and refreshes
// it from BetterTTV, FrankerFaceZ and 7TV in the background.
package emotes

import (
	"strings"
	"sync"

	"github.com/voguh/unichat-sub000/internal/event"
)

// ChannelKey identifies one channel tier of the dictionary.
func ChannelKey(platform event.Platform, channelID string) string {
	return string(platform) + ":" + channelID
}

// Dictionary maps emote codes to emotes. The global tier applies to every
// channel; a channel tier overrides it on collision.
type Dictionary struct {
	mu       sync.RWMutex
	global   map[string]event.Emote
	channels map[string]map[string]event.Emote
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		global:   make(map[string]event.Emote),
		channels: make(map[string]map[string]event.Emote),
	}
}

// merge folds sets in order; later sets overwrite earlier ones.
func merge(sets [][]event.Emote) map[string]event.Emote {
	out := make(map[string]event.Emote)
	for _, set := range sets {
		for _, e := range set {
			if e.Code == "" {
				continue
			}
			out[e.Code] = e
		}
	}
	return out
}

// HasGlobal reports whether the global tier has been populated.
func (d *Dictionary) HasGlobal() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.global) > 0
}

// SetGlobal replaces the global tier with sets merged in order.
func (d *Dictionary) SetGlobal(sets ...[]event.Emote) {
	m := merge(sets)
	d.mu.Lock()
	d.global = m
	d.mu.Unlock()
}

// SetChannel replaces one channel tier with sets merged in order.
func (d *Dictionary) SetChannel(key string, sets ...[]event.Emote) {
	m := merge(sets)
	d.mu.Lock()
	d.channels[key] = m
	d.mu.Unlock()
}

// Size returns the number of global codes and the number of channel tiers.
func (d *Dictionary) Size() (global, channels int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.global), len(d.channels)
}

// Lookup finds code in the channel tier, then in the global tier.
func (d *Dictionary) Lookup(key, code string) (event.Emote, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookupLocked(key, code)
}

func (d *Dictionary) lookupLocked(key, code string) (event.Emote, bool) {
	if ch, ok := d.channels[key]; ok {
		if e, ok := ch[code]; ok {
			return e, true
		}
	}
	e, ok := d.global[code]
	return e, ok
}

// Scan checks every whitespace separated token of text and returns the
// matching emotes in order of first occurrence, one entry per code.
func (d *Dictionary) Scan(key, text string) []event.Emote {
	found := []event.Emote{}
	seen := make(map[string]bool)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.global) == 0 && len(d.channels[key]) == 0 {
		return found
	}
	for _, word := range strings.Fields(text) {
		if seen[word] {
			continue
		}
		if e, ok := d.lookupLocked(key, word); ok {
			seen[word] = true
			found = append(found, e)
		}
	}
	return found
}

// AppendMissing appends the emotes of extra whose code is not already in dst.
func AppendMissing(dst, extra []event.Emote) []event.Emote {
	if len(extra) == 0 {
		return dst
	}
	have := make(map[string]bool, len(dst))
	for _, e := range dst {
		have[e.Code] = true
	}
	for _, e := range extra {
		if !have[e.Code] {
			have[e.Code] = true
			dst = append(dst, e)
		}
	}
	return dst
}
