package author

import (
	"strings"
	"sync"

	"github.com/voguh/unichat-sub000/internal/event"
)

const globalPrefix = "global/"

// Badge sets a channel can override. When the channel has no entry for one
// of these the global badge of the same set/version is used.
var globalFallbackSets = map[string]bool{
	"subscriber":      true,
	"bits":            true,
	"sub-gifter":      true,
	"bits-leader":     true,
	"sub-gift-leader": true,
}

// BadgeRegistry maps "set/version" keys to badge images. It is written
// rarely (control events) and read on every message.
type BadgeRegistry struct {
	mu      sync.RWMutex
	entries map[string]event.Badge
}

// NewBadgeRegistry creates an empty registry.
func NewBadgeRegistry() *BadgeRegistry {
	return &BadgeRegistry{entries: make(map[string]event.Badge)}
}

// Replace swaps the whole table.
func (r *BadgeRegistry) Replace(entries map[string]event.Badge) {
	next := make(map[string]event.Badge, len(entries))
	for k, v := range entries {
		next[k] = v
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
}

// Set adds or overwrites one entry.
func (r *BadgeRegistry) Set(key string, b event.Badge) {
	r.mu.Lock()
	r.entries[key] = b
	r.mu.Unlock()
}

// Len returns the number of registered badges.
func (r *BadgeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Lookup finds the badge for a "set/version" pair.
func (r *BadgeRegistry) Lookup(setVersion string) (event.Badge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.entries[setVersion]; ok {
		return b, true
	}

	set, _, _ := strings.Cut(setVersion, "/")
	if globalFallbackSets[set] {
		if b, ok := r.entries[globalPrefix+setVersion]; ok {
			return b, true
		}
	}
	return event.Badge{}, false
}

// Resolve turns a raw badge tag ("set/version,set/version") into badges.
// Pairs the registry does not know are dropped.
func (r *BadgeRegistry) Resolve(tag string) []event.Badge {
	badges := []event.Badge{}
	for _, pair := range strings.Split(tag, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if b, ok := r.Lookup(pair); ok {
			if b.Code == "" {
				b.Code = pair
			}
			badges = append(badges, b)
		}
	}
	return badges
}

// YouTube badge icon types.
const (
	IconOwner     = "OWNER"
	IconModerator = "MODERATOR"
	IconVerified  = "VERIFIED"
)

// YouTubeBadge maps a standard badge icon type to its fixed badge.
func (r *Resolver) YouTubeBadge(iconType string) (event.Badge, bool) {
	var name string
	switch iconType {
	case IconOwner:
		name = "broadcaster"
	case IconModerator:
		name = "moderator"
	case IconVerified:
		name = "verified"
	default:
		return event.Badge{}, false
	}
	return event.Badge{Code: name, URL: r.assetsBaseURL + "/youtube/" + name + ".png"}, true
}

// SponsorBadge is the badge of a member with a custom thumbnail.
func SponsorBadge(url string) event.Badge {
	return event.Badge{Code: "sponsor", URL: url}
}

// KickBadge maps a Kick badge type ("moderator", "subscriber", ...) to its
// badge under the assets base URL.
func (r *Resolver) KickBadge(badgeType string) (event.Badge, bool) {
	badgeType = strings.ToLower(strings.TrimSpace(badgeType))
	if badgeType == "" {
		return event.Badge{}, false
	}
	return event.Badge{Code: badgeType, URL: r.assetsBaseURL + "/kick/" + badgeType + ".png"}, true
}
