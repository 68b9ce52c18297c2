package twitch

import (
	"strconv"
	"strings"
	"sync"
)

// Cheer amounts outside this range are treated as literal words.
const (
	minCheerAmount = 1
	maxCheerAmount = 100000
)

// DefaultCheermotes are Twitch's global cheermote prefixes.
var DefaultCheermotes = []string{
	"Cheer", "DoodleCheer", "BibleThump", "cheerwhal", "Corgo", "Scoops", "uni", "ShowLove", "Party",
	"SeemsGood", "Pride", "Kappa", "FrankerZ", "HeyGuys", "DansGame", "EleGiggle", "TriHard", "Kreygasm",
	"4Head", "SwiftRage", "NotLikeThis", "FailFish", "VoHiYo", "PJSalt", "MrDestructoid", "bday",
	"RIPCheer", "Shamrock", "Streamlabs", "Muxy",
}

// CheermoteRegistry holds the known cheermote prefixes, case-insensitive.
type CheermoteRegistry struct {
	mu       sync.RWMutex
	prefixes map[string]bool
}

// NewCheermoteRegistry creates a registry with the given prefixes.
func NewCheermoteRegistry(prefixes ...string) *CheermoteRegistry {
	r := &CheermoteRegistry{}
	r.Replace(prefixes)
	return r
}

// Replace swaps the known prefixes.
func (r *CheermoteRegistry) Replace(prefixes []string) {
	next := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			next[strings.ToLower(p)] = true
		}
	}
	r.mu.Lock()
	r.prefixes = next
	r.mu.Unlock()
}

// Len returns the number of known prefixes.
func (r *CheermoteRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prefixes)
}

// IsCheermote reports whether token is <Prefix><Amount> for a known prefix
// with an amount in [1, 100000].
func (r *CheermoteRegistry) IsCheermote(token string) bool {
	split := len(token)
	for split > 0 && token[split-1] >= '0' && token[split-1] <= '9' {
		split--
	}
	prefix, digits := token[:split], token[split:]
	if prefix == "" || digits == "" || len(digits) > len(strconv.Itoa(maxCheerAmount)) {
		return false
	}
	amount, err := strconv.Atoi(digits)
	if err != nil || amount < minCheerAmount || amount > maxCheerAmount {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefixes[strings.ToLower(prefix)]
}
