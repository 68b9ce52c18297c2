// Package author derives the canonical author fields (identity, display
// name, color, rank and badges) from platform specific raw values.
package author

import (
	"errors"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/voguh/unichat-sub000/internal/event"
)

// ErrMissingAuthorID is returned by Build when the platform identity is absent.
var ErrMissingAuthorID = errors.New("missing author id")

const (
	defaultUsernameTTL     = 10 * time.Minute
	defaultUsernameEntries = 4096
	DefaultAssetsBaseURL   = "http://localhost:9527/assets"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]{3,30}$`)

type usernameResult struct {
	name string
	ok   bool
}

type usernameEntry struct {
	usernameResult
	expires time.Time
}

// Resolver builds event.Author values. It is safe for concurrent use and
// starts no goroutines; memoized usernames expire lazily on lookup.
type Resolver struct {
	usernames     *lru.Cache[string, usernameEntry]
	ttl           time.Duration
	now           func() time.Time
	assetsBaseURL string
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	ttl           time.Duration
	entries       int
	assetsBaseURL string
}

// WithUsernameTTL sets the idle expiry of memoized username validations.
func WithUsernameTTL(d time.Duration) Option {
	return func(o *resolverOptions) { o.ttl = d }
}

// WithAssetsBaseURL sets the base URL of the static badge icons.
func WithAssetsBaseURL(u string) Option {
	return func(o *resolverOptions) { o.assetsBaseURL = strings.TrimRight(u, "/") }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	o := resolverOptions{
		ttl:           defaultUsernameTTL,
		entries:       defaultUsernameEntries,
		assetsBaseURL: DefaultAssetsBaseURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.entries <= 0 {
		o.entries = defaultUsernameEntries
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, usernameEntry](o.entries)
	return &Resolver{
		usernames:     cache,
		ttl:           o.ttl,
		now:           time.Now,
		assetsBaseURL: o.assetsBaseURL,
	}
}

// NormalizeUsername strips a leading "@" and validates the handle. The
// second return is false when raw does not form a valid username.
func (r *Resolver) NormalizeUsername(raw string) (string, bool) {
	now := r.now()
	entry, ok := r.usernames.Get(raw)
	if !ok || (r.ttl > 0 && !now.Before(entry.expires)) {
		entry.usernameResult = validateUsername(raw)
	}
	// Every hit pushes the expiry out, so entries only expire when idle.
	entry.expires = now.Add(r.ttl)
	r.usernames.Add(raw, entry)
	return entry.name, entry.ok
}

func validateUsername(raw string) usernameResult {
	name := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	name = norm.NFC.String(name)
	if !usernamePattern.MatchString(name) {
		return usernameResult{}
	}
	return usernameResult{name: name, ok: true}
}

// Fields are the raw values an extractor collected for one author.
type Fields struct {
	ID                string
	Username          string
	DisplayName       string
	Color             string
	ProfilePictureURL string
	Badges            []event.Badge
	Type              event.AuthorType
	// RankPalette selects the fixed per-rank palette instead of a hashed
	// color when the platform has no per-user color.
	RankPalette bool
}

// Build resolves f into a complete author. Only a missing ID is an error.
func (r *Resolver) Build(f Fields) (event.Author, error) {
	if strings.TrimSpace(f.ID) == "" {
		return event.Author{}, ErrMissingAuthorID
	}

	candidate := f.Username
	if candidate == "" {
		candidate = f.DisplayName
	}
	username, hasUsername := r.NormalizeUsername(candidate)

	displayName := strings.TrimSpace(strings.TrimPrefix(f.DisplayName, "@"))
	if displayName == "" {
		displayName = username
	}
	if displayName == "" {
		displayName = f.ID
	}

	rank := f.Type
	if rank == "" {
		rank = event.AuthorViewer
	}

	color := f.Color
	if !event.IsHexColor(color) {
		switch {
		case f.RankPalette:
			color = RankColor(rank)
		case hasUsername:
			color = Color(username)
		default:
			color = Color(displayName)
		}
	}

	badges := f.Badges
	if badges == nil {
		badges = []event.Badge{}
	}

	a := event.Author{
		AuthorID:                f.ID,
		AuthorDisplayName:       displayName,
		AuthorDisplayColor:      color,
		AuthorProfilePictureURL: event.String(f.ProfilePictureURL),
		AuthorBadges:            badges,
		AuthorType:              rank,
	}
	if hasUsername {
		a.AuthorUsername = event.String(username)
	}
	return a, nil
}
