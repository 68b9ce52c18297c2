package author

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/voguh/unichat-sub000/internal/event"
)

func TestNormalizeUsername(t *testing.T) {
	r := NewResolver()

	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"@SomeHandle", "SomeHandle", true},
		{"viewer_01", "viewer_01", true},
		{"josé.silva-2", "josé.silva-2", true},
		{"ab", "", false},
		{"has space", "", false},
		{"@", "", false},
		{"this_name_is_way_too_long_for_a_handle", "", false},
		{"emoji😀name", "", false},
	}
	for _, tc := range cases {
		got, ok := r.NormalizeUsername(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestNormalizeUsernameMemoizes(t *testing.T) {
	r := NewResolver(WithUsernameTTL(time.Minute))

	name, ok := r.NormalizeUsername("@cached")
	require.True(t, ok)
	assert.Equal(t, "cached", name)
	assert.Equal(t, 1, r.usernames.Len())

	name, ok = r.NormalizeUsername("@cached")
	require.True(t, ok)
	assert.Equal(t, "cached", name)
	assert.Equal(t, 1, r.usernames.Len())
}

func TestMemoizedUsernamesExpireWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1700000000, 0)
	r := NewResolver(WithUsernameTTL(time.Minute))
	r.now = func() time.Time { return now }

	_, ok := r.NormalizeUsername("viewer")
	require.True(t, ok)
	first, _ := r.usernames.Peek("viewer")

	now = now.Add(30 * time.Second)
	_, _ = r.NormalizeUsername("viewer")
	touched, _ := r.usernames.Peek("viewer")
	assert.True(t, touched.expires.After(first.expires))

	now = now.Add(2 * time.Minute)
	name, ok := r.NormalizeUsername("viewer")
	require.True(t, ok)
	assert.Equal(t, "viewer", name)
	renewed, _ := r.usernames.Peek("viewer")
	assert.Equal(t, now.Add(time.Minute), renewed.expires)
}

func TestColorIsDeterministic(t *testing.T) {
	a := Color("someviewer")
	assert.Equal(t, a, Color("someviewer"))
	assert.Equal(t, a, Color("SomeViewer"))
	assert.True(t, event.IsHexColor(a))
	assert.NotEqual(t, a, Color("otherviewer"))
	assert.True(t, event.IsHexColor(Color("")))
}

func TestColorDistribution(t *testing.T) {
	seen := make(map[string]bool)
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy"}
	for _, n := range names {
		seen[Color(n)] = true
	}
	assert.Len(t, seen, len(names))
}

func TestRankColor(t *testing.T) {
	assert.Equal(t, ColorBroadcaster, RankColor(event.AuthorBroadcaster))
	assert.Equal(t, ColorModerator, RankColor(event.AuthorModerator))
	assert.Equal(t, ColorSponsor, RankColor(event.AuthorSponsor))
	assert.Equal(t, ColorViewer, RankColor(event.AuthorViewer))
	assert.Equal(t, ColorViewer, RankColor(event.AuthorVip))
}

func TestBuild(t *testing.T) {
	r := NewResolver()

	t.Run("missing id", func(t *testing.T) {
		_, err := r.Build(Fields{DisplayName: "Someone"})
		assert.ErrorIs(t, err, ErrMissingAuthorID)
	})

	t.Run("explicit color wins", func(t *testing.T) {
		a, err := r.Build(Fields{ID: "1", Username: "viewer", DisplayName: "Viewer", Color: "#FF0000"})
		require.NoError(t, err)
		assert.Equal(t, "#FF0000", a.AuthorDisplayColor)
		assert.Equal(t, "viewer", event.Deref(a.AuthorUsername))
		assert.Equal(t, event.AuthorViewer, a.AuthorType)
		assert.NotNil(t, a.AuthorBadges)
	})

	t.Run("derived color", func(t *testing.T) {
		a, err := r.Build(Fields{ID: "1", Username: "viewer", DisplayName: "Viewer"})
		require.NoError(t, err)
		assert.Equal(t, Color("viewer"), a.AuthorDisplayColor)
	})

	t.Run("rank palette", func(t *testing.T) {
		a, err := r.Build(Fields{ID: "UC1", DisplayName: "@Owner", Type: event.AuthorBroadcaster, RankPalette: true})
		require.NoError(t, err)
		assert.Equal(t, ColorBroadcaster, a.AuthorDisplayColor)
		assert.Equal(t, "Owner", a.AuthorDisplayName)
		assert.Equal(t, "Owner", event.Deref(a.AuthorUsername))
	})

	t.Run("invalid username keeps display name only", func(t *testing.T) {
		a, err := r.Build(Fields{ID: "UC2", DisplayName: "Nice Person", RankPalette: true})
		require.NoError(t, err)
		assert.Nil(t, a.AuthorUsername)
		assert.Equal(t, "Nice Person", a.AuthorDisplayName)
		assert.Equal(t, ColorViewer, a.AuthorDisplayColor)
	})
}

func TestBadgeRegistryResolve(t *testing.T) {
	reg := NewBadgeRegistry()
	reg.Replace(map[string]event.Badge{
		"moderator/1":         {URL: "https://cdn/mod"},
		"global/subscriber/0": {URL: "https://cdn/sub-global"},
		"global/vip/1":        {URL: "https://cdn/vip-global"},
	})

	badges := reg.Resolve("moderator/1,subscriber/0,vip/1,unknown/3")
	require.Len(t, badges, 2)
	assert.Equal(t, event.Badge{Code: "moderator/1", URL: "https://cdn/mod"}, badges[0])
	assert.Equal(t, event.Badge{Code: "subscriber/0", URL: "https://cdn/sub-global"}, badges[1])

	assert.Empty(t, reg.Resolve("unknown/1"))
	assert.NotNil(t, reg.Resolve(""))
}

func TestBadgeRegistryChannelOverridesGlobal(t *testing.T) {
	reg := NewBadgeRegistry()
	reg.Set("global/subscriber/12", event.Badge{URL: "https://cdn/global"})
	reg.Set("subscriber/12", event.Badge{URL: "https://cdn/channel"})

	b, ok := reg.Lookup("subscriber/12")
	require.True(t, ok)
	assert.Equal(t, "https://cdn/channel", b.URL)
	assert.Equal(t, 2, reg.Len())
}

func TestTwitchRank(t *testing.T) {
	assert.Equal(t, event.AuthorBroadcaster, TwitchRank("broadcaster/1,subscriber/0"))
	assert.Equal(t, event.AuthorModerator, TwitchRank("subscriber/12,moderator/1"))
	assert.Equal(t, event.AuthorVip, TwitchRank("vip/1"))
	assert.Equal(t, event.AuthorSponsor, TwitchRank("subscriber/3"))
	assert.Equal(t, event.AuthorSponsor, TwitchRank("founder/0"))
	assert.Equal(t, event.AuthorViewer, TwitchRank(""))
	assert.Equal(t, event.AuthorViewer, TwitchRank("premium/1"))
}

func TestTwitchRankMatchesWholeTokens(t *testing.T) {
	// "vip" inside another set name must not promote the author.
	assert.Equal(t, event.AuthorViewer, TwitchRank("vipers-club/1"))
	assert.Equal(t, event.AuthorViewer, TwitchRank("not-a-moderator/1"))
}

func TestYouTubeBadgeAndRank(t *testing.T) {
	r := NewResolver(WithAssetsBaseURL("http://assets.local/"))

	owner, ok := r.YouTubeBadge(IconOwner)
	require.True(t, ok)
	assert.Equal(t, "http://assets.local/youtube/broadcaster.png", owner.URL)

	mod, ok := r.YouTubeBadge(IconModerator)
	require.True(t, ok)
	verified, ok := r.YouTubeBadge(IconVerified)
	require.True(t, ok)
	_, ok = r.YouTubeBadge("SOMETHING_ELSE")
	assert.False(t, ok)

	assert.Equal(t, event.AuthorBroadcaster, YouTubeRank([]event.Badge{verified, owner}))
	assert.Equal(t, event.AuthorModerator, YouTubeRank([]event.Badge{mod, SponsorBadge("x")}))
	assert.Equal(t, event.AuthorSponsor, YouTubeRank([]event.Badge{SponsorBadge("x")}))
	assert.Equal(t, event.AuthorViewer, YouTubeRank([]event.Badge{verified}))
}

func TestKickBadgeAndRank(t *testing.T) {
	r := NewResolver(WithAssetsBaseURL("http://assets.local"))
	mod, ok := r.KickBadge("Moderator")
	require.True(t, ok)
	assert.Equal(t, event.Badge{Code: "moderator", URL: "http://assets.local/kick/moderator.png"}, mod)
	_, ok = r.KickBadge(" ")
	assert.False(t, ok)

	assert.Equal(t, event.AuthorSponsor, RankFromSets([]string{"og", "founder"}))
	assert.Equal(t, event.AuthorVip, RankFromSets([]string{"subscriber", "vip"}))
}
