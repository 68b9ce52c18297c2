package twitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/redemption"
)

const pushJSON = `{
	"id": "red-1",
	"user": {"id": "42", "login": "someviewer", "display_name": "SomeViewer"},
	"channel_id": "1001",
	"reward": {
		"id": "reward-1",
		"title": "Hydrate",
		"prompt": "Drink water",
		"cost": 500,
		"image": null,
		"default_image": {"url_1x": "https://img/1x.png", "url_4x": "https://img/4x.png"}
	},
	"user_input": "my input",
	"redeemed_at": "2023-11-14T22:13:20Z"
}`

func TestParseRedemption(t *testing.T) {
	x := newTestExtractor()
	r, err := x.ParseRedemption([]byte(pushJSON))
	require.NoError(t, err)

	assert.Equal(t, "red-1", r.RedemptionID)
	assert.Equal(t, "reward-1", r.RewardID)
	assert.Equal(t, "Hydrate", r.RewardTitle)
	assert.Equal(t, "Drink water", event.Deref(r.RewardDescription))
	assert.Equal(t, int64(500), r.RewardCost)
	assert.Equal(t, "https://img/4x.png", r.RewardIconURL)
	assert.Equal(t, "my input", event.Deref(r.UserInput))
	assert.Equal(t, int64(1700000000000), r.Header.Timestamp)
	assert.Equal(t, "1001", event.Deref(r.Header.ChannelID))
	assert.Equal(t, "42", r.Author.AuthorID)
	assert.Equal(t, "someviewer", event.Deref(r.Author.AuthorUsername))
	assert.Equal(t, redemption.Key{RewardID: "reward-1", AuthorID: "42"}, r.Key())
	assert.True(t, r.NeedsMessage())
}

func TestParseRedemptionRejectsMissingFields(t *testing.T) {
	x := newTestExtractor()
	for name, raw := range map[string]string{
		"no id":       `{"user":{"id":"1"},"reward":{"id":"r"},"redeemed_at":"2023-11-14T22:13:20Z"}`,
		"no reward":   `{"id":"x","user":{"id":"1"},"redeemed_at":"2023-11-14T22:13:20Z"}`,
		"no user":     `{"id":"x","reward":{"id":"r"},"redeemed_at":"2023-11-14T22:13:20Z"}`,
		"bad time":    `{"id":"x","user":{"id":"1"},"reward":{"id":"r"},"redeemed_at":"yesterday"}`,
		"not json":    `{`,
		"no redeemed": `{"id":"x","user":{"id":"1"},"reward":{"id":"r"}}`,
	} {
		_, err := x.ParseRedemption([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestRedemptionHalvesCorrelate(t *testing.T) {
	x := newTestExtractor()
	cache := redemption.NewCache()
	defer cache.Close()

	reward, err := x.ParseRedemption([]byte(pushJSON))
	require.NoError(t, err)
	merged, err := cache.OfferReward(reward)
	require.NoError(t, err)
	assert.Nil(t, merged)

	tags := baseTags()
	tags["user-id"] = "42"
	tags["custom-reward-id"] = "reward-1"
	m, err := ParseIRC(privmsg(tags, "my input"))
	require.NoError(t, err)
	half, ok, err := x.RedemptionMessage(m)
	require.NoError(t, err)
	require.True(t, ok)

	merged, err = cache.OfferMessage(half)
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, "Hydrate", merged.RewardTitle)
	assert.Equal(t, "my input", event.Deref(merged.MessageText))
	assert.Equal(t, "msg-1", merged.MessageID)
}
