package twitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voguh/unichat-sub000/internal/event"
)

func noticeTags(msgID string, extra map[string]string) map[string]string {
	tags := baseTags()
	tags["msg-id"] = msgID
	tags["login"] = "someviewer"
	tags["display-name"] = "SomeViewer"
	tags["badges"] = "subscriber/12"
	for k, v := range extra {
		tags[k] = v
	}
	return tags
}

func usernotice(tags map[string]string, text string) string {
	rest := ":tmi.twitch.tv USERNOTICE #streamer"
	if text != "" {
		rest += " :" + text
	}
	return line(tags, rest)
}

func TestRaidNotice(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("raid", map[string]string{
		"msg-param-viewerCount": "42",
		"msg-param-login":       "raider",
		"msg-param-displayName": "Raider",
	})
	e := extract(t, x, usernotice(tags, ""))

	raid, ok := e.(*event.Raid)
	require.True(t, ok, "got %T", e)
	require.NotNil(t, raid.ViewerCount)
	assert.Equal(t, int64(42), *raid.ViewerCount)
	assert.Equal(t, "42", raid.AuthorID)
	assert.Equal(t, "raider", event.Deref(raid.AuthorUsername))
	assert.Equal(t, "Raider", raid.AuthorDisplayName)
	assert.Equal(t, "msg-1", raid.MessageID)
	assert.NoError(t, event.Validate(raid))
}

func TestRaidWithoutViewerCountFails(t *testing.T) {
	x := newTestExtractor()
	m, err := ParseIRC(usernotice(noticeTags("raid", nil), ""))
	require.NoError(t, err)
	_, err = x.Extract(m)
	assert.ErrorIs(t, err, ErrMissingTag)
}

func TestSubAndResub(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("resub", map[string]string{
		"msg-param-sub-plan":          "1000",
		"msg-param-cumulative-months": "7",
	})
	e := extract(t, x, usernotice(tags, "seven months Kappa"))
	sponsor, ok := e.(*event.Sponsor)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, "1000", event.Deref(sponsor.Tier))
	assert.Equal(t, int64(7), sponsor.Months)
	assert.Equal(t, "seven months Kappa", event.Deref(sponsor.MessageText))
	assert.Equal(t, event.AuthorSponsor, sponsor.AuthorType)

	tags["msg-id"] = "sub"
	tags["msg-param-cumulative-months"] = "1"
	sponsor = extract(t, x, usernotice(tags, "")).(*event.Sponsor)
	assert.Nil(t, sponsor.MessageText)
	assert.Empty(t, sponsor.Emotes)
}

func TestCommunityGift(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("submysterygift", map[string]string{
		"msg-param-mass-gift-count": "5",
		"msg-param-sub-plan":        "2000",
	})
	gift := extract(t, x, usernotice(tags, "")).(*event.SponsorGift)
	assert.Equal(t, int64(5), gift.Count)
	assert.Equal(t, "2000", event.Deref(gift.Tier))
}

func TestSingleGift(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("subgift", map[string]string{
		"msg-param-sub-plan":               "1000",
		"msg-param-recipient-id":           "555",
		"msg-param-recipient-display-name": "Lucky",
	})
	gift := extract(t, x, usernotice(tags, "")).(*event.SponsorGift)
	assert.Equal(t, int64(1), gift.Count)
	assert.Equal(t, "555", event.Deref(gift.Flags[FlagGiftRecipientID]))
	assert.Equal(t, "Lucky", event.Deref(gift.Flags[FlagGiftRecipientName]))
}

func TestGiftInsideCommunityGiftIsSkipped(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("subgift", map[string]string{
		"msg-param-sub-plan":          "1000",
		"msg-param-community-gift-id": "123456",
	})
	assert.Nil(t, extract(t, x, usernotice(tags, "")))
}

func TestAnnouncement(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("announcement", map[string]string{"msg-param-color": "BLUE"})
	msg := extract(t, x, usernotice(tags, "big news")).(*event.Message)
	assert.Equal(t, "big news", msg.MessageText)
	assert.Equal(t, "BLUE", event.Deref(msg.Flags[FlagAnnouncement]))
}

func TestWatchStreak(t *testing.T) {
	x := newTestExtractor()
	tags := noticeTags("viewermilestone", map[string]string{
		"msg-param-category": "watch-streak",
		"msg-param-value":    "10",
	})
	msg := extract(t, x, usernotice(tags, "ten in a row")).(*event.Message)
	assert.Equal(t, "10", event.Deref(msg.Flags[FlagWatchStreakDays]))

	tags["msg-param-category"] = "something-else"
	assert.Nil(t, extract(t, x, usernotice(tags, "")))
}

func TestUnknownNoticeIsDropped(t *testing.T) {
	x := newTestExtractor()
	assert.Nil(t, extract(t, x, usernotice(noticeTags("bitsbadgetier", nil), "")))
}

func TestNoticeWithoutMsgIDFails(t *testing.T) {
	x := newTestExtractor()
	tags := baseTags()
	m, err := ParseIRC(usernotice(tags, ""))
	require.NoError(t, err)
	_, err = x.Extract(m)
	assert.ErrorIs(t, err, ErrMissingTag)
}
