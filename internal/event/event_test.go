package event

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	return &Message{
		Header: Header{
			ChannelID:   String("12345"),
			ChannelName: String("somechannel"),
			Platform:    PlatformTwitch,
			Flags:       map[string]*string{"unichat:raw:twitch:id": String("abc"), "unichat:raw:twitch:emote-only": nil},
			Timestamp:   1700000000000,
		},
		Author: Author{
			AuthorID:           "42",
			AuthorUsername:     String("viewer"),
			AuthorDisplayName:  "Viewer",
			AuthorDisplayColor: "#1E90FF",
			AuthorBadges:       []Badge{{Code: "vip/1", URL: "https://example.com/vip.png"}},
			AuthorType:         AuthorVip,
		},
		MessageID:   "abc",
		MessageText: "Kappa hi",
		Emotes:      []Emote{{ID: "25", Code: "Kappa", URL: "https://example.com/25"}},
	}
}

func TestMarshalUsesDiscriminatorAndCamelCase(t *testing.T) {
	b, err := Marshal(sampleMessage())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "unichat:message", raw["type"])

	data, ok := raw["data"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"channelId", "channelName", "platform", "flags", "timestamp", "authorId",
		"authorUsername", "authorDisplayName", "authorDisplayColor", "authorProfilePictureUrl", "authorBadges",
		"authorType", "messageId", "messageText", "emotes"} {
		assert.Contains(t, data, key)
	}
	assert.Equal(t, "twitch", data["platform"])
	assert.Equal(t, "VIP", data["authorType"])
	assert.Nil(t, data["authorProfilePictureUrl"])
}

func TestUnmarshalRestoresEvent(t *testing.T) {
	original := sampleMessage()
	b, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(b)
	require.NoError(t, err)
	msg, ok := decoded.(*Message)
	require.True(t, ok)
	if diff := cmp.Diff(original, msg); diff != "" {
		t.Errorf("decoded message mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"unichat:nope","data":{}}`))
	assert.Error(t, err)
}

func TestOtherPlatformAndAuthorType(t *testing.T) {
	c := &Clear{Header: Header{Platform: OtherPlatform("kick"), Timestamp: 1}}
	b, err := Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unichat:clear","data":{"channelId":null,"channelName":null,"platform":"kick","flags":null,"timestamp":1}}`, string(b))
	assert.Equal(t, AuthorType("FOUNDER"), OtherAuthorType("FOUNDER"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sampleMessage()))

	noTimestamp := sampleMessage()
	noTimestamp.Timestamp = 0
	assert.ErrorIs(t, Validate(noTimestamp), ErrInvalid)

	badColor := sampleMessage()
	badColor.AuthorDisplayColor = ""
	assert.ErrorIs(t, Validate(badColor), ErrInvalid)

	noAuthor := sampleMessage()
	noAuthor.AuthorID = ""
	assert.ErrorIs(t, Validate(noAuthor), ErrInvalid)

	assert.NoError(t, Validate(&RemoveAuthor{Header: Header{Timestamp: 1}, AuthorID: "7"}))
	assert.Error(t, Validate(&RemoveAuthor{Header: Header{Timestamp: 1}}))
}

func TestIsHexColor(t *testing.T) {
	assert.True(t, IsHexColor("#FFD600"))
	assert.True(t, IsHexColor("#FFFFFFB2"))
	assert.False(t, IsHexColor("FFD600"))
	assert.False(t, IsHexColor("#FFF"))
}

type kindCounter map[Kind]int

func (k kindCounter) VisitMessage(*Message)             { k[KindMessage]++ }
func (k kindCounter) VisitRemoveMessage(*RemoveMessage) { k[KindRemoveMessage]++ }
func (k kindCounter) VisitRemoveAuthor(*RemoveAuthor)   { k[KindRemoveAuthor]++ }
func (k kindCounter) VisitClear(*Clear)                 { k[KindClear]++ }
func (k kindCounter) VisitRaid(*Raid)                   { k[KindRaid]++ }
func (k kindCounter) VisitSponsor(*Sponsor)             { k[KindSponsor]++ }
func (k kindCounter) VisitSponsorGift(*SponsorGift)     { k[KindSponsorGift]++ }
func (k kindCounter) VisitDonate(*Donate)               { k[KindDonate]++ }
func (k kindCounter) VisitRedemption(*Redemption)       { k[KindRedemption]++ }

func TestVisitorDispatchMatchesKind(t *testing.T) {
	all := []Event{&Message{}, &RemoveMessage{}, &RemoveAuthor{}, &Clear{}, &Raid{}, &Sponsor{},
		&SponsorGift{}, &Donate{}, &Redemption{}}
	counts := kindCounter{}
	for _, e := range all {
		e.Accept(counts)
		assert.Equal(t, 1, counts[e.Kind()], "kind %s", e.Kind())
	}
	assert.Len(t, counts, len(all))
}
