// Package event defines the canonical, platform-independent chat events
// produced by the extractors and consumed by overlay renderers and plugins.
package event

// Kind is the string discriminator written as the "type" field of a
// serialized event.
type Kind string

const (
	KindMessage       Kind = "unichat:message"
	KindRemoveMessage Kind = "unichat:remove_message"
	KindRemoveAuthor  Kind = "unichat:remove_author"
	KindClear         Kind = "unichat:clear"
	KindRaid          Kind = "unichat:raid"
	KindSponsor       Kind = "unichat:sponsor"
	KindSponsorGift   Kind = "unichat:sponsor_gift"
	KindDonate        Kind = "unichat:donate"
	KindRedemption    Kind = "unichat:redemption"
)

// Platform identifies the source platform of an event.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
)

// OtherPlatform returns the Platform value for a source that has no
// dedicated constant.
func OtherPlatform(name string) Platform {
	return Platform(name)
}

// AuthorType is the rank of an author within a channel.
type AuthorType string

const (
	AuthorViewer      AuthorType = "VIEWER"
	AuthorSponsor     AuthorType = "SPONSOR"
	AuthorVip         AuthorType = "VIP"
	AuthorModerator   AuthorType = "MODERATOR"
	AuthorBroadcaster AuthorType = "BROADCASTER"
)

// OtherAuthorType returns an AuthorType for a rank without a dedicated constant.
func OtherAuthorType(name string) AuthorType {
	return AuthorType(name)
}

// Header is shared by every payload.
type Header struct {
	ChannelID   *string            `json:"channelId"`
	ChannelName *string            `json:"channelName"`
	Platform    Platform           `json:"platform"`
	Flags       map[string]*string `json:"flags"`
	Timestamp   int64              `json:"timestamp"`
}

// Meta returns the header itself so that every payload embedding Header
// satisfies the Meta part of Event.
func (h *Header) Meta() *Header { return h }

// Author describes who produced an event.
type Author struct {
	AuthorID                string     `json:"authorId"`
	AuthorUsername          *string    `json:"authorUsername"`
	AuthorDisplayName       string     `json:"authorDisplayName"`
	AuthorDisplayColor      string     `json:"authorDisplayColor"`
	AuthorProfilePictureURL *string    `json:"authorProfilePictureUrl"`
	AuthorBadges            []Badge    `json:"authorBadges"`
	AuthorType              AuthorType `json:"authorType"`
}

// Emote is an inline image triggered by Code in the message text.
type Emote struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	URL  string `json:"url"`
}

// Badge is an icon displayed next to an author's name.
type Badge struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// Event is implemented only by the payload types of this package.
type Event interface {
	Kind() Kind
	Meta() *Header
	Accept(v Visitor)
	sealed()
}

// Visitor has one method per event kind. A new kind adds a method here, so
// every consumer that implements Visitor stops compiling until it handles it.
type Visitor interface {
	VisitMessage(*Message)
	VisitRemoveMessage(*RemoveMessage)
	VisitRemoveAuthor(*RemoveAuthor)
	VisitClear(*Clear)
	VisitRaid(*Raid)
	VisitSponsor(*Sponsor)
	VisitSponsorGift(*SponsorGift)
	VisitDonate(*Donate)
	VisitRedemption(*Redemption)
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
