// Package youtube turns chat actions of the YouTube live chat renderer tree
// into canonical events.
package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/event"
)

// Flag keys written by this package.
const (
	FlagRawPrefix             = "unichat:raw:youtube:"
	FlagPaidSticker           = "unichat:youtube:paid_sticker"
	FlagHeaderBackgroundColor = "unichat:youtube:header_background_color"
	FlagBodyBackgroundColor   = "unichat:youtube:body_background_color"
)

const raidBannerType = "LIVE_CHAT_BANNER_TYPE_CROSS_CHANNEL_REDIRECT"

var (
	// ErrMissingField is wrapped when a renderer lacks a field its branch needs.
	ErrMissingField = errors.New("missing required field")
	// ErrUnexpectedShape is wrapped when a field has a shape the parser does
	// not recognise.
	ErrUnexpectedShape = errors.New("unexpected shape")
)

func missing(renderer, field string) error {
	return fmt.Errorf("%s: %w %q", renderer, ErrMissingField, field)
}

// Channel is the live chat the actions were captured from.
type Channel struct {
	ID   string
	Name string
}

func (c Channel) key() string {
	return emotes.ChannelKey(event.PlatformYouTube, c.ID)
}

// Extractor converts chat actions into canonical events.
type Extractor struct {
	authors *author.Resolver
	emotes  *emotes.Dictionary
	now     func() time.Time
}

// NewExtractor creates an extractor over the given registries.
func NewExtractor(authors *author.Resolver, dict *emotes.Dictionary) *Extractor {
	return &Extractor{authors: authors, emotes: dict, now: time.Now}
}

// Extract converts one action object. Actions and renderers this package
// does not know yield (nil, nil).
func (x *Extractor) Extract(ch Channel, raw json.RawMessage) (event.Event, error) {
	var a action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch {
	case a.AddChatItem != nil:
		return x.chatItem(ch, a.AddChatItem.Item, a.AddChatItem.ClientID)
	case a.RemoveChatItem != nil:
		if a.RemoveChatItem.TargetItemID == "" {
			return nil, missing("removeChatItemAction", "targetItemId")
		}
		return &event.RemoveMessage{
			Header:    x.liveHeader(ch, "removeChatItemAction"),
			MessageID: a.RemoveChatItem.TargetItemID,
		}, nil
	case a.RemoveChatItemByAuthor != nil:
		if a.RemoveChatItemByAuthor.ExternalChannelID == "" {
			return nil, missing("removeChatItemByAuthorAction", "externalChannelId")
		}
		return &event.RemoveAuthor{
			Header:   x.liveHeader(ch, "removeChatItemByAuthorAction"),
			AuthorID: a.RemoveChatItemByAuthor.ExternalChannelID,
		}, nil
	case a.AddBanner != nil && a.AddBanner.BannerRenderer != nil && a.AddBanner.BannerRenderer.Renderer != nil:
		return x.banner(ch, a.AddBanner.BannerRenderer.Renderer)
	}
	return nil, nil
}

func (x *Extractor) chatItem(ch Channel, raw json.RawMessage, clientID string) (event.Event, error) {
	if len(raw) == 0 {
		return nil, missing("addChatItemAction", "item")
	}
	var item chatItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode chat item: %w", err)
	}

	var (
		e   event.Event
		err error
	)
	switch {
	case item.TextMessage != nil:
		e, err = x.textMessage(ch, item.TextMessage)
	case item.Membership != nil:
		e, err = x.membership(ch, item.Membership)
	case item.PaidMessage != nil:
		e, err = x.paidMessage(ch, item.PaidMessage)
	case item.PaidSticker != nil:
		e, err = x.paidSticker(ch, item.PaidSticker)
	case item.GiftPurchase != nil:
		e, err = x.giftPurchase(ch, item.GiftPurchase)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if clientID != "" {
		e.Meta().Flags[FlagRawPrefix+"clientId"] = event.String(clientID)
	}
	return e, nil
}

func (x *Extractor) header(ch Channel, renderer string, f itemFields) (event.Header, error) {
	if f.ID == "" {
		return event.Header{}, missing(renderer, "id")
	}
	if f.TimestampUsec == "" {
		return event.Header{}, missing(renderer, "timestampUsec")
	}
	ts, err := strconv.ParseInt(f.TimestampUsec, 10, 64)
	if err != nil {
		return event.Header{}, fmt.Errorf("%s: %w: timestampUsec %q", renderer, ErrUnexpectedShape, f.TimestampUsec)
	}
	h := x.liveHeader(ch, renderer)
	h.Timestamp = ts
	h.Flags[FlagRawPrefix+"id"] = event.String(f.ID)
	return h, nil
}

// liveHeader is the header of actions that carry no timestamp of their own.
func (x *Extractor) liveHeader(ch Channel, renderer string) event.Header {
	return event.Header{
		ChannelID:   event.String(ch.ID),
		ChannelName: event.String(ch.Name),
		Platform:    event.PlatformYouTube,
		Flags:       map[string]*string{FlagRawPrefix + "renderer": event.String(renderer)},
		Timestamp:   x.now().UnixMicro(),
	}
}

func (x *Extractor) badges(in []authorBadge) []event.Badge {
	out := []event.Badge{}
	for _, b := range in {
		r := b.Renderer
		if r == nil {
			continue
		}
		if r.CustomThumbnail != nil {
			out = append(out, author.SponsorBadge(r.CustomThumbnail.best()))
			continue
		}
		if r.Icon != nil {
			if badge, ok := x.authors.YouTubeBadge(r.Icon.IconType); ok {
				out = append(out, badge)
			}
		}
	}
	return out
}

func (x *Extractor) author(renderer string, f authorFields) (event.Author, error) {
	if f.AuthorExternalChannelID == "" {
		return event.Author{}, missing(renderer, "authorExternalChannelId")
	}
	var name string
	if f.AuthorName != nil {
		name = f.AuthorName.SimpleText
	}
	badges := x.badges(f.AuthorBadges)
	return x.authors.Build(author.Fields{
		ID:                f.AuthorExternalChannelID,
		Username:          name,
		DisplayName:       name,
		ProfilePictureURL: f.AuthorPhoto.best(),
		Badges:            badges,
		Type:              author.YouTubeRank(badges),
		RankPalette:       true,
	})
}

func (x *Extractor) textMessage(ch Channel, r *textMessageRenderer) (*event.Message, error) {
	const name = "liveChatTextMessageRenderer"
	h, err := x.header(ch, name, r.itemFields)
	if err != nil {
		return nil, err
	}
	a, err := x.author(name, r.authorFields)
	if err != nil {
		return nil, err
	}
	text, found := buildMessage(r.Message, x.emotes, ch.key())
	return &event.Message{Header: h, Author: a, MessageID: r.ID, MessageText: text, Emotes: found}, nil
}

func (x *Extractor) membership(ch Channel, r *membershipRenderer) (*event.Sponsor, error) {
	const name = "liveChatMembershipItemRenderer"
	h, err := x.header(ch, name, r.itemFields)
	if err != nil {
		return nil, err
	}
	a, err := x.author(name, r.authorFields)
	if err != nil {
		return nil, err
	}

	var (
		tier   string
		months int64 = 1
	)
	switch {
	case r.HeaderPrimaryText != nil && len(r.HeaderPrimaryText.Runs) > 0:
		// Milestone: "Member for <N> months" with the tier as subtext.
		n, ok := firstNumber(r.HeaderPrimaryText.texts())
		if !ok {
			return nil, fmt.Errorf("%s: %w: headerPrimaryText has no month count", name, ErrUnexpectedShape)
		}
		months = n
		if r.HeaderSubtext != nil {
			tier = strings.TrimSpace(r.HeaderSubtext.plain())
		}
	case r.HeaderSubtext != nil:
		// New member: "Welcome to <tier>!".
		runs := r.HeaderSubtext.texts()
		if len(runs) > 1 {
			tier = strings.TrimSpace(runs[1].Text)
		} else {
			tier = strings.TrimSpace(r.HeaderSubtext.plain())
		}
	default:
		return nil, missing(name, "headerSubtext")
	}

	var text *string
	found := []event.Emote{}
	if r.Message != nil {
		body, e := buildMessage(r.Message, x.emotes, ch.key())
		text, found = event.String(body), e
	}
	return &event.Sponsor{
		Header:      h,
		Author:      a,
		MessageID:   r.ID,
		Tier:        event.String(tier),
		Months:      months,
		MessageText: text,
		Emotes:      found,
	}, nil
}

func (x *Extractor) paidMessage(ch Channel, r *paidMessageRenderer) (*event.Donate, error) {
	const name = "liveChatPaidMessageRenderer"
	h, err := x.header(ch, name, r.itemFields)
	if err != nil {
		return nil, err
	}
	a, err := x.author(name, r.authorFields)
	if err != nil {
		return nil, err
	}
	if r.PurchaseAmountText == nil || r.PurchaseAmountText.SimpleText == "" {
		return nil, missing(name, "purchaseAmountText")
	}
	currency, value, err := parseAmount(r.PurchaseAmountText.SimpleText)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnexpectedShape, err)
	}

	if r.HeaderBackgroundColor != 0 {
		h.Flags[FlagHeaderBackgroundColor] = event.String(argbHex(r.HeaderBackgroundColor))
	}
	if r.BodyBackgroundColor != 0 {
		h.Flags[FlagBodyBackgroundColor] = event.String(argbHex(r.BodyBackgroundColor))
	}

	text, found := buildMessage(r.Message, x.emotes, ch.key())
	return &event.Donate{
		Header:      h,
		Author:      a,
		MessageID:   r.ID,
		Value:       value,
		Currency:    currency,
		MessageText: text,
		Emotes:      found,
	}, nil
}

func (x *Extractor) paidSticker(ch Channel, r *paidStickerRenderer) (*event.Donate, error) {
	const name = "liveChatPaidStickerRenderer"
	h, err := x.header(ch, name, r.itemFields)
	if err != nil {
		return nil, err
	}
	a, err := x.author(name, r.authorFields)
	if err != nil {
		return nil, err
	}
	if r.PurchaseAmountText == nil || r.PurchaseAmountText.SimpleText == "" {
		return nil, missing(name, "purchaseAmountText")
	}
	if r.Sticker == nil {
		return nil, missing(name, "sticker")
	}
	currency, value, err := parseAmount(r.PurchaseAmountText.SimpleText)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnexpectedShape, err)
	}

	code := r.Sticker.Accessibility.AccessibilityData.Label
	if code == "" {
		code = "sticker"
	}
	h.Flags[FlagPaidSticker] = event.String("true")
	return &event.Donate{
		Header:    h,
		Author:    a,
		MessageID: r.ID,
		Value:     value,
		Currency:  currency,
		Emotes:    []event.Emote{{ID: "sticker", Code: code, URL: r.Sticker.best()}},
	}, nil
}

func (x *Extractor) giftPurchase(ch Channel, r *giftPurchaseRenderer) (*event.SponsorGift, error) {
	const name = "liveChatSponsorshipsGiftPurchaseAnnouncementRenderer"
	h, err := x.header(ch, name, r.itemFields)
	if err != nil {
		return nil, err
	}
	if r.Header == nil || r.Header.Renderer == nil {
		return nil, missing(name, "header.liveChatSponsorshipsHeaderRenderer")
	}
	inner := r.Header.Renderer
	fields := inner.authorFields
	if fields.AuthorExternalChannelID == "" {
		fields.AuthorExternalChannelID = r.AuthorExternalChannelID
	}
	a, err := x.author(name, fields)
	if err != nil {
		return nil, err
	}
	if inner.PrimaryText == nil {
		return nil, missing(name, "primaryText")
	}

	count, tier, err := parseGiftHeader(inner.PrimaryText.texts())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &event.SponsorGift{
		Header:    h,
		Author:    a,
		MessageID: r.ID,
		Tier:      event.String(tier),
		Count:     count,
	}, nil
}

// parseGiftHeader reads "Sent <count> <tier> gift memberships". The count is
// the first bold all-digit run and the tier the next non-blank run before the
// trailing phrase. Without a bold count it falls back to the fixed layout
// (count at index 1, tier at index 3).
func parseGiftHeader(runs []textRun) (int64, string, error) {
	for i, r := range runs {
		if !r.Bold {
			continue
		}
		n, ok := parseCount(r.Text)
		if !ok {
			continue
		}
		var tier string
		for j := i + 1; j < len(runs)-1; j++ {
			if t := strings.TrimSpace(runs[j].Text); t != "" {
				tier = t
				break
			}
		}
		return n, tier, nil
	}

	if len(runs) < 4 {
		return 0, "", fmt.Errorf("%w: primaryText has %d runs", ErrUnexpectedShape, len(runs))
	}
	n, ok := parseCount(runs[1].Text)
	if !ok {
		return 0, "", fmt.Errorf("%w: gift count %q", ErrUnexpectedShape, runs[1].Text)
	}
	return n, strings.TrimSpace(runs[3].Text), nil
}

func parseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func firstNumber(runs []textRun) (int64, bool) {
	for _, r := range runs {
		if n, ok := parseCount(r.Text); ok {
			return n, true
		}
	}
	return 0, false
}

func (x *Extractor) banner(ch Channel, r *bannerRenderer) (event.Event, error) {
	const name = "liveChatBannerRenderer"
	if r.BannerType != raidBannerType || r.Contents == nil || r.Contents.Redirect == nil {
		return nil, nil
	}
	redirect := r.Contents.Redirect
	runs := redirect.BannerMessage.texts()
	if len(runs) == 0 || !runs[0].Bold {
		return nil, nil
	}
	if r.ActionID == "" {
		return nil, missing(name, "actionId")
	}

	raider := strings.TrimSpace(runs[0].Text)
	id := raider
	if b := redirect.InlineButton; b != nil && b.ButtonRenderer != nil && b.ButtonRenderer.Command != nil {
		if be := b.ButtonRenderer.Command.BrowseEndpoint; be != nil && be.BrowseID != "" {
			id = be.BrowseID
		}
	}
	a, err := x.authors.Build(author.Fields{
		ID:                id,
		Username:          raider,
		DisplayName:       raider,
		ProfilePictureURL: redirect.AuthorPhoto.best(),
		Badges:            []event.Badge{},
		Type:              event.AuthorViewer,
		RankPalette:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &event.Raid{
		Header:                  x.liveHeader(ch, name),
		AuthorID:                a.AuthorID,
		AuthorUsername:          a.AuthorUsername,
		AuthorDisplayName:       a.AuthorDisplayName,
		AuthorDisplayColor:      a.AuthorDisplayColor,
		AuthorProfilePictureURL: a.AuthorProfilePictureURL,
		AuthorType:              a.AuthorType,
		MessageID:               r.ActionID,
	}, nil
}

// argbHex converts a packed 0xAARRGGBB color into #RRGGBBAA.
func argbHex(v int64) string {
	c := uint32(v)
	return fmt.Sprintf("#%06X%02X", c&0xFFFFFF, c>>24)
}
