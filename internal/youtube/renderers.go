package youtube

import "encoding/json"

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type thumbnails struct {
	Thumbnails []thumbnail `json:"thumbnails"`
}

// best returns the widest thumbnail URL, or the last one when no widths are
// reported.
func (t *thumbnails) best() string {
	if t == nil || len(t.Thumbnails) == 0 {
		return ""
	}
	best := t.Thumbnails[len(t.Thumbnails)-1]
	for _, th := range t.Thumbnails {
		if th.Width > best.Width {
			best = th
		}
	}
	return absoluteURL(best.URL)
}

func absoluteURL(u string) string {
	if len(u) > 2 && u[0] == '/' && u[1] == '/' {
		return "https:" + u
	}
	return u
}

type simpleText struct {
	SimpleText string `json:"simpleText"`
}

type accessibility struct {
	AccessibilityData struct {
		Label string `json:"label"`
	} `json:"accessibilityData"`
}

type authorBadge struct {
	Renderer *struct {
		CustomThumbnail *thumbnails `json:"customThumbnail"`
		Icon            *struct {
			IconType string `json:"iconType"`
		} `json:"icon"`
		Tooltip string `json:"tooltip"`
	} `json:"liveChatAuthorBadgeRenderer"`
}

// authorFields are shared by every renderer that names an author.
type authorFields struct {
	AuthorExternalChannelID string        `json:"authorExternalChannelId"`
	AuthorName              *simpleText   `json:"authorName"`
	AuthorPhoto             *thumbnails   `json:"authorPhoto"`
	AuthorBadges            []authorBadge `json:"authorBadges"`
}

type itemFields struct {
	ID            string `json:"id"`
	TimestampUsec string `json:"timestampUsec"`
}

type textMessageRenderer struct {
	itemFields
	authorFields
	Message *message `json:"message"`
}

type membershipRenderer struct {
	itemFields
	authorFields
	HeaderPrimaryText *message `json:"headerPrimaryText"`
	HeaderSubtext     *message `json:"headerSubtext"`
	Message           *message `json:"message"`
}

type paidMessageRenderer struct {
	itemFields
	authorFields
	PurchaseAmountText    *simpleText `json:"purchaseAmountText"`
	Message               *message    `json:"message"`
	HeaderBackgroundColor int64       `json:"headerBackgroundColor"`
	BodyBackgroundColor   int64       `json:"bodyBackgroundColor"`
}

type paidStickerRenderer struct {
	itemFields
	authorFields
	PurchaseAmountText *simpleText `json:"purchaseAmountText"`
	Sticker            *struct {
		thumbnails
		Accessibility accessibility `json:"accessibility"`
	} `json:"sticker"`
	BackgroundColor int64 `json:"backgroundColor"`
}

type giftPurchaseRenderer struct {
	itemFields
	AuthorExternalChannelID string `json:"authorExternalChannelId"`
	Header                  *struct {
		Renderer *struct {
			authorFields
			PrimaryText *message `json:"primaryText"`
		} `json:"liveChatSponsorshipsHeaderRenderer"`
	} `json:"header"`
}

type chatItem struct {
	TextMessage  *textMessageRenderer  `json:"liveChatTextMessageRenderer"`
	Membership   *membershipRenderer   `json:"liveChatMembershipItemRenderer"`
	PaidMessage  *paidMessageRenderer  `json:"liveChatPaidMessageRenderer"`
	PaidSticker  *paidStickerRenderer  `json:"liveChatPaidStickerRenderer"`
	GiftPurchase *giftPurchaseRenderer `json:"liveChatSponsorshipsGiftPurchaseAnnouncementRenderer"`
}

type bannerRedirectRenderer struct {
	BannerMessage *message    `json:"bannerMessage"`
	AuthorPhoto   *thumbnails `json:"authorPhoto"`
	InlineButton  *struct {
		ButtonRenderer *struct {
			Command *struct {
				URLEndpoint *struct {
					URL string `json:"url"`
				} `json:"urlEndpoint"`
				BrowseEndpoint *struct {
					BrowseID string `json:"browseId"`
				} `json:"browseEndpoint"`
			} `json:"command"`
		} `json:"buttonRenderer"`
	} `json:"inlineActionButton"`
}

type bannerRenderer struct {
	ActionID   string `json:"actionId"`
	BannerType string `json:"bannerType"`
	Contents   *struct {
		Redirect *bannerRedirectRenderer `json:"liveChatBannerRedirectRenderer"`
	} `json:"contents"`
}

// action is the subset of a chat action this package reads. Exactly one of
// the pointers is set for a known action.
type action struct {
	AddChatItem *struct {
		Item     json.RawMessage `json:"item"`
		ClientID string          `json:"clientId"`
	} `json:"addChatItemAction"`
	RemoveChatItem *struct {
		TargetItemID string `json:"targetItemId"`
	} `json:"removeChatItemAction"`
	RemoveChatItemByAuthor *struct {
		ExternalChannelID string `json:"externalChannelId"`
	} `json:"removeChatItemByAuthorAction"`
	AddBanner *struct {
		BannerRenderer *struct {
			Renderer *bannerRenderer `json:"liveChatBannerRenderer"`
		} `json:"bannerRenderer"`
	} `json:"addBannerToLiveChatCommand"`
}
