package twitch

import (
	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/event"
)

func (x *Extractor) userNotice(m *IRCMessage, cmd RawCommand) (event.Event, error) {
	msgID, ok := m.Tag("msg-id")
	if !ok {
		return nil, &TagError{Command: cmd.Name, Tag: "msg-id"}
	}

	switch msgID {
	case "announcement":
		msg, err := x.Message(m)
		if err != nil {
			return nil, err
		}
		msg.Flags[FlagAnnouncement] = event.String(tagOr(m, "msg-param-color", "PRIMARY"))
		return msg, nil
	case "submysterygift":
		return x.communityGift(m, cmd)
	case "raid":
		return x.raid(m, cmd)
	case "subgift":
		// Gifts that are part of a community gift are already counted by
		// the submysterygift notice.
		if m.HasTag("msg-param-community-gift-id") {
			return nil, nil
		}
		return x.singleGift(m, cmd)
	case "sub", "resub":
		return x.sponsor(m, cmd)
	case "viewermilestone":
		if v, _ := m.Tag("msg-param-category"); v != "watch-streak" {
			return nil, nil
		}
		r := &tagReader{m: m, command: cmd.Name}
		days := r.require("msg-param-value")
		if r.err != nil {
			return nil, r.err
		}
		msg, err := x.Message(m)
		if err != nil {
			return nil, err
		}
		msg.Flags[FlagWatchStreakDays] = event.String(days)
		return msg, nil
	}
	return nil, nil
}

func tagOr(m *IRCMessage, name, fallback string) string {
	if v, ok := m.Tag(name); ok {
		return v
	}
	return fallback
}

func (x *Extractor) communityGift(m *IRCMessage, cmd RawCommand) (*event.SponsorGift, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	id := r.require("id")
	count := r.requireInt("msg-param-mass-gift-count")
	tier := r.require("msg-param-sub-plan")
	a, err := x.author(r)
	if err != nil {
		return nil, err
	}
	return &event.SponsorGift{
		Header:    header,
		Author:    a,
		MessageID: id,
		Tier:      event.String(tier),
		Count:     count,
	}, nil
}

func (x *Extractor) singleGift(m *IRCMessage, cmd RawCommand) (*event.SponsorGift, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	id := r.require("id")
	tier := r.require("msg-param-sub-plan")
	a, err := x.author(r)
	if err != nil {
		return nil, err
	}
	header.Flags[FlagGiftRecipientID] = event.String(r.optional("msg-param-recipient-id"))
	header.Flags[FlagGiftRecipientName] = event.String(r.optional("msg-param-recipient-display-name"))
	return &event.SponsorGift{
		Header:    header,
		Author:    a,
		MessageID: id,
		Tier:      event.String(tier),
		Count:     1,
	}, nil
}

func (x *Extractor) raid(m *IRCMessage, cmd RawCommand) (*event.Raid, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	id := r.require("id")
	viewers := r.requireInt("msg-param-viewerCount")
	userID := r.require("user-id")
	if r.err != nil {
		return nil, r.err
	}

	login := tagOr(m, "msg-param-login", r.optional("login"))
	display := tagOr(m, "msg-param-displayName", r.optional("display-name"))
	a, err := x.authors.Build(author.Fields{
		ID:                userID,
		Username:          login,
		DisplayName:       display,
		Color:             r.optional("color"),
		ProfilePictureURL: r.optional("msg-param-profileImageURL"),
		Type:              author.TwitchRank(r.optional("badges")),
	})
	if err != nil {
		return nil, err
	}

	return &event.Raid{
		Header:                  header,
		AuthorID:                a.AuthorID,
		AuthorUsername:          a.AuthorUsername,
		AuthorDisplayName:       a.AuthorDisplayName,
		AuthorDisplayColor:      a.AuthorDisplayColor,
		AuthorProfilePictureURL: a.AuthorProfilePictureURL,
		AuthorType:              a.AuthorType,
		MessageID:               id,
		ViewerCount:             &viewers,
	}, nil
}

func (x *Extractor) sponsor(m *IRCMessage, cmd RawCommand) (*event.Sponsor, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	id := r.require("id")
	tier := r.require("msg-param-sub-plan")
	months := r.requireInt("msg-param-cumulative-months")
	a, err := x.author(r)
	if err != nil {
		return nil, err
	}

	var text *string
	found := []event.Emote{}
	if len(cmd.Params) > 1 && normalizeText(cmd.Params[1]) != "" {
		body, e := x.buildText(r, event.Deref(header.ChannelID), cmd.Params[1])
		text, found = event.String(body), e
	}
	return &event.Sponsor{
		Header:      header,
		Author:      a,
		MessageID:   id,
		Tier:        event.String(tier),
		Months:      months,
		MessageText: text,
		Emotes:      found,
	}, nil
}
