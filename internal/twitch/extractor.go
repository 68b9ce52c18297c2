// Package twitch turns Twitch IRC messages and channel points pushes into
// canonical events, and runs the live IRC connection.
package twitch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/event"
)

// Flag keys written by this package.
const (
	FlagRawPrefix         = "unichat:raw:twitch:"
	FlagAnnouncement      = "unichat:twitch:announcement"
	FlagWatchStreakDays   = "unichat:twitch:watch_streak_days"
	FlagGiftRecipientID   = "unichat:twitch:gift_recipient_id"
	FlagGiftRecipientName = "unichat:twitch:gift_recipient_name"
)

// BitsCurrency is the currency of cheer donations.
const BitsCurrency = "Bits"

// ErrMissingTag is wrapped by TagError.
var ErrMissingTag = errors.New("missing required tag")

// TagError reports a tag a branch needs but the message lacks.
type TagError struct {
	Command string
	Tag     string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%s: missing required tag %q", e.Command, e.Tag)
}

func (e *TagError) Unwrap() error { return ErrMissingTag }

// Extractor converts IRC messages into canonical events. It holds no state
// of its own; the registries it reads are owned by the caller.
type Extractor struct {
	authors    *author.Resolver
	badges     *author.BadgeRegistry
	cheermotes *CheermoteRegistry
	emotes     *emotes.Dictionary
}

// NewExtractor creates an extractor over the given registries.
func NewExtractor(authors *author.Resolver, badges *author.BadgeRegistry, cheermotes *CheermoteRegistry, dict *emotes.Dictionary) *Extractor {
	return &Extractor{authors: authors, badges: badges, cheermotes: cheermotes, emotes: dict}
}

// Extract converts one message. It returns (nil, nil) for messages that
// carry no canonical event, and an error only when the branch a message
// belongs to lacks a required tag or value.
func (x *Extractor) Extract(m *IRCMessage) (event.Event, error) {
	switch cmd := m.Command.(type) {
	case Privmsg:
		if _, ok := m.Tag("bits"); ok {
			return x.donate(m, cmd)
		}
		return x.Message(m)
	case RawCommand:
		switch cmd.Name {
		case "CLEARCHAT":
			return x.clearChat(m, cmd)
		case "CLEARMSG":
			return x.clearMessage(m, cmd)
		case "USERNOTICE":
			return x.userNotice(m, cmd)
		}
	}
	return nil, nil
}

// RewardID returns the custom reward a PRIVMSG was sent for, if any.
func RewardID(m *IRCMessage) (string, bool) {
	if _, ok := m.Command.(Privmsg); !ok {
		return "", false
	}
	return m.Tag("custom-reward-id")
}

type tagReader struct {
	m       *IRCMessage
	command string
	err     error
}

func (r *tagReader) require(name string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.m.Tag(name)
	if !ok {
		r.err = &TagError{Command: r.command, Tag: name}
	}
	return v
}

func (r *tagReader) requireInt(name string) int64 {
	v := r.require(name)
	if r.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: tag %q is not an integer: %w", r.command, name, err)
	}
	return n
}

func (r *tagReader) optional(name string) string {
	v, _ := r.m.Tag(name)
	return v
}

func flagsFromTags(tags map[string]string) map[string]*string {
	flags := make(map[string]*string, len(tags))
	for k, v := range tags {
		flags[FlagRawPrefix+k] = event.String(v)
	}
	return flags
}

func (x *Extractor) header(r *tagReader, channel string) event.Header {
	roomID := r.require("room-id")
	ts := r.requireInt("tmi-sent-ts")
	return event.Header{
		ChannelID:   event.String(roomID),
		ChannelName: event.String(channel),
		Platform:    event.PlatformTwitch,
		Flags:       flagsFromTags(r.m.Tags),
		Timestamp:   ts,
	}
}

func nickOf(m *IRCMessage) string {
	if p, ok := m.Prefix.(NickPrefix); ok {
		return p.Nick
	}
	return ""
}

func (x *Extractor) author(r *tagReader) (event.Author, error) {
	userID := r.require("user-id")
	if r.err != nil {
		return event.Author{}, r.err
	}

	username := r.optional("login")
	if username == "" {
		username = nickOf(r.m)
	}
	badgeTag := r.optional("badges")

	return x.authors.Build(author.Fields{
		ID:          userID,
		Username:    username,
		DisplayName: r.optional("display-name"),
		Color:       r.optional("color"),
		Badges:      x.badges.Resolve(badgeTag),
		Type:        author.TwitchRank(badgeTag),
	})
}

// buildText normalizes raw message text and resolves its emotes: native
// emotes from the emotes tag first, then shared emotes in order of first
// occurrence. Cheermotes are stripped only from messages that carry bits.
func (x *Extractor) buildText(r *tagReader, channelID, raw string) (string, []event.Emote) {
	normalized := normalizeText(raw)
	found := decodeEmotes(normalized, r.optional("emotes"))
	text := normalized
	if _, bits := r.m.Tag("bits"); bits {
		text = x.cheermotes.stripCheermotes(normalized)
	}
	shared := x.emotes.Scan(emotes.ChannelKey(event.PlatformTwitch, channelID), text)
	return text, emotes.AppendMissing(found, shared)
}

// Message builds a Message event from a PRIVMSG, or from a USERNOTICE that
// renders as a chat message.
func (x *Extractor) Message(m *IRCMessage) (*event.Message, error) {
	channel, text := messageTarget(m)
	r := &tagReader{m: m, command: commandName(m)}
	header := x.header(r, channel)
	id := r.require("id")
	a, err := x.author(r)
	if err != nil {
		return nil, err
	}

	body, found := x.buildText(r, event.Deref(header.ChannelID), text)
	return &event.Message{
		Header:      header,
		Author:      a,
		MessageID:   id,
		MessageText: body,
		Emotes:      found,
	}, nil
}

func (x *Extractor) donate(m *IRCMessage, cmd Privmsg) (*event.Donate, error) {
	r := &tagReader{m: m, command: "PRIVMSG"}
	header := x.header(r, cmd.Channel)
	id := r.require("id")
	bits := r.requireInt("bits")
	a, err := x.author(r)
	if err != nil {
		return nil, err
	}

	body, found := x.buildText(r, event.Deref(header.ChannelID), cmd.Text)
	return &event.Donate{
		Header:      header,
		Author:      a,
		MessageID:   id,
		Value:       float64(bits),
		Currency:    BitsCurrency,
		MessageText: body,
		Emotes:      found,
	}, nil
}

func (x *Extractor) clearChat(m *IRCMessage, cmd RawCommand) (event.Event, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	if r.err != nil {
		return nil, r.err
	}

	if target, ok := m.Tag("target-user-id"); ok {
		return &event.RemoveAuthor{Header: header, AuthorID: target}, nil
	}
	return &event.Clear{Header: header}, nil
}

func (x *Extractor) clearMessage(m *IRCMessage, cmd RawCommand) (event.Event, error) {
	r := &tagReader{m: m, command: cmd.Name}
	header := x.header(r, param(cmd, 0))
	target := r.require("target-msg-id")
	if r.err != nil {
		return nil, r.err
	}
	return &event.RemoveMessage{Header: header, MessageID: target}, nil
}

func param(cmd RawCommand, i int) string {
	if i < len(cmd.Params) {
		return channelName(cmd.Params[i])
	}
	return ""
}

func messageTarget(m *IRCMessage) (channel, text string) {
	switch cmd := m.Command.(type) {
	case Privmsg:
		return cmd.Channel, cmd.Text
	case RawCommand:
		channel = param(cmd, 0)
		if len(cmd.Params) > 1 {
			text = cmd.Params[1]
		}
	}
	return channel, text
}

func commandName(m *IRCMessage) string {
	switch cmd := m.Command.(type) {
	case Privmsg:
		return "PRIVMSG"
	case RawCommand:
		return cmd.Name
	}
	return "UNKNOWN"
}

// RoomState reports the channel a ROOMSTATE line describes. Twitch sends one
// after every successful join, which makes it the channel ready signal.
func RoomState(m *IRCMessage) (roomID, channel string, ok bool) {
	cmd, isRaw := m.Command.(RawCommand)
	if !isRaw || cmd.Name != "ROOMSTATE" {
		return "", "", false
	}
	roomID, ok = m.Tag("room-id")
	return roomID, param(cmd, 0), ok
}
