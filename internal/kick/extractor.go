package kick

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/event"
)

// Platform is the platform value of Kick events.
const Platform event.Platform = "kick"

// FlagRawPrefix namespaces raw Kick values copied into flags.
const FlagRawPrefix = "unichat:raw:kick:"

const emoteURLBase = "https://files.kick.com/emotes/"

// emoteMarkup matches inline emotes: [emote:<id>:<code>].
var emoteMarkup = regexp.MustCompile(`\[emote:(\d+):([^\]\s]+)\]`)

// Badge is a Kick identity badge.
type Badge struct {
	Type string
	Text string
}

// ChatMessage is one Kick chat message as read from the websocket.
type ChatMessage struct {
	ChatroomID int
	SenderID   int
	Username   string
	Content    string
	Badges     []Badge
	CreatedAt  time.Time
}

// Channel is a joined chatroom.
type Channel struct {
	ChatroomID int
	Slug       string
}

// Extractor converts Kick chat messages into canonical messages.
type Extractor struct {
	authors *author.Resolver
	emotes  *emotes.Dictionary
	now     func() time.Time
}

// NewExtractor creates an extractor.
func NewExtractor(authors *author.Resolver, dict *emotes.Dictionary) *Extractor {
	return &Extractor{authors: authors, emotes: dict, now: time.Now}
}

// Extract builds a Message. Kick messages carry no id on this transport, so
// the message id is a random UUID.
func (x *Extractor) Extract(ch Channel, m ChatMessage) (*event.Message, error) {
	badges := []event.Badge{}
	types := make([]string, 0, len(m.Badges))
	for _, b := range m.Badges {
		if badge, ok := x.authors.KickBadge(b.Type); ok {
			badges = append(badges, badge)
			types = append(types, badge.Code)
		}
	}

	a, err := x.authors.Build(author.Fields{
		ID:          senderID(m.SenderID),
		Username:    m.Username,
		DisplayName: m.Username,
		Badges:      badges,
		Type:        author.RankFromSets(types),
	})
	if err != nil {
		return nil, err
	}

	ts := m.CreatedAt
	if ts.IsZero() {
		ts = x.now()
	}
	chatroom := strconv.Itoa(ch.ChatroomID)
	text, found := x.buildText(chatroom, m.Content)

	return &event.Message{
		Header: event.Header{
			ChannelID:   event.String(chatroom),
			ChannelName: event.String(ch.Slug),
			Platform:    Platform,
			Flags: map[string]*string{
				FlagRawPrefix + "sender_id": event.String(senderID(m.SenderID)),
				FlagRawPrefix + "badges":    event.String(formatBadges(m.Badges)),
			},
			Timestamp: ts.UnixMilli(),
		},
		Author:      a,
		MessageID:   uuid.NewString(),
		MessageText: text,
		Emotes:      found,
	}, nil
}

func senderID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

// buildText replaces emote markup with the emote code and appends shared
// emotes found in the resulting text.
func (x *Extractor) buildText(chatroom, content string) (string, []event.Emote) {
	found := []event.Emote{}
	text := emoteMarkup.ReplaceAllStringFunc(content, func(s string) string {
		parts := emoteMarkup.FindStringSubmatch(s)
		found = append(found, event.Emote{ID: parts[1], Code: parts[2], URL: emoteURLBase + parts[1] + "/fullsize"})
		return parts[2]
	})
	text = strings.TrimSpace(text)
	shared := x.emotes.Scan(emotes.ChannelKey(Platform, chatroom), text)
	return text, emotes.AppendMissing(found, shared)
}

// formatBadges renders badges as "type:text" pairs, comma separated.
func formatBadges(badges []Badge) string {
	parts := make([]string, 0, len(badges))
	for _, b := range badges {
		if b.Text != "" {
			parts = append(parts, b.Type+":"+b.Text)
		} else {
			parts = append(parts, b.Type)
		}
	}
	return strings.Join(parts, ",")
}
