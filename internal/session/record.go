package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/kick"
	"github.com/voguh/unichat-sub000/internal/youtube"
)

// ErrUnknownSource is returned by Ingest for a record source it does not
// handle.
var ErrUnknownSource = errors.New("unknown record source")

// RecordChannel names the channel a record belongs to.
type RecordChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is one unit of captured input as handed over by a capture bridge
// or read back from a capture file.
type Record struct {
	Source   string          `json:"source"`
	Platform string          `json:"platform,omitempty"`
	Channel  *RecordChannel  `json:"channel,omitempty"`
	Data     json.RawMessage `json:"data"`
}

type badgeEntry struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

type kickRecord struct {
	ChatroomID int          `json:"chatroom_id"`
	SenderID   int          `json:"sender_id"`
	Username   string       `json:"username"`
	Content    string       `json:"content"`
	Badges     []kick.Badge `json:"badges"`
	CreatedAt  int64        `json:"created_at"`
}

// Ingest dispatches a record to the matching handler.
func (s *Session) Ingest(r Record) error {
	switch r.Source {
	case SourceTwitchIRC:
		var line string
		if err := json.Unmarshal(r.Data, &line); err != nil {
			return s.failed(r.Source, r.Data, fmt.Errorf("decode irc line: %w", err))
		}
		return s.HandleTwitchLine(line)
	case SourceTwitchRedemption:
		return s.HandleRedemptionPush(r.Data)
	case SourceYouTubeAction:
		return s.HandleYouTubeAction(youtube.Channel{ID: r.channelID(), Name: r.channelName()}, r.Data)
	case SourceKickMessage:
		var m kickRecord
		if err := json.Unmarshal(r.Data, &m); err != nil {
			return s.failed(r.Source, r.Data, fmt.Errorf("decode kick message: %w", err))
		}
		ch := kick.Channel{ChatroomID: m.ChatroomID, Slug: r.channelName()}
		return s.HandleKickMessage(ch, kick.ChatMessage{
			ChatroomID: m.ChatroomID,
			SenderID:   m.SenderID,
			Username:   m.Username,
			Content:    m.Content,
			Badges:     m.Badges,
			CreatedAt:  unixMilli(m.CreatedAt),
		})
	case SourceTwitchBadges:
		var entries map[string]badgeEntry
		if err := json.Unmarshal(r.Data, &entries); err != nil {
			return s.failed(r.Source, r.Data, fmt.Errorf("decode badges: %w", err))
		}
		badges := make(map[string]event.Badge, len(entries))
		for key, b := range entries {
			badges[key] = event.Badge{Code: b.Code, URL: b.URL}
		}
		s.ReplaceBadges(badges)
		return nil
	case SourceTwitchCheermotes:
		var prefixes []string
		if err := json.Unmarshal(r.Data, &prefixes); err != nil {
			return s.failed(r.Source, r.Data, fmt.Errorf("decode cheermotes: %w", err))
		}
		s.ReplaceCheermotes(prefixes)
		return nil
	case SourceChannelReady:
		if r.Platform == "" || r.channelID() == "" {
			return fmt.Errorf("%s: record needs platform and channel.id", r.Source)
		}
		s.ChannelReady(event.OtherPlatform(r.Platform), r.channelID(), r.channelName())
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownSource, r.Source)
}

func (r Record) channelID() string {
	if r.Channel == nil {
		return ""
	}
	return r.Channel.ID
}

func (r Record) channelName() string {
	if r.Channel == nil {
		return ""
	}
	return r.Channel.Name
}

func unixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
