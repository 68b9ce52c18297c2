package session

import (
	"encoding/json"
	"errors"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/kick"
	"github.com/voguh/unichat-sub000/internal/twitch"
	"github.com/voguh/unichat-sub000/internal/youtube"
)

// Capture record sources.
const (
	SourceTwitchIRC        = "twitch:irc"
	SourceTwitchRedemption = "twitch:redemption"
	SourceTwitchBadges     = "twitch:badges"
	SourceTwitchCheermotes = "twitch:cheermotes"
	SourceYouTubeAction    = "youtube:action"
	SourceKickMessage      = "kick:message"
	SourceChannelReady     = "channel:ready"
)

// HandleTwitchLine parses one raw IRC line and handles it.
func (s *Session) HandleTwitchLine(line string) error {
	m, err := twitch.ParseIRC(line)
	if errors.Is(err, twitch.ErrEmptyLine) {
		return nil
	}
	if err != nil {
		s.ingested.Add(1)
		return s.failed(SourceTwitchIRC, []byte(line), err)
	}
	return s.HandleTwitchIRC(m)
}

// HandleTwitchIRC handles one parsed IRC message. A returned error concerns
// this message only.
func (s *Session) HandleTwitchIRC(m *twitch.IRCMessage) error {
	s.ingested.Add(1)

	if roomID, channel, ok := twitch.RoomState(m); ok {
		s.ChannelReady(event.PlatformTwitch, roomID, channel)
		return nil
	}

	half, isRedemption, err := s.twitch.RedemptionMessage(m)
	if err != nil {
		return s.failed(SourceTwitchIRC, []byte(m.Raw), err)
	}
	if isRedemption {
		merged, err := s.cache.OfferMessage(half)
		if err != nil {
			return err
		}
		if merged != nil {
			s.emit(merged)
		}
		return nil
	}

	e, err := s.twitch.Extract(m)
	if err != nil {
		return s.failed(SourceTwitchIRC, []byte(m.Raw), err)
	}
	s.publish(SourceTwitchIRC, m.Raw, e)
	return nil
}

// HandleRedemptionPush handles a channel points push.
func (s *Session) HandleRedemptionPush(data []byte) error {
	s.ingested.Add(1)
	reward, err := s.twitch.ParseRedemption(data)
	if err != nil {
		return s.failed(SourceTwitchRedemption, data, err)
	}
	merged, err := s.cache.OfferReward(reward)
	if err != nil {
		return err
	}
	if merged != nil {
		s.emit(merged)
	}
	return nil
}

// HandleYouTubeAction handles one chat action of a YouTube live chat.
func (s *Session) HandleYouTubeAction(ch youtube.Channel, action json.RawMessage) error {
	s.ingested.Add(1)
	e, err := s.youtube.Extract(ch, action)
	if err != nil {
		return s.failed(SourceYouTubeAction, action, err)
	}
	s.publish(SourceYouTubeAction, string(action), e)
	return nil
}

// HandleKickMessage handles one Kick chat message.
func (s *Session) HandleKickMessage(ch kick.Channel, m kick.ChatMessage) error {
	s.ingested.Add(1)
	msg, err := s.kick.Extract(ch, m)
	if err != nil {
		raw, _ := json.Marshal(m)
		return s.failed(SourceKickMessage, raw, err)
	}
	s.emit(msg)
	return nil
}

// publish emits e, or counts the input as an unknown shape when e is nil.
func (s *Session) publish(source, raw string, e event.Event) {
	if e == nil {
		s.unknown.Add(1)
		if s.logUnknown {
			s.logger.Debugf("Unknown %s input: %s", source, raw)
		}
		return
	}
	s.emit(e)
}

// failed records a skippable parse failure and returns err to the caller.
func (s *Session) failed(source string, raw []byte, err error) error {
	s.parseFailures.Add(1)
	s.logger.Warnf("Failed to parse %s input: %v: %s", source, err, raw)
	if s.deadLetter != nil {
		s.deadLetter.Write(source, raw, err)
	}
	return err
}
