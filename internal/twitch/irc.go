package twitch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gempir/go-twitch-irc/v4"
)

// Prefix is the source of an IRC line: ServerPrefix or NickPrefix.
type Prefix interface {
	isPrefix()
}

// ServerPrefix is a line sent by the server itself.
type ServerPrefix struct {
	Name string
}

// NickPrefix is a line sent on behalf of a user.
type NickPrefix struct {
	Nick string
	User string
	Host string
}

func (ServerPrefix) isPrefix() {}
func (NickPrefix) isPrefix()   {}

// Command is the IRC command of a line: Privmsg or RawCommand.
type Command interface {
	isCommand()
}

// Privmsg is a chat message.
type Privmsg struct {
	Channel string
	Text    string
}

// RawCommand is any other command with its parameters.
type RawCommand struct {
	Name   string
	Params []string
}

func (Privmsg) isCommand()    {}
func (RawCommand) isCommand() {}

// IRCMessage is one tag-based protocol message.
type IRCMessage struct {
	Raw     string
	Tags    map[string]string
	Prefix  Prefix
	Command Command
}

// Tag returns the value of a tag. Empty values count as absent.
func (m *IRCMessage) Tag(name string) (string, bool) {
	v, ok := m.Tags[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasTag reports whether the tag is present, even with an empty value.
func (m *IRCMessage) HasTag(name string) bool {
	_, ok := m.Tags[name]
	return ok
}

const serverName = "tmi.twitch.tv"

// ErrEmptyLine is returned by ParseIRC for blank input.
var ErrEmptyLine = errors.New("empty irc line")

// ParseIRC parses a raw Twitch IRC line.
func ParseIRC(line string) (*IRCMessage, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmptyLine
	}

	server := ServerPrefix{Name: serverName}
	switch m := twitch.ParseMessage(line).(type) {
	case *twitch.PrivateMessage:
		nick := m.User.Name
		return &IRCMessage{
			Raw:     m.Raw,
			Tags:    m.Tags,
			Prefix:  NickPrefix{Nick: nick, User: nick, Host: nick + "." + serverName},
			Command: Privmsg{Channel: channelName(m.Channel), Text: m.Message},
		}, nil
	case *twitch.ClearChatMessage:
		params := []string{channelName(m.Channel)}
		if m.TargetUsername != "" {
			params = append(params, m.TargetUsername)
		}
		return &IRCMessage{Raw: m.Raw, Tags: m.Tags, Prefix: server, Command: RawCommand{Name: "CLEARCHAT", Params: params}}, nil
	case *twitch.ClearMessage:
		return &IRCMessage{Raw: m.Raw, Tags: m.Tags, Prefix: server,
			Command: RawCommand{Name: "CLEARMSG", Params: []string{channelName(m.Channel), m.Message}}}, nil
	case *twitch.UserNoticeMessage:
		return &IRCMessage{Raw: m.Raw, Tags: m.Tags, Prefix: server,
			Command: RawCommand{Name: "USERNOTICE", Params: []string{channelName(m.Channel), m.Message}}}, nil
	case *twitch.RoomStateMessage:
		return &IRCMessage{Raw: m.Raw, Tags: m.Tags, Prefix: server,
			Command: RawCommand{Name: "ROOMSTATE", Params: []string{channelName(m.Channel)}}}, nil
	case *twitch.RawMessage:
		var params []string
		if m.Message != "" {
			params = []string{m.Message}
		}
		return &IRCMessage{Raw: m.Raw, Tags: m.Tags, Prefix: server, Command: RawCommand{Name: m.RawType, Params: params}}, nil
	case nil:
		return nil, fmt.Errorf("parse irc line %q: no message", line)
	default:
		return &IRCMessage{Raw: line, Tags: map[string]string{}, Prefix: server,
			Command: RawCommand{Name: fmt.Sprintf("%T", m)}}, nil
	}
}

func channelName(s string) string {
	return strings.TrimPrefix(s, "#")
}
