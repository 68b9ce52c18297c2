package kick

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	kickchat "github.com/johanvandegriff/kick-chat-wrapper"
	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/logging"
)

// Handler receives converted chat messages and channel transitions.
type Handler interface {
	HandleKickMessage(ch Channel, m ChatMessage) error
	ChannelReady(platform event.Platform, channelID, channelName string)
}

// Connector manages Kick chat connections.
type Connector struct {
	channels []ChannelConfig
	apiURL   string
	http     *http.Client
	logger   *zap.SugaredLogger
	rooms    map[int]Channel
	client   *kickchat.Client
}

// NewConnector creates a connector. An empty apiURL uses DefaultAPIURL.
func NewConnector(channels []ChannelConfig, apiURL string, logger *zap.SugaredLogger) *Connector {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Connector{
		channels: channels,
		apiURL:   apiURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logging.OrNop(logger),
		rooms:    make(map[int]Channel),
	}
}

// Start resolves chatrooms, joins them and forwards messages to h until
// ctx is done.
func (c *Connector) Start(ctx context.Context, h Handler) error {
	c.logger.Info("Resolving Kick channel IDs...")
	for _, channel := range c.channels {
		if channel.ChatroomID > 0 {
			c.rooms[channel.ChatroomID] = Channel{ChatroomID: channel.ChatroomID, Slug: channel.Slug}
			c.logger.Infof("Using pre-configured Kick channel: %s -> ID %d", channel.Slug, channel.ChatroomID)
			continue
		}
		info, err := ResolveChannel(ctx, c.http, c.apiURL, channel.Slug)
		if err != nil {
			c.logger.Warnf("Failed to resolve Kick channel '%s': %v (skipping)", channel.Slug, err)
			continue
		}
		c.rooms[info.Chatroom.ID] = Channel{ChatroomID: info.Chatroom.ID, Slug: info.Slug}
		c.logger.Infof("Resolved Kick channel: %s -> ID %d", info.Slug, info.Chatroom.ID)
	}

	if len(c.rooms) == 0 {
		return errors.New("no valid Kick channels could be resolved")
	}

	c.logger.Info("Connecting to Kick chat...")
	client, err := kickchat.NewClient()
	if err != nil {
		return err
	}
	c.client = client
	defer func() {
		c.logger.Info("Disconnecting from Kick chat...")
		c.client.Close()
	}()

	for id, room := range c.rooms {
		if err := c.client.JoinChannelByID(id); err != nil {
			c.logger.Warnf("Failed to join Kick channel '%s' (ID %d): %v", room.Slug, id, err)
			continue
		}
		c.logger.Infof("Joined Kick channel: %s", room.Slug)
		h.ChannelReady(Platform, strconv.Itoa(id), room.Slug)
	}

	messages := c.client.ListenForMessages()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.logger.Warn("Kick message channel closed")
				return nil
			}
			room, ok := c.rooms[msg.ChatroomID]
			if !ok {
				c.logger.Warnf("Received message from unknown chatroom ID: %d", msg.ChatroomID)
				continue
			}
			if err := h.HandleKickMessage(room, convert(msg)); err != nil {
				c.logger.Debugf("Kick message not handled: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func convert(msg kickchat.ChatMessage) ChatMessage {
	badges := make([]Badge, 0, len(msg.Sender.Identity.Badges))
	for _, b := range msg.Sender.Identity.Badges {
		badges = append(badges, Badge{Type: b.Type, Text: b.Text})
	}
	return ChatMessage{
		ChatroomID: msg.ChatroomID,
		SenderID:   msg.Sender.ID,
		Username:   msg.Sender.Username,
		Content:    msg.Content,
		Badges:     badges,
		CreatedAt:  msg.CreatedAt,
	}
}
