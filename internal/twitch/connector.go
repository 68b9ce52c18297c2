package twitch

import (
	"context"
	"fmt"
	"strings"

	"github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/logging"
)

// anonymousUser is the read-only login Twitch accepts without a token.
const anonymousUser = "justinfan12345"

// LineHandler receives every raw line the connection reads. ROOMSTATE
// lines mark a joined channel as ready.
type LineHandler interface {
	HandleTwitchLine(line string) error
}

// Connector manages the Twitch chat connection.
type Connector struct {
	username string
	oauth    string
	channels []string
	logger   *zap.SugaredLogger
	client   *twitch.Client
}

// NewConnector creates a connector. Without oauth the connection is
// anonymous and read-only.
func NewConnector(username, oauth string, channels []string, logger *zap.SugaredLogger) *Connector {
	return &Connector{
		username: username,
		oauth:    oauth,
		channels: channels,
		logger:   logging.OrNop(logger),
	}
}

// Start connects, joins the configured channels and forwards lines to h
// until ctx is done.
func (c *Connector) Start(ctx context.Context, h LineHandler) error {
	if c.oauth == "" || c.username == "" {
		c.client = twitch.NewAnonymousClient()
		c.logger.Infof("Connecting to Twitch IRC anonymously as %s", anonymousUser)
	} else {
		oauth := c.oauth
		if !strings.HasPrefix(oauth, "oauth:") {
			oauth = "oauth:" + oauth
		}
		c.client = twitch.NewClient(c.username, oauth)
	}
	c.client.Capabilities = []string{twitch.TagsCapability, twitch.CommandsCapability, twitch.MembershipCapability}

	forward := func(raw string) {
		if err := h.HandleTwitchLine(raw); err != nil {
			c.logger.Debugf("Twitch line not handled: %v", err)
		}
	}

	c.client.OnPrivateMessage(func(m twitch.PrivateMessage) { forward(m.Raw) })
	c.client.OnClearChatMessage(func(m twitch.ClearChatMessage) { forward(m.Raw) })
	c.client.OnClearMessage(func(m twitch.ClearMessage) { forward(m.Raw) })
	c.client.OnUserNoticeMessage(func(m twitch.UserNoticeMessage) { forward(m.Raw) })
	c.client.OnRoomStateMessage(func(m twitch.RoomStateMessage) { forward(m.Raw) })

	c.client.OnConnect(func() {
		c.logger.Info("Connected to Twitch IRC")
	})
	c.client.OnReconnectMessage(func(twitch.ReconnectMessage) {
		c.logger.Info("Reconnecting to Twitch IRC...")
	})

	for _, channel := range c.channels {
		c.client.Join(channel)
		c.logger.Infof("Joined channel: %s", channel)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("Disconnecting from Twitch IRC...")
		if err := c.client.Disconnect(); err != nil {
			c.logger.Warnf("Twitch IRC disconnect: %v", err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("twitch irc connection: %w", err)
	}
}
