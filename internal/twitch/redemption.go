package twitch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/redemption"
)

// FlagRedemptionRawPrefix namespaces raw push fields copied into flags.
const FlagRedemptionRawPrefix = "unichat:raw:twitch:redemption:"

// ErrInvalidRedemption is returned for pushes lacking a required field.
var ErrInvalidRedemption = errors.New("invalid redemption push")

type redemptionImage struct {
	URL1x string `json:"url_1x"`
	URL2x string `json:"url_2x"`
	URL4x string `json:"url_4x"`
}

func (i *redemptionImage) best() string {
	if i == nil {
		return ""
	}
	for _, u := range []string{i.URL4x, i.URL2x, i.URL1x} {
		if u != "" {
			return u
		}
	}
	return ""
}

type redemptionPush struct {
	ID   string `json:"id"`
	User struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"user"`
	ChannelID string `json:"channel_id"`
	Reward    struct {
		ID           string           `json:"id"`
		Title        string           `json:"title"`
		Prompt       string           `json:"prompt"`
		Cost         int64            `json:"cost"`
		Image        *redemptionImage `json:"image"`
		DefaultImage *redemptionImage `json:"default_image"`
	} `json:"reward"`
	UserInput  *string `json:"user_input"`
	RedeemedAt string  `json:"redeemed_at"`
}

// ParseRedemption decodes a channel points push into the reward half of a
// redemption. The timestamp is redeemed_at in milliseconds.
func (x *Extractor) ParseRedemption(data []byte) (*redemption.Reward, error) {
	var p redemptionPush
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode redemption push: %w", err)
	}

	switch {
	case p.ID == "":
		return nil, fmt.Errorf("%w: missing id", ErrInvalidRedemption)
	case p.Reward.ID == "":
		return nil, fmt.Errorf("%w: missing reward.id", ErrInvalidRedemption)
	case p.RedeemedAt == "":
		return nil, fmt.Errorf("%w: missing redeemed_at", ErrInvalidRedemption)
	}
	redeemedAt, err := time.Parse(time.RFC3339, p.RedeemedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: redeemed_at: %v", ErrInvalidRedemption, err)
	}

	a, err := x.authors.Build(author.Fields{
		ID:          p.User.ID,
		Username:    p.User.Login,
		DisplayName: p.User.DisplayName,
		Type:        event.AuthorViewer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrInvalidRedemption, err)
	}

	icon := p.Reward.Image.best()
	if icon == "" {
		icon = p.Reward.DefaultImage.best()
	}

	return &redemption.Reward{
		RedemptionID: p.ID,
		Header: event.Header{
			ChannelID: event.String(p.ChannelID),
			Platform:  event.PlatformTwitch,
			Flags: map[string]*string{
				FlagRedemptionRawPrefix + "id":          event.String(p.ID),
				FlagRedemptionRawPrefix + "redeemed_at": event.String(p.RedeemedAt),
			},
			Timestamp: redeemedAt.UnixMilli(),
		},
		Author:            a,
		RewardID:          p.Reward.ID,
		RewardTitle:       p.Reward.Title,
		RewardDescription: event.String(p.Reward.Prompt),
		RewardCost:        p.Reward.Cost,
		RewardIconURL:     icon,
		UserInput:         p.UserInput,
	}, nil
}

// RedemptionMessage returns the chat half of a redemption when m is a
// PRIVMSG sent for a custom reward.
func (x *Extractor) RedemptionMessage(m *IRCMessage) (*redemption.Message, bool, error) {
	rewardID, ok := RewardID(m)
	if !ok {
		return nil, false, nil
	}
	msg, err := x.Message(m)
	if err != nil {
		return nil, true, err
	}
	return &redemption.Message{RewardID: rewardID, Event: msg}, true, nil
}
