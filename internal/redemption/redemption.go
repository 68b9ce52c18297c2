// Package redemption joins the two halves of a channel points redemption:
// the reward push (metadata, no text) and the chat message (text, no
// metadata), whichever arrives first.
package redemption

import (
	"maps"

	"github.com/voguh/unichat-sub000/internal/event"
)

// Flags set on events emitted by this package.
const (
	FlagUnmatched    = "unichat:redemption:unmatched"
	FlagRedemptionID = "unichat:redemption:id"
)

// Key identifies the pending halves of one redemption.
type Key struct {
	RewardID string
	AuthorID string
}

// Reward is the metadata half of a redemption.
type Reward struct {
	RedemptionID      string
	Header            event.Header
	Author            event.Author
	RewardID          string
	RewardTitle       string
	RewardDescription *string
	RewardCost        int64
	RewardIconURL     string
	// UserInput is the text the viewer typed, if the reward asks for one.
	// Rewards without input never produce a chat message.
	UserInput *string
}

// Key returns the correlation key of r.
func (r *Reward) Key() Key {
	return Key{RewardID: r.RewardID, AuthorID: r.Author.AuthorID}
}

// NeedsMessage reports whether a chat message half is expected.
func (r *Reward) NeedsMessage() bool {
	return r.UserInput != nil && *r.UserInput != ""
}

// Message is the chat half of a redemption.
type Message struct {
	RewardID string
	Event    *event.Message
}

// Key returns the correlation key of m.
func (m *Message) Key() Key {
	return Key{RewardID: m.RewardID, AuthorID: m.Event.AuthorID}
}

// Merge combines both halves. Reward fields always come from the reward;
// author display fields, text and emotes come from the chat message.
func Merge(r *Reward, m *event.Message) *event.Redemption {
	out := RewardOnly(r)

	header := m.Header
	header.Flags = mergeFlags(r.Header.Flags, m.Flags)
	header.Flags[FlagRedemptionID] = event.String(r.RedemptionID)
	if header.ChannelID == nil {
		header.ChannelID = r.Header.ChannelID
	}
	if header.ChannelName == nil {
		header.ChannelName = r.Header.ChannelName
	}
	out.Header = header

	out.Author = m.Author
	if out.AuthorProfilePictureURL == nil {
		out.AuthorProfilePictureURL = r.Author.AuthorProfilePictureURL
	}
	out.MessageID = m.MessageID
	out.MessageText = event.String(m.MessageText)
	out.Emotes = append([]event.Emote{}, m.Emotes...)
	return out
}

// RewardOnly builds a redemption from the reward half alone.
func RewardOnly(r *Reward) *event.Redemption {
	header := r.Header
	header.Flags = mergeFlags(r.Header.Flags, nil)
	header.Flags[FlagRedemptionID] = event.String(r.RedemptionID)

	return &event.Redemption{
		Header:            header,
		Author:            r.Author,
		RewardID:          r.RewardID,
		RewardTitle:       r.RewardTitle,
		RewardDescription: r.RewardDescription,
		RewardCost:        r.RewardCost,
		RewardIconURL:     r.RewardIconURL,
		MessageID:         r.RedemptionID,
		MessageText:       r.UserInput,
		Emotes:            []event.Emote{},
	}
}

func mergeFlags(a, b map[string]*string) map[string]*string {
	out := make(map[string]*string, len(a)+len(b)+1)
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}
