package event

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal serializes e as {"type": <kind>, "data": <payload>}.
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("marshal event: nil event")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(envelope{Type: e.Kind(), Data: data})
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	e := newByKind(env.Type)
	if e == nil {
		return nil, fmt.Errorf("decode event: unknown type %q", env.Type)
	}
	if err := json.Unmarshal(env.Data, e); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return e, nil
}

func newByKind(k Kind) Event {
	switch k {
	case KindMessage:
		return &Message{}
	case KindRemoveMessage:
		return &RemoveMessage{}
	case KindRemoveAuthor:
		return &RemoveAuthor{}
	case KindClear:
		return &Clear{}
	case KindRaid:
		return &Raid{}
	case KindSponsor:
		return &Sponsor{}
	case KindSponsorGift:
		return &SponsorGift{}
	case KindDonate:
		return &Donate{}
	case KindRedemption:
		return &Redemption{}
	}
	return nil
}
