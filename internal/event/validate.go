package event

import (
	"errors"
	"fmt"
	"regexp"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid event")

// IsHexColor reports whether s is a #RRGGBB or #RRGGBBAA color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Validate checks the invariants every emitted event must hold.
func Validate(e Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil", ErrInvalid)
	}
	if e.Meta().Timestamp == 0 {
		return fmt.Errorf("%w: %s has no timestamp", ErrInvalid, e.Kind())
	}

	v := &validator{}
	e.Accept(v)
	if v.err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, e.Kind(), v.err)
	}
	return nil
}

type validator struct {
	err error
}

func (v *validator) author(a *Author) {
	v.identity(a.AuthorID, a.AuthorDisplayColor)
}

func (v *validator) identity(id, color string) {
	if id == "" {
		v.err = errors.New("empty author id")
		return
	}
	if !IsHexColor(color) {
		v.err = fmt.Errorf("author color %q is not a hex color", color)
	}
}

func (v *validator) messageID(id string) {
	if v.err == nil && id == "" {
		v.err = errors.New("empty message id")
	}
}

func (v *validator) VisitMessage(e *Message) {
	v.author(&e.Author)
	v.messageID(e.MessageID)
}

func (v *validator) VisitRemoveMessage(e *RemoveMessage) { v.messageID(e.MessageID) }

func (v *validator) VisitRemoveAuthor(e *RemoveAuthor) {
	if e.AuthorID == "" {
		v.err = errors.New("empty author id")
	}
}

func (v *validator) VisitClear(*Clear) {}

func (v *validator) VisitRaid(e *Raid) {
	v.identity(e.AuthorID, e.AuthorDisplayColor)
	v.messageID(e.MessageID)
}

func (v *validator) VisitSponsor(e *Sponsor) {
	v.author(&e.Author)
	v.messageID(e.MessageID)
}

func (v *validator) VisitSponsorGift(e *SponsorGift) {
	v.author(&e.Author)
	v.messageID(e.MessageID)
}

func (v *validator) VisitDonate(e *Donate) {
	v.author(&e.Author)
	v.messageID(e.MessageID)
}

func (v *validator) VisitRedemption(e *Redemption) {
	v.author(&e.Author)
	if v.err == nil && e.RewardID == "" {
		v.err = errors.New("empty reward id")
	}
}
