package event

// Message is a regular chat message.
type Message struct {
	Header
	Author
	MessageID   string  `json:"messageId"`
	MessageText string  `json:"messageText"`
	Emotes      []Emote `json:"emotes"`
}

// RemoveMessage removes a single message from renderers.
type RemoveMessage struct {
	Header
	MessageID string `json:"messageId"`
}

// RemoveAuthor removes every message of one author.
type RemoveAuthor struct {
	Header
	AuthorID string `json:"authorId"`
}

// Clear wipes the whole channel history.
type Clear struct {
	Header
}

// Raid announces another channel sending its viewers.
type Raid struct {
	Header
	AuthorID                string     `json:"authorId"`
	AuthorUsername          *string    `json:"authorUsername"`
	AuthorDisplayName       string     `json:"authorDisplayName"`
	AuthorDisplayColor      string     `json:"authorDisplayColor"`
	AuthorProfilePictureURL *string    `json:"authorProfilePictureUrl"`
	AuthorType              AuthorType `json:"authorType"`
	MessageID               string     `json:"messageId"`
	ViewerCount             *int64     `json:"viewerCount"`
}

// Sponsor is a new or renewed subscription / membership.
type Sponsor struct {
	Header
	Author
	MessageID   string  `json:"messageId"`
	Tier        *string `json:"tier"`
	Months      int64   `json:"months"`
	MessageText *string `json:"messageText"`
	Emotes      []Emote `json:"emotes"`
}

// SponsorGift is one or more gifted subscriptions.
type SponsorGift struct {
	Header
	Author
	MessageID string  `json:"messageId"`
	Tier      *string `json:"tier"`
	Count     int64   `json:"count"`
}

// Donate is a monetary gesture (bits, super chat, super sticker).
type Donate struct {
	Header
	Author
	MessageID   string  `json:"messageId"`
	Value       float64 `json:"value"`
	Currency    string  `json:"currency"`
	MessageText string  `json:"messageText"`
	Emotes      []Emote `json:"emotes"`
}

// Redemption is a channel points reward redeemed by a viewer.
type Redemption struct {
	Header
	Author
	RewardID          string  `json:"rewardId"`
	RewardTitle       string  `json:"rewardTitle"`
	RewardDescription *string `json:"rewardDescription"`
	RewardCost        int64   `json:"rewardCost"`
	RewardIconURL     string  `json:"rewardIconUrl"`
	MessageID         string  `json:"messageId"`
	MessageText       *string `json:"messageText"`
	Emotes            []Emote `json:"emotes"`
}

func (*Message) Kind() Kind       { return KindMessage }
func (*RemoveMessage) Kind() Kind { return KindRemoveMessage }
func (*RemoveAuthor) Kind() Kind  { return KindRemoveAuthor }
func (*Clear) Kind() Kind         { return KindClear }
func (*Raid) Kind() Kind          { return KindRaid }
func (*Sponsor) Kind() Kind       { return KindSponsor }
func (*SponsorGift) Kind() Kind   { return KindSponsorGift }
func (*Donate) Kind() Kind        { return KindDonate }
func (*Redemption) Kind() Kind    { return KindRedemption }

func (e *Message) Accept(v Visitor)       { v.VisitMessage(e) }
func (e *RemoveMessage) Accept(v Visitor) { v.VisitRemoveMessage(e) }
func (e *RemoveAuthor) Accept(v Visitor)  { v.VisitRemoveAuthor(e) }
func (e *Clear) Accept(v Visitor)         { v.VisitClear(e) }
func (e *Raid) Accept(v Visitor)          { v.VisitRaid(e) }
func (e *Sponsor) Accept(v Visitor)       { v.VisitSponsor(e) }
func (e *SponsorGift) Accept(v Visitor)   { v.VisitSponsorGift(e) }
func (e *Donate) Accept(v Visitor)        { v.VisitDonate(e) }
func (e *Redemption) Accept(v Visitor)    { v.VisitRedemption(e) }

func (*Message) sealed()       {}
func (*RemoveMessage) sealed() {}
func (*RemoveAuthor) sealed()  {}
func (*Clear) sealed()         {}
func (*Raid) sealed()          {}
func (*Sponsor) sealed()       {}
func (*SponsorGift) sealed()   {}
func (*Donate) sealed()        {}
func (*Redemption) sealed()    {}
