package youtube

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/event"
)

// run is one element of a message: textRun, customEmojiRun or fontEmojiRun.
type run interface {
	isRun()
}

type textRun struct {
	Text string
	Bold bool
}

// customEmojiRun is a channel emoji addressed by its shortcuts.
type customEmojiRun struct {
	ID        string
	Shortcuts []string
	Image     string
}

// fontEmojiRun is a standard emoji addressed only by its id (the emoji
// character itself).
type fontEmojiRun struct {
	ID    string
	Image string
}

func (textRun) isRun()        {}
func (customEmojiRun) isRun() {}
func (fontEmojiRun) isRun()   {}

type rawRun struct {
	Text  *string `json:"text"`
	Bold  bool    `json:"bold"`
	Emoji *struct {
		EmojiID       string      `json:"emojiId"`
		Shortcuts     []string    `json:"shortcuts"`
		IsCustomEmoji bool        `json:"isCustomEmoji"`
		Image         *thumbnails `json:"image"`
	} `json:"emoji"`
}

// message is a runs list or a plain simpleText.
type message struct {
	Runs       []run
	SimpleText string
}

func (m *message) UnmarshalJSON(b []byte) error {
	var raw struct {
		Runs       []rawRun `json:"runs"`
		SimpleText string   `json:"simpleText"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	m.SimpleText = raw.SimpleText
	m.Runs = make([]run, 0, len(raw.Runs))
	for _, r := range raw.Runs {
		switch {
		case r.Emoji != nil && r.Emoji.IsCustomEmoji:
			m.Runs = append(m.Runs, customEmojiRun{ID: r.Emoji.EmojiID, Shortcuts: r.Emoji.Shortcuts, Image: r.Emoji.Image.best()})
		case r.Emoji != nil:
			m.Runs = append(m.Runs, fontEmojiRun{ID: r.Emoji.EmojiID, Image: r.Emoji.Image.best()})
		case r.Text != nil:
			m.Runs = append(m.Runs, textRun{Text: *r.Text, Bold: r.Bold})
		}
	}
	if len(m.Runs) == 0 && m.SimpleText != "" {
		m.Runs = append(m.Runs, textRun{Text: m.SimpleText})
	}
	return nil
}

// texts returns the literal text runs.
func (m *message) texts() []textRun {
	if m == nil {
		return nil
	}
	var out []textRun
	for _, r := range m.Runs {
		if t, ok := r.(textRun); ok {
			out = append(out, t)
		}
	}
	return out
}

// plain concatenates the text runs.
func (m *message) plain() string {
	var b strings.Builder
	for _, t := range m.texts() {
		b.WriteString(t.Text)
	}
	return b.String()
}

// buildMessage renders runs into display text and the emotes they carry.
// Emoji runs render as their first shortcut (custom) or id (font based),
// separated from neighbouring text by a space. Emotes keep run order,
// followed by shared dictionary matches in literal text.
func buildMessage(m *message, dict *emotes.Dictionary, channelKey string) (string, []event.Emote) {
	found := []event.Emote{}
	if m == nil {
		return "", found
	}

	var b strings.Builder
	var shared []event.Emote
	pad := false
	writeToken := func(code string) {
		if b.Len() > 0 && !endsWithSpace(b.String()) {
			b.WriteByte(' ')
		}
		b.WriteString(code)
		pad = true
	}

	for _, r := range m.Runs {
		switch r := r.(type) {
		case textRun:
			if pad && r.Text != "" && !unicode.IsSpace(rune(r.Text[0])) {
				b.WriteByte(' ')
			}
			pad = false
			b.WriteString(r.Text)
			shared = emotes.AppendMissing(shared, dict.Scan(channelKey, r.Text))
		case customEmojiRun:
			code := r.ID
			if len(r.Shortcuts) > 0 {
				code = r.Shortcuts[0]
			}
			writeToken(code)
			found = append(found, event.Emote{ID: r.ID, Code: code, URL: r.Image})
		case fontEmojiRun:
			writeToken(r.ID)
			found = append(found, event.Emote{ID: r.ID, Code: r.ID, URL: r.Image})
		}
	}
	return strings.TrimSpace(b.String()), emotes.AppendMissing(found, shared)
}

func endsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}
