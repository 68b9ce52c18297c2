package emotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/voguh/unichat-sub000/internal/event"
)

// Provider fetches emote sets from one third-party service.
type Provider interface {
	Name() string
	Global(ctx context.Context) ([]event.Emote, error)
	Channel(ctx context.Context, platform event.Platform, channelID string) ([]event.Emote, error)
}

// Default provider API endpoints.
const (
	DefaultBTTVURL    = "https://api.betterttv.net"
	DefaultFFZURL     = "https://api.frankerfacez.com"
	DefaultSevenTVURL = "https://7tv.io"
)

func platformPath(p event.Platform) (string, bool) {
	switch p {
	case event.PlatformTwitch:
		return "twitch", true
	case event.PlatformYouTube:
		return "youtube", true
	}
	return "", false
}

func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// BTTV is the BetterTTV provider.
type BTTV struct {
	BaseURL string
	Client  *http.Client
}

type bttvEmote struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

func (p *BTTV) Name() string { return "bttv" }

func (p *BTTV) convert(in []bttvEmote) []event.Emote {
	out := make([]event.Emote, 0, len(in))
	for _, e := range in {
		out = append(out, event.Emote{ID: e.ID, Code: e.Code, URL: "https://cdn.betterttv.net/emote/" + e.ID + "/3x"})
	}
	return out
}

func (p *BTTV) Global(ctx context.Context) ([]event.Emote, error) {
	var resp []bttvEmote
	if err := getJSON(ctx, p.Client, p.BaseURL+"/3/cached/emotes/global", &resp); err != nil {
		return nil, err
	}
	return p.convert(resp), nil
}

func (p *BTTV) Channel(ctx context.Context, platform event.Platform, channelID string) ([]event.Emote, error) {
	path, ok := platformPath(platform)
	if !ok {
		return nil, nil
	}
	var resp struct {
		ChannelEmotes []bttvEmote `json:"channelEmotes"`
		SharedEmotes  []bttvEmote `json:"sharedEmotes"`
	}
	err := getJSON(ctx, p.Client, fmt.Sprintf("%s/3/cached/users/%s/%s", p.BaseURL, path, channelID), &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return append(p.convert(resp.ChannelEmotes), p.convert(resp.SharedEmotes)...), nil
}

// FFZ is the FrankerFaceZ provider. It only knows Twitch channels.
type FFZ struct {
	BaseURL string
	Client  *http.Client
}

type ffzSet struct {
	Emoticons []struct {
		ID   int               `json:"id"`
		Name string            `json:"name"`
		URLs map[string]string `json:"urls"`
	} `json:"emoticons"`
}

func (p *FFZ) Name() string { return "ffz" }

func (p *FFZ) convert(set ffzSet) []event.Emote {
	out := make([]event.Emote, 0, len(set.Emoticons))
	for _, e := range set.Emoticons {
		url := ""
		for _, size := range []string{"4", "2", "1"} {
			if u, ok := e.URLs[size]; ok && u != "" {
				url = absoluteURL(u)
				break
			}
		}
		if url == "" {
			continue
		}
		out = append(out, event.Emote{ID: strconv.Itoa(e.ID), Code: e.Name, URL: url})
	}
	return out
}

func (p *FFZ) Global(ctx context.Context) ([]event.Emote, error) {
	var resp struct {
		DefaultSets []int             `json:"default_sets"`
		Sets        map[string]ffzSet `json:"sets"`
	}
	if err := getJSON(ctx, p.Client, p.BaseURL+"/v1/set/global", &resp); err != nil {
		return nil, err
	}
	var out []event.Emote
	for _, id := range resp.DefaultSets {
		if set, ok := resp.Sets[strconv.Itoa(id)]; ok {
			out = append(out, p.convert(set)...)
		}
	}
	return out, nil
}

func (p *FFZ) Channel(ctx context.Context, platform event.Platform, channelID string) ([]event.Emote, error) {
	if platform != event.PlatformTwitch {
		return nil, nil
	}
	var resp struct {
		Room struct {
			Set int `json:"set"`
		} `json:"room"`
		Sets map[string]ffzSet `json:"sets"`
	}
	err := getJSON(ctx, p.Client, p.BaseURL+"/v1/room/id/"+channelID, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	set, ok := resp.Sets[strconv.Itoa(resp.Room.Set)]
	if !ok {
		return nil, nil
	}
	return p.convert(set), nil
}

// SevenTV is the 7TV provider.
type SevenTV struct {
	BaseURL string
	Client  *http.Client
}

type sevenTVEmote struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Host struct {
			URL   string `json:"url"`
			Files []struct {
				Name string `json:"name"`
			} `json:"files"`
		} `json:"host"`
	} `json:"data"`
}

func (p *SevenTV) Name() string { return "7tv" }

func (p *SevenTV) convert(in []sevenTVEmote) []event.Emote {
	out := make([]event.Emote, 0, len(in))
	for _, e := range in {
		files := e.Data.Host.Files
		if e.Data.Host.URL == "" || len(files) == 0 {
			continue
		}
		file := files[len(files)-1].Name
		for _, f := range files {
			if f.Name == "4x.webp" {
				file = f.Name
				break
			}
		}
		out = append(out, event.Emote{ID: e.ID, Code: e.Name, URL: absoluteURL(e.Data.Host.URL) + "/" + file})
	}
	return out
}

func (p *SevenTV) Global(ctx context.Context) ([]event.Emote, error) {
	var resp struct {
		Emotes []sevenTVEmote `json:"emotes"`
	}
	if err := getJSON(ctx, p.Client, p.BaseURL+"/v3/emote-sets/global", &resp); err != nil {
		return nil, err
	}
	return p.convert(resp.Emotes), nil
}

func (p *SevenTV) Channel(ctx context.Context, platform event.Platform, channelID string) ([]event.Emote, error) {
	path, ok := platformPath(platform)
	if !ok {
		return nil, nil
	}
	var resp struct {
		EmoteSet *struct {
			Emotes []sevenTVEmote `json:"emotes"`
		} `json:"emote_set"`
	}
	err := getJSON(ctx, p.Client, fmt.Sprintf("%s/v3/users/%s/%s", p.BaseURL, path, channelID), &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.EmoteSet == nil {
		return nil, nil
	}
	return p.convert(resp.EmoteSet.Emotes), nil
}

// DefaultProviders returns the providers in their fixed merge order:
// BetterTTV, then FrankerFaceZ, then 7TV. Empty URLs use the defaults.
func DefaultProviders(client *http.Client, bttvURL, ffzURL, sevenTVURL string) []Provider {
	if bttvURL == "" {
		bttvURL = DefaultBTTVURL
	}
	if ffzURL == "" {
		ffzURL = DefaultFFZURL
	}
	if sevenTVURL == "" {
		sevenTVURL = DefaultSevenTVURL
	}
	return []Provider{
		&BTTV{BaseURL: strings.TrimRight(bttvURL, "/"), Client: client},
		&FFZ{BaseURL: strings.TrimRight(ffzURL, "/"), Client: client},
		&SevenTV{BaseURL: strings.TrimRight(sevenTVURL, "/"), Client: client},
	}
}
