// Package kick connects to Kick chat and converts its messages into
// canonical events.
package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultAPIURL is the public channel API.
const DefaultAPIURL = "https://kick.com/api/v2"

// ChannelInfo is the part of the channel API response this package reads.
type ChannelInfo struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Chatroom struct {
		ID int `json:"id"`
	} `json:"chatroom"`
}

// ChannelConfig is a Kick channel with an optional pre-resolved chatroom id.
type ChannelConfig struct {
	Slug       string `yaml:"slug"`
	ChatroomID int    `yaml:"chatroom_id"` // 0 means not pre-configured, needs resolution
}

// ResolveChannel fetches the channel and chatroom ids of a slug.
func ResolveChannel(ctx context.Context, client *http.Client, apiURL, slug string) (ChannelInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("%s/channels/%s", strings.TrimRight(apiURL, "/"), slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("failed to create request: %w", err)
	}

	// Browser headers keep the CDN from rejecting the request. Accept-Encoding
	// is left to the transport so responses are decompressed automatically.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://kick.com/")
	req.Header.Set("Origin", "https://kick.com")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	resp, err := client.Do(req)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ChannelInfo{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var info ChannelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ChannelInfo{}, fmt.Errorf("JSON decode failed: %w", err)
	}
	if info.Chatroom.ID == 0 {
		return ChannelInfo{}, fmt.Errorf("channel %q has no chatroom", slug)
	}
	if info.Slug == "" {
		info.Slug = slug
	}
	return info, nil
}
