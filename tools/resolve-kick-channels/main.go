package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voguh/unichat-sub000/internal/kick"
)

type kickSnippet struct {
	Kick struct {
		Enabled  bool                 `yaml:"enabled"`
		Channels []kick.ChannelConfig `yaml:"channels"`
	} `yaml:"kick"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: resolve-kick-channels <channel1> [channel2] ...")
		fmt.Println("\nExample:")
		fmt.Println("  resolve-kick-channels paymoneywubby xqc")
		os.Exit(1)
	}

	channels := os.Args[1:]
	fmt.Printf("Resolving %d Kick channel(s)...\n\n", len(channels))

	apiURL := os.Getenv("KICK_API_URL")
	if apiURL == "" {
		apiURL = kick.DefaultAPIURL
	}
	client := &http.Client{Timeout: 10 * time.Second}

	var resolved []kick.ChannelConfig
	failed := make(map[string]string)

	for _, channel := range channels {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		info, err := kick.ResolveChannel(ctx, client, apiURL, channel)
		cancel()
		if err != nil {
			failed[channel] = err.Error()
			continue
		}
		resolved = append(resolved, kick.ChannelConfig{Slug: channel, ChatroomID: info.Chatroom.ID})
	}

	if len(resolved) > 0 {
		fmt.Println("✓ Successfully resolved:")
		fmt.Println("---")
		for _, ch := range resolved {
			fmt.Printf("%s: %d\n", ch.Slug, ch.ChatroomID)
		}
		fmt.Println()
	}

	if len(failed) > 0 {
		fmt.Println("✗ Failed to resolve:")
		fmt.Println("---")
		for slug, err := range failed {
			fmt.Printf("%s: %s\n", slug, err)
		}
		fmt.Println()
	}

	if len(resolved) > 0 {
		var snippet kickSnippet
		snippet.Kick.Enabled = true
		snippet.Kick.Channels = resolved

		out, err := yaml.Marshal(&snippet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render config snippet: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Add this to your config.yaml:")
		fmt.Println("---")
		fmt.Print(string(out))
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}
