package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voguh/unichat-sub000/internal/kick"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("twitch:\n  channels: [somechannel]\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"somechannel"}, cfg.Twitch.Channels)
	assert.Equal(t, 15*time.Second, cfg.EmoteTimeout())
	assert.Equal(t, 5*time.Minute, cfg.RedemptionTTL())
	assert.Equal(t, 30*time.Second, cfg.RedemptionSweep())
	assert.Equal(t, 1024, cfg.Sink.BufferSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./data/deadletter", cfg.DeadLetter.OutputDir)
	assert.Equal(t, 3, cfg.Uploader.MaxRetries)
	assert.False(t, cfg.UploadEnabled())
}

func TestParseFullDocument(t *testing.T) {
	doc := `
log:
  level: debug
  format: console
  unknown_events: true
twitch:
  username: bot
  oauth: secret
  channels: [a, b]
  cheermotes: [Cheer, BibleThump]
kick:
  enabled: true
  channels:
    - slug: xqc
      chatroom_id: 668
    - slug: other
emotes:
  bttv_url: http://bttv.local
  timeout_seconds: 5
redemption:
  ttl_seconds: 60
  sweep_seconds: 10
sink:
  stdout: true
deadletter:
  enabled: true
s3:
  bucket: archive
  region: us-east-1
  role_arn: arn:aws:iam::1:role/x
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.True(t, cfg.Log.UnknownEvents)
	assert.Equal(t, []string{"Cheer", "BibleThump"}, cfg.Twitch.Cheermotes)
	assert.Equal(t, []kick.ChannelConfig{{Slug: "xqc", ChatroomID: 668}, {Slug: "other"}}, cfg.Kick.Channels)
	assert.Equal(t, "http://bttv.local", cfg.Emotes.BTTVURL)
	assert.Equal(t, 5*time.Second, cfg.EmoteTimeout())
	assert.Equal(t, time.Minute, cfg.RedemptionTTL())
	assert.True(t, cfg.Sink.Stdout)
	assert.True(t, cfg.UploadEnabled())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TWITCH_OAUTH", "from-env")
	t.Setenv("UNICHAT_LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("twitch:\n  username: bot\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Twitch.OAuth)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"oauth without username": "twitch:\n  oauth: x\n",
		"kick channel slug":      "kick:\n  channels:\n    - chatroom_id: 1\n",
		"s3 region":              "s3:\n  bucket: b\n  role_arn: r\n",
		"s3 credentials":         "s3:\n  bucket: b\n  region: r\n",
		"s3 secret":              "s3:\n  bucket: b\n  region: r\n  access_key_id: k\n",
		"negative ttl":           "redemption:\n  ttl_seconds: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
