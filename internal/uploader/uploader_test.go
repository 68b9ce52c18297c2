package uploader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePutter struct {
	mu       sync.Mutex
	failures int
	calls    int
	keys     []string
	bodies   []string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenerateS3Key(t *testing.T) {
	key, err := generateS3Key("", "twitch-irc_20251230_103015.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "2025/12/30/twitch-irc/twitch-irc_20251230_103015.jsonl", key)

	key, err = generateS3Key("deadletter", "youtube-action_20260102_000001.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "deadletter/2026/01/02/youtube-action/youtube-action_20260102_000001.jsonl", key)

	_, err = generateS3Key("", "garbage.jsonl")
	assert.Error(t, err)
	_, err = generateS3Key("", "twitch-irc_2025_1030.jsonl")
	assert.Error(t, err)
}

func TestUploadRetriesAndDeletes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kick-message_20251230_103015.jsonl", "{}\n")

	putter := &fakePutter{failures: 2}
	u := NewWithClient(putter, Options{Bucket: "b", DeleteAfter: true, MaxRetries: 3})
	u.backoff = func(int) time.Duration { return time.Millisecond }

	u.uploadWithRetry(context.Background(), path)

	assert.Equal(t, 3, putter.calls)
	assert.Equal(t, []string{"2025/12/30/kick-message/kick-message_20251230_103015.jsonl"}, putter.keys)
	assert.Equal(t, []string{"{}\n"}, putter.bodies)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadGivesUpAfterMaxRetries(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "twitch-irc_20251230_103015.jsonl", "{}\n")

	putter := &fakePutter{failures: 10}
	u := NewWithClient(putter, Options{Bucket: "b", DeleteAfter: true, MaxRetries: 1})
	u.backoff = func(int) time.Duration { return time.Millisecond }

	u.uploadWithRetry(context.Background(), path)

	assert.Equal(t, 2, putter.calls)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestScanAndStart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "twitch-irc_20251230_103015.jsonl", "a\n")
	writeFile(t, dir, "notes.txt", "ignored")
	queued := writeFile(t, dir, "youtube-action_20251231_000000.jsonl", "b\n")

	putter := &fakePutter{}
	u := NewWithClient(putter, Options{Bucket: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	files := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- u.Start(ctx, files) }()

	require.NoError(t, u.ScanAndUploadExisting(ctx, filepath.Join(dir)))
	files <- queued

	require.Eventually(t, func() bool {
		putter.mu.Lock()
		defer putter.mu.Unlock()
		return len(putter.keys) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
