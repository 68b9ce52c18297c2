// Package uploader ships rotated dead letter archives to S3.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/deadletter"
	"github.com/voguh/unichat-sub000/internal/logging"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures an Uploader.
type Options struct {
	Bucket      string
	Prefix      string
	DeleteAfter bool
	MaxRetries  int
	Logger      *zap.SugaredLogger
}

// Uploader handles uploading completed archive files to S3
type Uploader struct {
	client      ObjectPutter
	bucket      string
	prefix      string
	deleteAfter bool
	maxRetries  int
	logger      *zap.SugaredLogger

	// backoff returns the wait before retry attempt+1.
	backoff func(attempt int) time.Duration
	wg      sync.WaitGroup
}

// flyTokenRetriever implements stscreds.IdentityTokenRetriever for Fly.io OIDC
type flyTokenRetriever struct {
	socketPath string
	audience   string
}

// GetIdentityToken fetches an OIDC token from Fly.io's Unix socket API
func (f *flyTokenRetriever) GetIdentityToken() ([]byte, error) {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", f.socketPath)
			},
		},
		Timeout: 5 * time.Second,
	}

	reqBody, err := json.Marshal(map[string]string{
		"aud": f.audience,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := client.Post("http://localhost/v1/tokens/oidc", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// New creates an S3 uploader. With a roleARN it assumes that role using the
// Fly.io OIDC token; with static keys it uses those; otherwise it uses the
// default AWS credential chain.
func New(ctx context.Context, region, roleARN, accessKeyID, secretAccessKey string, opts Options) (*Uploader, error) {
	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(region))
	if roleARN == "" && accessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if roleARN != "" {
		stsClient := sts.NewFromConfig(cfg)
		tokenRetriever := &flyTokenRetriever{
			socketPath: "/.fly/api",
			audience:   "sts.amazonaws.com",
		}
		credProvider := stscreds.NewWebIdentityRoleProvider(stsClient, roleARN, tokenRetriever)
		cfg.Credentials = aws.NewCredentialsCache(credProvider)
	}

	return NewWithClient(s3.NewFromConfig(cfg), opts), nil
}

// NewWithClient creates an uploader over an existing client.
func NewWithClient(client ObjectPutter, opts Options) *Uploader {
	return &Uploader{
		client:      client,
		bucket:      opts.Bucket,
		prefix:      strings.Trim(opts.Prefix, "/"),
		deleteAfter: opts.DeleteAfter,
		maxRetries:  opts.MaxRetries,
		logger:      logging.OrNop(opts.Logger),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// ScanAndUploadExisting scans a directory for existing .jsonl files and uploads them
func (u *Uploader) ScanAndUploadExisting(ctx context.Context, outputDir string) error {
	u.logger.Infof("Scanning %s for existing files to upload...", outputDir)

	// Read directory
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	// Find all .jsonl files
	var filesToUpload []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only process .jsonl files
		if strings.HasSuffix(entry.Name(), ".jsonl") {
			filePath := filepath.Join(outputDir, entry.Name())
			filesToUpload = append(filesToUpload, filePath)
		}
	}

	if len(filesToUpload) == 0 {
		u.logger.Info("No existing files found to upload")
		return nil
	}

	u.logger.Infof("Found %d existing file(s) to upload", len(filesToUpload))

	// Upload each file in a goroutine
	for _, filePath := range filesToUpload {
		u.spawn(ctx, filePath)
	}

	return nil
}

// Start begins monitoring for files to upload
func (u *Uploader) Start(ctx context.Context, fileChan <-chan string) error {
	for {
		select {
		case localPath := <-fileChan:
			// Upload in a goroutine so we don't block
			u.spawn(ctx, localPath)

		case <-ctx.Done():
			u.logger.Info("Uploader shutting down...")
			u.wg.Wait()
			return ctx.Err()
		}
	}
}

func (u *Uploader) spawn(ctx context.Context, localPath string) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.uploadWithRetry(ctx, localPath)
	}()
}

// Wait blocks until every started upload has finished.
func (u *Uploader) Wait() {
	u.wg.Wait()
}

// uploadWithRetry uploads a file with retry logic
func (u *Uploader) uploadWithRetry(ctx context.Context, localPath string) {
	filename := filepath.Base(localPath)

	s3Key, err := generateS3Key(u.prefix, filename)
	if err != nil {
		u.logger.Errorf("Error generating S3 key for %s: %v", filename, err)
		return
	}

	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		err := u.uploadFile(ctx, localPath, s3Key)
		if err == nil {
			u.logger.Infof("Successfully uploaded %s to s3://%s/%s", filename, u.bucket, s3Key)

			// Delete local file if configured
			if u.deleteAfter {
				if err := os.Remove(localPath); err != nil {
					u.logger.Errorf("Error deleting local file %s: %v", localPath, err)
				} else {
					u.logger.Infof("Deleted local file %s", localPath)
				}
			}
			return
		}

		if attempt < u.maxRetries {
			backoff := u.backoff(attempt)
			u.logger.Warnf("Upload attempt %d/%d failed for %s: %v. Retrying in %v",
				attempt+1, u.maxRetries+1, filename, err, backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
		}
	}

	u.logger.Errorf("Failed to upload %s after %d attempts", filename, u.maxRetries+1)
}

// uploadFile uploads a specific file to S3
func (u *Uploader) uploadFile(ctx context.Context, localPath, s3Key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(s3Key),
		Body:   file,
	})

	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

// generateS3Key generates an S3 key from an archive filename
// Input: twitch-irc_20251230_103015.jsonl
// Output: 2025/12/30/twitch-irc/twitch-irc_20251230_103015.jsonl
func generateS3Key(prefix, filename string) (string, error) {
	nameWithoutExt := strings.TrimSuffix(filename, ".jsonl")

	// The last two parts are always date and time
	parts := strings.Split(nameWithoutExt, "_")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid filename format: %s", filename)
	}
	source := strings.Join(parts[:len(parts)-2], "_")
	timestamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]

	t, err := time.Parse(deadletter.FileTimeLayout, timestamp)
	if err != nil {
		return "", fmt.Errorf("parse timestamp: %w", err)
	}

	s3Key := fmt.Sprintf("%04d/%02d/%02d/%s/%s",
		t.Year(), t.Month(), t.Day(), source, filename)
	if prefix != "" {
		s3Key = prefix + "/" + s3Key
	}
	return s3Key, nil
}
