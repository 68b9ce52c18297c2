package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/config"
	"github.com/voguh/unichat-sub000/internal/deadletter"
	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/kick"
	"github.com/voguh/unichat-sub000/internal/logging"
	"github.com/voguh/unichat-sub000/internal/server"
	"github.com/voguh/unichat-sub000/internal/session"
	"github.com/voguh/unichat-sub000/internal/sink"
	"github.com/voguh/unichat-sub000/internal/twitch"
	"github.com/voguh/unichat-sub000/internal/uploader"
)

func main() {
	// Get config path from environment variable or use default
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Unichat starting...")
	if err := run(cfg, logger); err != nil {
		logger.Errorf("Unichat stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Unichat stopped")
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fileChan := make(chan string, 100)

	opts := []session.Option{
		session.WithLogger(logger.Named("session")),
		session.WithEmoteProviders(
			emotes.DefaultProviders(&http.Client{Timeout: cfg.EmoteTimeout()}, cfg.Emotes.BTTVURL, cfg.Emotes.FFZURL, cfg.Emotes.SevenTVURL),
			cfg.EmoteTimeout(),
		),
		session.WithRedemptionTTL(cfg.RedemptionTTL(), cfg.RedemptionSweep()),
		session.WithSinkOptions(sink.WithBufferSize(cfg.Sink.BufferSize)),
		session.WithLogUnknown(cfg.Log.UnknownEvents),
	}
	if cfg.Assets.BaseURL != "" {
		opts = append(opts, session.WithAssetsBaseURL(cfg.Assets.BaseURL))
	}
	if len(cfg.Twitch.Cheermotes) > 0 {
		opts = append(opts, session.WithCheermotes(cfg.Twitch.Cheermotes))
	}

	var archive *deadletter.Archive
	if cfg.DeadLetter.Enabled {
		archive = deadletter.New(
			cfg.DeadLetter.OutputDir,
			cfg.DeadLetter.BufferSize,
			cfg.DeadLetter.RotateMinutes,
			cfg.DeadLetter.RotateMegabytes,
			logger.Named("deadletter"),
		)
		opts = append(opts, session.WithDeadLetter(archive))
	}

	var up *uploader.Uploader
	if cfg.UploadEnabled() {
		if cfg.S3.RoleARN != "" {
			logger.Infof("Using OIDC authentication with role: %s", cfg.S3.RoleARN)
		} else {
			logger.Warn("Using static AWS credentials (deprecated). Migrate to OIDC for better security.")
		}
		var err error
		up, err = uploader.New(ctx, cfg.S3.Region, cfg.S3.RoleARN, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, uploader.Options{
			Bucket:      cfg.S3.Bucket,
			Prefix:      cfg.S3.Prefix,
			DeleteAfter: cfg.Uploader.DeleteAfterUpload,
			MaxRetries:  cfg.Uploader.MaxRetries,
			Logger:      logger.Named("uploader"),
		})
		if err != nil {
			return fmt.Errorf("create uploader: %w", err)
		}
	}

	sess := session.New(opts...)
	defer sess.Close()

	var twitchConn *twitch.Connector
	if len(cfg.Twitch.Channels) > 0 {
		logger.Infof("Monitoring %d Twitch channels: %v", len(cfg.Twitch.Channels), cfg.Twitch.Channels)
		twitchConn = twitch.NewConnector(cfg.Twitch.Username, cfg.Twitch.OAuth, cfg.Twitch.Channels, logger.Named("twitch"))
	}

	var kickConn *kick.Connector
	if cfg.Kick.Enabled && len(cfg.Kick.Channels) > 0 {
		logger.Infof("Monitoring %d Kick channels", len(cfg.Kick.Channels))
		kickConn = kick.NewConnector(cfg.Kick.Channels, cfg.Kick.APIURL, logger.Named("kick"))
	}

	httpServer := server.New(cfg.Server.Addr, sess, logger.Named("server"))

	var wg sync.WaitGroup
	start := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("%s error: %v", name, err)
			}
		}()
	}

	start("Redemption sweeper", func() error { return sess.Run(ctx) })

	if cfg.Sink.Stdout {
		sub, err := sess.Subscribe(0)
		if err != nil {
			return fmt.Errorf("subscribe stdout: %w", err)
		}
		start("Stdout writer", func() error { return sink.WriteJSONLines(ctx, sub, os.Stdout) })
	}

	if twitchConn != nil {
		start("Twitch connector", func() error { return twitchConn.Start(ctx, sess) })
	}
	if kickConn != nil {
		start("Kick connector", func() error { return kickConn.Start(ctx, sess) })
	}

	if archive != nil {
		start("Dead letter archive", func() error { return archive.Start(ctx, fileChan) })
	}
	if up != nil {
		// Scan for leftover files from a previous run
		if err := up.ScanAndUploadExisting(ctx, cfg.DeadLetter.OutputDir); err != nil {
			logger.Warnf("Failed to scan for existing files: %v", err)
		}
		start("Uploader", func() error { return up.Start(ctx, fileChan) })
	}

	start("HTTP server", httpServer.Start)

	logger.Info("All components started successfully")

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error shutting down HTTP server: %v", err)
	}

	// Cancel main context to stop other components
	cancel()
	sess.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing exit")
	}
	return nil
}
