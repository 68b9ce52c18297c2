// Package deadletter archives raw input that failed to parse as rotating
// JSONL files, one file series per source, for later inspection.
package deadletter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/logging"
)

// FileTimeLayout is the timestamp part of archive file names.
const FileTimeLayout = "20060102_150405"

const defaultCheckInterval = time.Minute

// Entry is one archived failure.
type Entry struct {
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Error  string    `json:"error"`
	Raw    string    `json:"raw"`
}

// fileWriter manages a single JSONL file
type fileWriter struct {
	file         *os.File
	writer       *bufio.Writer
	createdAt    time.Time
	bytesWritten int64
	buffer       []Entry
	source       string
	filename     string
}

// Archive buffers entries and writes them to disk. Write never blocks; when
// the queue is full the entry is dropped and counted.
type Archive struct {
	outputDir       string
	bufferSize      int
	rotateMinutes   int
	rotateMegabytes int64
	checkInterval   time.Duration
	logger          *zap.SugaredLogger

	queue   chan Entry
	dropped atomic.Uint64

	currentFiles map[string]*fileWriter // key: sanitized source
	mu           sync.Mutex
}

// New creates an archive.
func New(outputDir string, bufferSize, rotateMinutes, rotateMegabytes int, logger *zap.SugaredLogger) *Archive {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Archive{
		outputDir:       outputDir,
		bufferSize:      bufferSize,
		rotateMinutes:   rotateMinutes,
		rotateMegabytes: int64(rotateMegabytes) * 1024 * 1024,
		checkInterval:   defaultCheckInterval,
		logger:          logging.OrNop(logger),
		queue:           make(chan Entry, 1024),
		currentFiles:    make(map[string]*fileWriter),
	}
}

// Write queues one failure.
func (a *Archive) Write(source string, raw []byte, cause error) {
	e := Entry{Time: time.Now().UTC(), Source: source, Raw: string(raw)}
	if cause != nil {
		e.Error = cause.Error()
	}
	select {
	case a.queue <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns the number of entries lost to a full queue.
func (a *Archive) Dropped() uint64 {
	return a.dropped.Load()
}

// Start writes queued entries until ctx is done. Rotated files are sent to
// fileChan for upload.
func (a *Archive) Start(ctx context.Context, fileChan chan<- string) error {
	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-a.queue:
			if err := a.record(e); err != nil {
				a.logger.Errorf("Error recording dead letter: %v", err)
			}

		case <-ticker.C:
			a.checkRotation(fileChan)

		case <-ctx.Done():
			a.logger.Info("Dead letter archive shutting down, flushing buffers...")
			a.drain()
			a.flushAll(fileChan)
			return ctx.Err()
		}
	}
}

// drain records whatever is still queued.
func (a *Archive) drain() {
	for {
		select {
		case e := <-a.queue:
			if err := a.record(e); err != nil {
				a.logger.Errorf("Error recording dead letter: %v", err)
			}
		default:
			return
		}
	}
}

// fileKey turns a source such as "twitch:irc" into "twitch-irc".
func fileKey(source string) string {
	return strings.NewReplacer(":", "-", "_", "-", "/", "-", " ", "-").Replace(source)
}

func (a *Archive) record(e Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := fileKey(e.Source)
	fw := a.currentFiles[key]
	if fw == nil {
		var err error
		fw, err = a.createFileWriter(key)
		if err != nil {
			return fmt.Errorf("create file writer: %w", err)
		}
		a.currentFiles[key] = fw
	}

	fw.buffer = append(fw.buffer, e)
	if len(fw.buffer) >= a.bufferSize {
		if err := a.flushFileWriter(fw); err != nil {
			return fmt.Errorf("flush buffer: %w", err)
		}
	}
	return nil
}

func (a *Archive) createFileWriter(source string) (*fileWriter, error) {
	now := time.Now().UTC()
	filename := fmt.Sprintf("%s_%s.jsonl", source, now.Format(FileTimeLayout))

	file, err := os.OpenFile(filepath.Join(a.outputDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	a.logger.Infof("Created new dead letter file: %s", filename)

	return &fileWriter{
		file:      file,
		writer:    bufio.NewWriter(file),
		createdAt: now,
		buffer:    make([]Entry, 0, a.bufferSize),
		source:    source,
		filename:  filename,
	}, nil
}

func (a *Archive) flushFileWriter(fw *fileWriter) error {
	for _, e := range fw.buffer {
		data, err := json.Marshal(e)
		if err != nil {
			a.logger.Errorf("Error marshaling dead letter: %v", err)
			continue
		}
		n, err := fw.writer.Write(append(data, '\n'))
		if err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
		fw.bytesWritten += int64(n)
	}
	fw.buffer = fw.buffer[:0]
	return fw.writer.Flush()
}

func (a *Archive) checkRotation(fileChan chan<- string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, fw := range a.currentFiles {
		needsRotation := false
		if a.rotateMinutes > 0 && time.Since(fw.createdAt) >= time.Duration(a.rotateMinutes)*time.Minute {
			needsRotation = true
			a.logger.Infof("Rotating file %s (time limit)", fw.filename)
		}
		if a.rotateMegabytes > 0 && fw.bytesWritten >= a.rotateMegabytes {
			needsRotation = true
			a.logger.Infof("Rotating file %s (size limit)", fw.filename)
		}
		if needsRotation {
			a.closeFile(fw, fileChan)
			// The next entry for this source opens a fresh file.
			delete(a.currentFiles, key)
		}
	}
}

// closeFile flushes and closes fw and queues it for upload.
func (a *Archive) closeFile(fw *fileWriter, fileChan chan<- string) {
	if err := a.flushFileWriter(fw); err != nil {
		a.logger.Errorf("Error flushing file writer: %v", err)
	}
	if err := fw.file.Close(); err != nil {
		a.logger.Errorf("Error closing file: %v", err)
	}

	path := filepath.Join(a.outputDir, fw.filename)
	select {
	case fileChan <- path:
		a.logger.Infof("Queued file for upload: %s", fw.filename)
	default:
		a.logger.Warnf("Upload queue full, file will be uploaded later: %s", fw.filename)
	}
}

func (a *Archive) flushAll(fileChan chan<- string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, fw := range a.currentFiles {
		a.closeFile(fw, fileChan)
		delete(a.currentFiles, key)
	}
	a.logger.Info("All dead letter files flushed and closed")
}
