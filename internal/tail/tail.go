// Package tail provides log file following with rotation detection, used
// to feed the template-mining engine incrementally as a file grows.
package tail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/distillog/distill/internal/config"
	"github.com/distillog/distill/internal/parser"
	"github.com/fsnotify/fsnotify"
)

// ErrRotated is returned when the watched file is rotated and rotation
// following is disabled.
var ErrRotated = fmt.Errorf("file rotated")

// Options configures the tailer behavior.
type Options struct {
	FilePath     string                      // Path to the log file
	Lines        int                         // Number of initial lines to emit
	Follow       bool                        // Whether to follow the file for new content
	FollowRotate bool                        // Whether to follow through log rotations
	Pattern      *regexp.Regexp              // Optional regex filter on raw lines
	LevelFilter  config.LogLevel             // Minimum log level to emit
	OutputFunc   func(config.LogEntry) error // Called for each matching entry
}

// Tailer follows a log file and streams parsed entries to OutputFunc.
type Tailer struct {
	opts    Options
	parser  *parser.Parser
	file    *os.File
	offset  int64
	lineNum int
	watcher *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	return &Tailer{
		opts:   opts,
		parser: parser.New(nil),
	}
}

// Run starts the tailing process. It blocks until the context is
// cancelled, the file is rotated without FollowRotate, or an error occurs.
func (t *Tailer) Run(ctx context.Context) error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	t.file = f
	defer t.close()

	if t.opts.Lines > 0 {
		if err := t.emitInitialLines(); err != nil {
			return fmt.Errorf("read initial lines: %w", err)
		}
	} else if t.opts.Follow {
		off, err := t.file.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		t.offset = off
	}

	if !t.opts.Follow {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("setup watcher: %w", err)
	}
	t.watcher = watcher
	if err := watcher.Add(t.opts.FilePath); err != nil {
		return fmt.Errorf("watch file: %w", err)
	}

	return t.watch(ctx)
}

// emitInitialLines reads the last N matching lines and emits them.
func (t *Tailer) emitInitialLines() error {
	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	// Seek back far enough to cover N lines; ~300 bytes per line is
	// generous for JSON logs, doubled for slack.
	startPos := stat.Size() - int64(t.opts.Lines*300*2)
	if startPos < 0 {
		startPos = 0
	}
	if _, err := t.file.Seek(startPos, io.SeekStart); err != nil {
		return err
	}

	scanner := newLineScanner(t.file)
	if startPos > 0 && scanner.Scan() {
		// Discard the first, likely partial, line.
	}

	var entries []config.LogEntry
	for scanner.Scan() {
		t.lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry := t.parser.ParseLine(line, t.lineNum)
		if t.shouldEmit(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(entries) > t.opts.Lines {
		entries = entries[len(entries)-t.opts.Lines:]
	}
	for _, entry := range entries {
		if err := t.opts.OutputFunc(entry); err != nil {
			return err
		}
	}

	t.offset, err = t.file.Seek(0, io.SeekEnd)
	return err
}

// watch monitors the file for changes and emits new lines.
func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		return t.emitNewContent()
	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		return t.handleRotation(ctx)
	}
	return nil
}

// emitNewContent reads and emits content appended since the last offset.
func (t *Tailer) emitNewContent() error {
	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	scanner := newLineScanner(t.file)
	for scanner.Scan() {
		t.lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry := t.parser.ParseLine(line, t.lineNum)
		if t.shouldEmit(entry) {
			if err := t.opts.OutputFunc(entry); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	var err error
	t.offset, err = t.file.Seek(0, io.SeekCurrent)
	return err
}

// handleRotation handles log file rotation, waiting for the new file when
// FollowRotate is set.
func (t *Tailer) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		fmt.Fprintf(os.Stderr, "\nFile rotated. Exiting. Use --follow-rotate to follow through rotations.\n")
		return ErrRotated
	}

	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0
			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("watch rotated file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "\n==> File rotated, following new file <==\n")
			return nil
		}
	}
}

// shouldEmit checks an entry against the level and pattern filters.
// Entries with an unknown level pass the level filter; what cannot be
// classified cannot be filtered.
func (t *Tailer) shouldEmit(entry config.LogEntry) bool {
	if t.opts.LevelFilter != config.LevelUnknown && entry.Level != config.LevelUnknown {
		if entry.Level < t.opts.LevelFilter {
			return false
		}
	}
	if t.opts.Pattern != nil && !t.opts.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)
	return scanner
}

// close closes all resources.
func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}
