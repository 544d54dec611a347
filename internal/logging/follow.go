package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Follower streams entries appended to a log file, like tail -f. It keeps
// following across rotation: when the file is recreated it starts reading
// the new file from the beginning.
type Follower struct {
	path    string
	watcher *fsnotify.Watcher
	file    *os.File
	reader  *bufio.Reader
	partial string
}

// NewFollower opens {dir}/borrowledger.log positioned at its end. Only
// entries written after NewFollower returns are reported.
func NewFollower(dir string) (*Follower, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoLogFile, dir)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to seek to end: %w", err)
	}

	// The directory is watched rather than the file so that a rotated
	// file's replacement is seen.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = f.Close()
		_ = watcher.Close()
		return nil, err
	}

	return &Follower{path: path, watcher: watcher, file: f, reader: bufio.NewReader(f)}, nil
}

// Run calls emit for every complete entry appended to the file until ctx is
// done. Lines that are not valid JSON are skipped.
func (f *Follower) Run(ctx context.Context, emit func(LogEntry)) error {
	defer f.close()

	// Anything written between NewFollower and Run.
	if err := f.drain(emit); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Finish the old file before switching to its replacement.
			if err := f.drain(emit); err != nil {
				return err
			}
			if event.Op&fsnotify.Create != 0 {
				if err := f.reopen(); err != nil {
					return err
				}
				if err := f.drain(emit); err != nil {
					return err
				}
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching log file: %w", err)
		}
	}
}

// drain reads every complete line currently available.
func (f *Follower) drain(emit func(LogEntry)) error {
	for {
		chunk, err := f.reader.ReadString('\n')
		f.partial += chunk
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}

		line := strings.TrimSpace(f.partial)
		f.partial = ""
		if line == "" {
			continue
		}
		if entry, err := parseLogEntry(line); err == nil {
			emit(entry)
		}
	}
}

func (f *Follower) reopen() error {
	nf, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	_ = f.file.Close()
	f.file = nf
	f.reader = bufio.NewReader(nf)
	f.partial = ""
	return nil
}

func (f *Follower) close() {
	_ = f.watcher.Close()
	_ = f.file.Close()
}
