package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoLogFile is returned when the log directory has no borrowledger.log.
var ErrNoLogFile = errors.New("no log file found")

// LogEntry is one parsed log line.
type LogEntry struct {
	Time    time.Time      `json:"time" yaml:"time"`
	Level   string         `json:"level" yaml:"level"`
	Message string         `json:"msg" yaml:"msg"`
	RunID   string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Command string         `json:"command,omitempty" yaml:"command,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// LogFilter selects log entries. Zero fields match everything; set fields
// are combined with AND.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level string
	// Since keeps entries at or after this time.
	Since time.Time
	// RunID keeps entries from one run.
	RunID string
	// Contains keeps entries whose message contains this substring.
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadLogs parses {dir}/borrowledger.log. Lines that are not valid JSON are
// skipped. Entries are returned in file order.
func ReadLogs(dir string) ([]LogEntry, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoLogFile, dir)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseLogs(f)
}

// ParseLogs parses JSON log lines from r.
func ParseLogs(r io.Reader) ([]LogEntry, error) {
	scanner := bufio.NewScanner(r)
	const maxLine = 1 << 20
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var entries []LogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var entry LogEntry
	if ts, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.RunID, _ = raw["run_id"].(string)
	entry.Command, _ = raw["command"].(string)

	for _, k := range []string{"time", "level", "msg", "run_id", "command"} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		entry.Attrs = raw
	}
	return entry, nil
}

// FilterLogs returns the entries matching filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var filtered []LogEntry
	for _, e := range entries {
		if filter.matches(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func (f LogFilter) matches(e LogEntry) bool {
	if f.Level != "" {
		want, wantOK := levelOrder[strings.ToUpper(f.Level)]
		got, gotOK := levelOrder[e.Level]
		if wantOK && gotOK && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// RunSummary describes one run found in the log.
type RunSummary struct {
	RunID   string    `json:"run_id" yaml:"run_id"`
	Command string    `json:"command" yaml:"command"`
	Started time.Time `json:"started" yaml:"started"`
	Entries int       `json:"entries" yaml:"entries"`
	Errors  int       `json:"errors" yaml:"errors"`
}

// SummarizeRuns groups entries by run ID, most recently started first.
// Entries without a run ID are ignored.
func SummarizeRuns(entries []LogEntry) []RunSummary {
	byID := make(map[string]*RunSummary)
	var order []*RunSummary
	for _, e := range entries {
		if e.RunID == "" {
			continue
		}
		s, ok := byID[e.RunID]
		if !ok {
			s = &RunSummary{RunID: e.RunID, Command: e.Command, Started: e.Time}
			byID[e.RunID] = s
			order = append(order, s)
		}
		s.Entries++
		if e.Level == LevelError {
			s.Errors++
		}
		if e.Time.Before(s.Started) {
			s.Started = e.Time
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Started.After(order[j].Started)
	})
	runs := make([]RunSummary, len(order))
	for i, s := range order {
		runs[i] = *s
	}
	return runs
}
