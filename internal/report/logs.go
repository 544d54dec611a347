package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/borrowledger/internal/logging"
)

var levelStyles = map[string]lipgloss.Style{
	logging.LevelDebug: mutedStyle,
	logging.LevelInfo:  lipgloss.NewStyle().Foreground(primaryColor),
	logging.LevelWarn:  warnStyle,
	logging.LevelError: failStyle,
}

// Logs writes log entries, one per line in text format.
func Logs(w io.Writer, format string, entries []logging.LogEntry) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if ok, err := encode(w, format, entries); ok {
		return err
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(formatLogEntry(e) + "\n")
	}
	if len(entries) == 0 {
		b.WriteString(mutedStyle.Render("No matching log entries found.") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatLogEntry(e logging.LogEntry) string {
	style, ok := levelStyles[e.Level]
	if !ok {
		style = lipgloss.NewStyle()
	}

	var b strings.Builder
	b.WriteString(mutedStyle.Render("[" + e.Time.Format("15:04:05.000") + "]"))
	b.WriteString(" " + style.Render(fmt.Sprintf("%-5s", e.Level)))
	b.WriteString(" " + e.Message)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", mutedStyle.Render(k), e.Attrs[k])
	}
	return b.String()
}

// LogLine writes a single entry as it is followed: one text line, one compact
// JSON object, or one YAML document.
func LogLine(w io.Writer, format string, e logging.LogEntry) error {
	switch format {
	case FormatText:
		_, err := io.WriteString(w, formatLogEntry(e)+"\n")
		return err
	case FormatJSON:
		return json.NewEncoder(w).Encode(e)
	case FormatYAML:
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		_, err := encode(w, format, e)
		return err
	default:
		return checkFormat(format)
	}
}

// Runs writes the runs found in a log file, most recent first.
func Runs(w io.Writer, format string, runs []logging.RunSummary) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if ok, err := encode(w, format, runs); ok {
		return err
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(
		column("RUN", 38, false)+column("STARTED", 21, false)+column("COMMAND", 30, false)+column("ENTRIES", 9, true)+column("ERRORS", 8, true),
	) + "\n")
	for _, r := range runs {
		b.WriteString(column(r.RunID, 38, false))
		b.WriteString(column(r.Started.Format("2006-01-02 15:04:05"), 21, false))
		b.WriteString(column(r.Command, 30, false))
		b.WriteString(column(fmt.Sprintf("%d", r.Entries), 9, true))
		errs := fmt.Sprintf("%d", r.Errors)
		if r.Errors > 0 {
			errs = failStyle.Render(errs)
		}
		b.WriteString(column(errs, 8, true) + "\n")
	}
	if len(runs) == 0 {
		b.WriteString(mutedStyle.Render("No runs found.") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
