// Package parser provides log file parsing capabilities.
//
// It detects JSON log lines, extracts timestamps and severity levels, and
// streams structured entries to the template-mining engine in file order.
package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/distillog/distill/internal/config"
)

// maxScanTokenSize bounds a single log line at 1MB.
const maxScanTokenSize = 1024 * 1024

// Parser reads and parses log files into structured entries.
type Parser struct {
	timestampFormats []string
}

// New creates a new Parser with the given timestamp format patterns.
func New(timestampFormats []string) *Parser {
	if len(timestampFormats) == 0 {
		timestampFormats = []string{
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02 15:04:05",
			"Jan 02 15:04:05",
			"02/Jan/2006:15:04:05 -0700",
		}
	}
	return &Parser{timestampFormats: timestampFormats}
}

// ParseFile opens a file and parses all log entries from it.
func (p *Parser) ParseFile(path string) ([]config.LogEntry, error) {
	var entries []config.LogEntry
	err := p.ParseFileStream(path, func(entry config.LogEntry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// ParseFileStream opens a file and invokes fn for each entry in file
// order. A non-nil error from fn stops the stream.
func (p *Parser) ParseFileStream(path string, fn func(config.LogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return p.ParseStream(f, fn)
}

// Parse reads all log entries from the given reader.
func (p *Parser) Parse(r io.Reader) ([]config.LogEntry, error) {
	var entries []config.LogEntry
	err := p.ParseStream(r, func(entry config.LogEntry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// ParseStream reads log entries from the reader and invokes fn for each
// one, preserving input order. Blank lines are skipped; line numbers are
// 1-based and count every physical line.
func (p *Parser) ParseStream(r io.Reader, fn func(config.LogEntry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if err := fn(p.ParseLine(line, lineNum)); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// ParseLine parses a single log line into a LogEntry.
func (p *Parser) ParseLine(line string, lineNum int) config.LogEntry {
	entry := config.LogEntry{
		Raw:   line,
		Line:  lineNum,
		Level: config.LevelUnknown,
	}

	if p.tryParseJSON(line, &entry) {
		return entry
	}

	entry.Timestamp = p.extractTimestamp(line)
	entry.Level = p.extractLevel(line)
	entry.Message = line

	return entry
}

// tryParseJSON attempts to parse the line as a JSON log entry.
func (p *Parser) tryParseJSON(line string, entry *config.LogEntry) bool {
	if len(line) == 0 || line[0] != '{' {
		return false
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return false
	}

	for _, key := range []string{"msg", "message", "text"} {
		if v, ok := data[key].(string); ok {
			entry.Message = v
			break
		}
	}

	for _, key := range []string{"level", "severity", "lvl"} {
		if v, ok := data[key].(string); ok {
			entry.Level = config.ParseLevel(v)
			break
		}
	}

	for _, key := range []string{"time", "timestamp", "ts", "@timestamp"} {
		if v, ok := data[key].(string); ok {
			entry.Timestamp = p.parseTimestamp(v)
			break
		}
	}

	if v, ok := data["source"].(string); ok {
		entry.Source = v
	}

	// Store remaining string fields
	for k, v := range data {
		switch k {
		case "msg", "message", "text", "level", "severity", "lvl",
			"time", "timestamp", "ts", "@timestamp", "source":
			continue
		default:
			if s, ok := v.(string); ok {
				if entry.Fields == nil {
					entry.Fields = make(map[string]string)
				}
				entry.Fields[k] = s
			}
		}
	}

	return true
}

// levelPattern matches common log level strings.
var levelPattern = regexp.MustCompile(`(?i)\b(DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL)\b`)

// extractLevel extracts the log level from a line.
func (p *Parser) extractLevel(line string) config.LogLevel {
	match := levelPattern.FindString(line)
	if match == "" {
		return config.LevelUnknown
	}
	return config.ParseLevel(match)
}

// extractTimestamp tries all known timestamp formats against the line.
func (p *Parser) extractTimestamp(line string) time.Time {
	for _, format := range p.timestampFormats {
		if t := p.tryTimestampFormat(line, format); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// parseTimestamp parses a known timestamp string.
func (p *Parser) parseTimestamp(s string) time.Time {
	for _, format := range p.timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// tryTimestampFormat attempts to parse a timestamp from the beginning of
// a line using a specific format.
func (p *Parser) tryTimestampFormat(line string, format string) time.Time {
	fmtLen := len(format)
	if len(line) >= fmtLen {
		if t, err := time.Parse(format, line[:fmtLen]); err == nil {
			return t
		}
	}
	return time.Time{}
}
