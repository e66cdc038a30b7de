package logtail

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % maxLines
		count = min(count+1, maxLines)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if count < maxLines {
		return slices.Clone(ring[:count]), nil
	}
	return append(slices.Clone(ring[next:]), ring[:next]...), nil
}

// Attr is one key/value pair of a record, in file order.
type Attr struct {
	Key   string
	Value string
}

// Entry is one parsed log record.
type Entry struct {
	Time  time.Time
	Level slog.Level
	Msg   string
	Attrs []Attr
	// Raw is set for lines that are not JSON records; Msg holds the line.
	Raw bool
}

// Parse decodes a JSON log line written by log/slog. Lines that are not JSON
// objects are returned as raw entries at info level.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{Msg: line, Level: slog.LevelInfo, Raw: true}
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return Entry{Msg: line, Level: slog.LevelInfo, Raw: true}
	}

	e := Entry{Level: slog.LevelInfo}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Entry{Msg: line, Level: slog.LevelInfo, Raw: true}
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return Entry{Msg: line, Level: slog.LevelInfo, Raw: true}
		}
		switch key {
		case slog.TimeKey:
			var s string
			if json.Unmarshal(value, &s) == nil {
				e.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case slog.LevelKey:
			var s string
			if json.Unmarshal(value, &s) == nil {
				_ = e.Level.UnmarshalText([]byte(s))
			}
		case slog.MessageKey:
			_ = json.Unmarshal(value, &e.Msg)
		default:
			e.Attrs = append(e.Attrs, Attr{Key: key, Value: scalar(value)})
		}
	}
	return e
}

func scalar(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var compact bytes.Buffer
	if json.Compact(&compact, raw) == nil {
		return compact.String()
	}
	return string(raw)
}

// ParseAll parses lines, skipping blank ones.
func ParseAll(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, Parse(l))
	}
	return out
}

// Filter keeps entries at or above level.
func Filter(entries []Entry, level slog.Level) []Entry {
	return slices.DeleteFunc(slices.Clone(entries), func(e Entry) bool { return e.Level < level })
}

// Format renders an entry as a single plain-text line:
//
//	15:04:05 ERROR server error op=complete-session session_id=7
func Format(e Entry) string {
	if e.Raw {
		return e.Msg
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", e.Level.String(), e.Msg)
	for _, a := range e.Attrs {
		if a.Key == "pid" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		if strings.ContainsAny(a.Value, " \t") {
			b.WriteString(fmt.Sprintf("%q", a.Value))
		} else {
			b.WriteString(a.Value)
		}
	}
	return b.String()
}
