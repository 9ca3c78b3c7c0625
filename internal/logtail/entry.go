package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed zerolog JSON line.
type Entry struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
	Error     string
	// Fields holds the remaining keys rendered as strings.
	Fields map[string]string
	// Raw is the original line, kept for lines that are not JSON.
	Raw string
}

var reservedKeys = map[string]bool{
	"time": true, "level": true, "component": true, "message": true, "error": true,
}

// Parse decodes a zerolog JSON line. Lines that are not JSON objects come
// back with only Raw and Message set.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	var obj map[string]any
	if !strings.HasPrefix(trimmed, "{") || json.Unmarshal([]byte(trimmed), &obj) != nil {
		return Entry{Raw: line, Message: line}
	}

	e := Entry{Raw: line, Fields: map[string]string{}}
	if ts, ok := obj["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Time = parsed
		}
	}
	e.Level, _ = obj["level"].(string)
	e.Component, _ = obj["component"].(string)
	e.Message, _ = obj["message"].(string)
	e.Error, _ = obj["error"].(string)
	for k, v := range obj {
		if reservedKeys[k] {
			continue
		}
		e.Fields[k] = stringify(v)
	}
	return e
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, Parse(line))
	}
	return out
}

// Format renders e as a single plain-text line:
//
//	15:04:05 WARN [catalog] catalog page failed page=2 source=catalog error="boom"
func Format(e Entry) string {
	if e.Fields == nil && e.Level == "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		b.WriteString(strings.ToUpper(e.Level))
		b.WriteByte(' ')
	}
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	return b.String()
}

// Filter keeps entries at or above minLevel whose formatted text contains
// query (case-insensitive). An empty minLevel keeps every level.
func Filter(entries []Entry, minLevel, query string) []Entry {
	floor := 0
	if minLevel != "" {
		floor = levelRank(minLevel)
	}
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if levelRank(e.Level) < floor {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(Format(e)), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "trace":
		return 0
	case "debug":
		return 1
	case "", "info":
		return 2
	case "warn", "warning":
		return 3
	case "error":
		return 4
	default:
		return 5
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
