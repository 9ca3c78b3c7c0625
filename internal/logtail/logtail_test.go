package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if lines != nil {
		t.Fatalf("Read() = %v, want nil", lines)
	}
}

func TestParse_ZerologLine(t *testing.T) {
	line := `{"level":"warn","component":"catalog","source":"catalog","page":2,"error":"api /api/v1/package/ returned status 502","time":"2026-03-01T10:15:30Z","message":"catalog page failed"}`
	e := Parse(line)

	if e.Level != "warn" || e.Component != "catalog" || e.Message != "catalog page failed" {
		t.Fatalf("Parse() = %#v", e)
	}
	if e.Error != "api /api/v1/package/ returned status 502" {
		t.Fatalf("Error = %q", e.Error)
	}
	want := map[string]string{"source": "catalog", "page": "2"}
	if !reflect.DeepEqual(e.Fields, want) {
		t.Fatalf("Fields = %v, want %v", e.Fields, want)
	}
	if e.Time.IsZero() || e.Time.UTC().Hour() != 10 {
		t.Fatalf("Time = %v", e.Time)
	}
}

func TestParse_PlainLine(t *testing.T) {
	e := Parse("panic: something broke")
	if e.Message != "panic: something broke" || e.Level != "" || e.Fields != nil {
		t.Fatalf("Parse() = %#v", e)
	}
	if got := Format(e); got != "panic: something broke" {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	e := Entry{
		Level:     "info",
		Component: "poller",
		Message:   "environments refreshed",
		Fields:    map[string]string{"count": "4", "channels": "2"},
	}
	want := "INFO [poller] environments refreshed channels=2 count=4"
	if got := Format(e); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}

	e.Error = "boom"
	if got := Format(e); !strings.HasSuffix(got, ` error="boom"`) {
		t.Fatalf("Format() = %q, want error suffix", got)
	}
}

func TestFilter(t *testing.T) {
	entries := ParseLines([]string{
		`{"level":"debug","message":"catalog page loaded","source":"catalog"}`,
		`{"level":"info","message":"engine reset"}`,
		`{"level":"warn","message":"installed catch-up interrupted","source":"installed"}`,
		`not json at all`,
	})

	if got := Filter(entries, "", ""); len(got) != 4 {
		t.Fatalf("Filter(all) = %d entries, want 4", len(got))
	}
	if got := Filter(entries, "warn", ""); len(got) != 1 || got[0].Message != "installed catch-up interrupted" {
		t.Fatalf("Filter(warn) = %#v", got)
	}
	got := Filter(entries, "", "CATALOG")
	if len(got) != 1 || got[0].Level != "debug" {
		t.Fatalf("Filter(query) = %#v", got)
	}
}
