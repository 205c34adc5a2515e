package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/persistorai/txlink/internal/config"
	"github.com/persistorai/txlink/internal/models"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r)
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

// TestFormatJSONSearchResult verifies that formatJSON emits indented JSON
// that decodes back into a search result.
func TestFormatJSONSearchResult(t *testing.T) {
	got := captureStdout(t, func() { formatJSON(foundResult()) })

	var out models.SearchResult
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, got)
	}
	if !out.Found() || len(out.Path) != 1 || out.Path[0].TxHash != "0xfeed" {
		t.Errorf("decoded result: %+v", out)
	}
	if !strings.Contains(got, "\n  ") {
		t.Errorf("expected indented JSON but got: %s", got)
	}
}

// TestPrintPathTable verifies one aligned row per hop under a separator.
func TestPrintPathTable(t *testing.T) {
	res := foundResult()
	res.Path = append(res.Path, models.Edge{From: addrB, To: "0x3333333333333333333333333333333333333333", TxHash: "0xbeef", BlockNumber: 1234567})

	got := captureStdout(t, func() { printPathTable(res) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	// Header, separator and one row per hop.
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	for _, h := range []string{"HOP", "FROM", "TO", "TX_HASH", "BLOCK"} {
		if !strings.Contains(lines[0], h) {
			t.Errorf("header line missing %q: %s", h, lines[0])
		}
	}
	if strings.Trim(lines[1], "- ") != "" {
		t.Errorf("separator contains unexpected chars: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1 ") || !strings.Contains(lines[2], "0xfeed") {
		t.Errorf("hop 1 row: %s", lines[2])
	}
	if !strings.HasPrefix(lines[3], "2 ") || !strings.Contains(lines[3], "1234567") {
		t.Errorf("hop 2 row: %s", lines[3])
	}
	if len(lines[2]) != len(lines[3]) {
		t.Errorf("row widths differ: %d vs %d", len(lines[2]), len(lines[3]))
	}
}

// TestFormatTableEmpty verifies that an empty row set still prints headers.
func TestFormatTableEmpty(t *testing.T) {
	headers := []string{"HOP", "TX_HASH"}
	got := captureStdout(t, func() { formatTable(headers, nil) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (header + separator), got %d:\n%s", len(lines), got)
	}
}

func TestNotFoundMessage(t *testing.T) {
	tests := []struct {
		reason models.NotFoundReason
		want   string
	}{
		{models.ReasonMaxDepthReached, "no connection found within depth 3"},
		{models.ReasonFrontierExhausted, "no connection found within depth 3 (no further addresses to explore)"},
		{models.ReasonDeadlineExceeded, "no connection found within depth 3 (deadline exceeded while exploring depth 2)"},
	}
	for _, tc := range tests {
		t.Run(string(tc.reason), func(t *testing.T) {
			if got := notFoundMessage(notFoundResult(tc.reason)); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// TestOutputJSON verifies output() uses JSON when flagFmt is "json".
func TestOutputJSON(t *testing.T) {
	resetFlags(t)
	flagFmt = "json"
	v := map[string]string{"key": "val"}
	got := captureStdout(t, func() { output(v, "quiet-id") })

	var out map[string]string
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("expected JSON output: %v\noutput: %s", err, got)
	}
	if out["key"] != "val" {
		t.Errorf("got %q, want %q", out["key"], "val")
	}
}

// TestOutputQuiet verifies output() prints the quiet value when flagFmt is "quiet".
func TestOutputQuiet(t *testing.T) {
	resetFlags(t)
	flagFmt = "quiet"
	v := map[string]string{"key": "val"}
	got := captureStdout(t, func() { output(v, "my-quiet-id") })
	got = strings.TrimRight(got, "\n")
	if got != "my-quiet-id" {
		t.Errorf("got %q, want %q", got, "my-quiet-id")
	}
}

// TestOutputTableFallback verifies output() falls back to JSON for "table"
// when the caller hasn't handled table rendering itself.
func TestOutputTableFallback(t *testing.T) {
	resetFlags(t)
	flagFmt = "table"
	v := map[string]string{"x": "y"}
	got := captureStdout(t, func() { output(v, "") })

	var out map[string]string
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("expected JSON fallback for table format: %v\noutput: %s", err, got)
	}
}

// TestVersionString verifies the dev build string when commit/buildDate are empty.
func TestVersionString(t *testing.T) {
	origCommit, origDate := commit, buildDate
	commit, buildDate = "", ""
	defer func() { commit, buildDate = origCommit, origDate }()

	s := versionString()
	if !strings.HasSuffix(s, "-dev") {
		t.Errorf("expected -dev suffix for dev build, got %q", s)
	}
	if !strings.Contains(s, config.Version) {
		t.Errorf("version string missing version %q: %s", config.Version, s)
	}
}

// TestVersionStringRelease verifies the full build string when commit and
// buildDate are set.
func TestVersionStringRelease(t *testing.T) {
	origCommit, origDate := commit, buildDate
	commit, buildDate = "abc1234", "2026-01-01"
	defer func() { commit, buildDate = origCommit, origDate }()

	s := versionString()
	if !strings.Contains(s, "abc1234") {
		t.Errorf("expected commit hash in version string, got %q", s)
	}
	if !strings.Contains(s, "2026-01-01") {
		t.Errorf("expected build date in version string, got %q", s)
	}
	if strings.HasSuffix(s, "-dev") {
		t.Errorf("release build should not have -dev suffix, got %q", s)
	}
}
