package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/series"
)

func executeNormalize(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewNormalizeCommand()
	cmd.SetArgs(args)

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRunNormalize_JSON(t *testing.T) {
	report := writeReport(t)

	out, err := executeNormalize(t, "-o", "json", report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", ExitCode)
	}

	checks := map[string]int64{
		"summary.rows_read":                4,
		"summary.records":                  3,
		"summary.rows_excluded":            1,
		"summary.rows_outside_window":      0,
		"summary.diagnostics":              2,
		"series.records.#":                 3,
		"series.records.2.elapsed_seconds": 30,
	}
	for path, want := range checks {
		if got := gjson.Get(out, path).Int(); got != want {
			t.Errorf("%s = %d, want %d", path, got, want)
		}
	}

	if got := gjson.Get(out, "metadata.source").String(); got != report {
		t.Errorf("metadata.source = %q, want %q", got, report)
	}
	if gjson.Get(out, "metadata.digest").String() == "" {
		t.Error("Expected digest in metadata")
	}

	s, err := series.ReadJSON(strings.NewReader(gjson.Get(out, "series").Raw))
	if err != nil {
		t.Fatalf("series does not decode: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("Decoded %d records, want 3", s.Len())
	}
}

func TestRunNormalize_Window(t *testing.T) {
	report := writeReport(t)

	out, err := executeNormalize(t, "-o", "json", "--max", "20", report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if got := gjson.Get(out, "summary.records").Int(); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
	if got := gjson.Get(out, "summary.rows_outside_window").Int(); got != 1 {
		t.Errorf("rows_outside_window = %d, want 1", got)
	}
	if got := gjson.Get(out, "metadata.window").String(); got != "[-inf, 20s]" {
		t.Errorf("window = %q", got)
	}
}

func TestRunNormalize_NoDataInRange(t *testing.T) {
	report := writeReport(t)

	out, err := executeNormalize(t, "--min", "500", report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", ExitCode)
	}
	if !strings.Contains(out, "No data in range (outside_window)") {
		t.Errorf("Expected empty-range message:\n%s", out)
	}
}

func TestRunNormalize_AllRowsCorrupt(t *testing.T) {
	report := writeFile(t, t.TempDir(), "corrupt.csv", `ElapsedTime(C);TargetRate;CallRate(P);
00:00:10:000000;10;x;
garbage;10;10;
`)

	out, err := executeNormalize(t, "-o", "json", report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", ExitCode)
	}
	if got := gjson.Get(out, "summary.empty_reason").String(); got != "no_valid_rows" {
		t.Errorf("empty_reason = %q, want no_valid_rows", got)
	}
	if got := gjson.Get(out, "diagnostics.#").Int(); got != 2 {
		t.Errorf("Expected 2 diagnostics, got %d", got)
	}
}

func TestRunNormalize_ResetsExitCode(t *testing.T) {
	report := writeReport(t)

	if _, err := executeNormalize(t, "--min", "500", report); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if _, err := executeNormalize(t, "-q", report); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if ExitCode != 0 {
		t.Errorf("Expected exit code 0 after a successful run, got %d", ExitCode)
	}
}

func TestRunNormalize_MultipleFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "c.csv", "a.csv"} {
		writeFile(t, dir, name, sippReport)
	}

	out, err := executeNormalize(t, "-q", "--parallel", "3", filepath.Join(dir, "*.csv"))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 summary lines, got %d:\n%s", len(lines), out)
	}
	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		want := "sippstat: " + filepath.Join(dir, name) + ": 3 records, 1 rows excluded"
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
}

func TestRunNormalize_Cache(t *testing.T) {
	report := writeReport(t)
	cachePath := filepath.Join(t.TempDir(), "cache", "series.db")

	first, err := executeNormalize(t, "-o", "json", "--cache", cachePath, report)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if gjson.Get(first, "metadata.from_cache").Bool() {
		t.Error("First run should not come from cache")
	}

	second, err := executeNormalize(t, "-o", "json", "--cache", cachePath, "--max", "10", report)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !gjson.Get(second, "metadata.from_cache").Bool() {
		t.Error("Second run should come from cache")
	}
	if got := gjson.Get(second, "summary.records").Int(); got != 2 {
		t.Errorf("cached run records = %d, want 2", got)
	}

	third, err := executeNormalize(t, "-o", "json", "--cache", cachePath, report)
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	for _, path := range []string{"series", "diagnostics", "summary"} {
		if diff := cmp.Diff(gjson.Get(first, path).Raw, gjson.Get(third, path).Raw); diff != "" {
			t.Errorf("%s differs after cache load (-fresh +cached):\n%s", path, diff)
		}
	}
}

func TestRunNormalize_CSV(t *testing.T) {
	report := writeReport(t)

	out, err := executeNormalize(t, "-o", "csv", report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "elapsed_seconds,") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
}

func TestRunNormalize_Errors(t *testing.T) {
	report := writeReport(t)

	tests := []struct {
		name   string
		args   []string
		target error
		substr string
	}{
		{"unknown format", []string{"-o", "xml", report}, nil, "unknown output format"},
		{"inverted window", []string{"--min", "10", "--max", "5", report}, series.ErrInvalidWindow, ""},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.csv")}, parser.ErrUnreadableInput, ""},
		{"missing config", []string{"-c", "/nonexistent/sippstat.yaml", report}, nil, "loading config"},
		{"misspelled webhook trigger", []string{"--webhook-url", "http://127.0.0.1:1/hook", "--webhook-trigger", "alway", report}, nil, "invalid trigger \"alway\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeNormalize(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Expected %q in error, got %v", tt.substr, err)
			}
		})
	}
}

func TestRunNormalize_EnvFile(t *testing.T) {
	// registers restoration of the variable after the test
	t.Setenv("SIPPSTAT_DELIMITER", "")
	os.Unsetenv("SIPPSTAT_DELIMITER")

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "SIPPSTAT_DELIMITER=,\n")
	report := writeFile(t, dir, "comma.csv", strings.ReplaceAll(sippReport, ";", ","))

	out, err := executeNormalize(t, "-o", "json", "--env-file", envFile, report)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got := gjson.Get(out, "summary.records").Int(); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestRunNormalize_Webhook(t *testing.T) {
	var hits atomic.Int32
	var digest atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		digest.Store(r.Header.Get("X-Sippstat-Digest"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	report := writeReport(t)

	tests := []struct {
		trigger string
		want    int32
	}{
		{"never", 0},
		{"on_diagnostics", 1},
		{"always", 1},
	}

	for _, tt := range tests {
		t.Run(tt.trigger, func(t *testing.T) {
			hits.Store(0)
			_, err := executeNormalize(t, "-q", "--webhook-url", server.URL, "--webhook-trigger", tt.trigger, report)
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got := hits.Load(); got != tt.want {
				t.Errorf("webhook hits = %d, want %d", got, tt.want)
			}
		})
	}

	if d, _ := digest.Load().(string); len(d) != 64 {
		t.Errorf("Expected SHA-256 digest header, got %q", d)
	}
}

func TestRunNormalize_WebhookFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	report := writeReport(t)

	if _, err := executeNormalize(t, "-q", "--webhook-url", server.URL, report); err != nil {
		t.Fatalf("webhook failure should not fail normalize: %v", err)
	}
	if ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", ExitCode)
	}
}
