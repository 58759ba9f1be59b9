package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/sippstat/pkg/config"
)

// sippReport is a -trace_stat file with one row excluded (call rate "abc")
// and one malformed optional cell (successful calls "bad").
const sippReport = `CurrentTime;ElapsedTime(P);ElapsedTime(C);TargetRate;CallRate(P);SuccessfulCall(P);FailedCall(P);ResponseTime1(C);CallLength(C);ResponseTimeRepartition1;ResponseTimeRepartition1_<10;ResponseTimeRepartition1_>=10;
2024-01-01 10:00:00.000000 1704103200.0;00:00:00:000000;00:00:00:000000;10;9.5;9;1;00:00:00:015000;00:00:01:000000;;5;4;
2024-01-01 10:00:10.000000 1704103210.0;00:00:10:000000;00:00:10:000000;10;10.5;10;0;00:00:00:020000;00:00:01:500000;;12;8;
2024-01-01 10:00:20.000000 1704103220.0;00:00:10:000000;00:00:20:000000;10;abc;10;0;00:00:00:020000;00:00:01:500000;;12;8;
2024-01-01 10:00:30.000000 1704103230.0;00:00:10:000000;00:00:30:000000;10;11;bad;0;00:00:00:020000;00:00:01:500000;;20;10;
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func writeReport(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "stats.csv", sippReport)
}

func TestNewNormalizeCommand(t *testing.T) {
	cmd := NewNormalizeCommand()

	if cmd.Use != "normalize <report-file|glob>..." {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{
		"config", "env-file", "output", "min", "max", "cache", "parallel",
		"verbose", "quiet", "webhook-url", "webhook-token", "webhook-trigger",
	}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := buf.String(); got != "sippstat dev\n" {
		t.Errorf("Unexpected version output: %q", got)
	}
}

func TestRunValidate_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "config.yaml", `columns:
  elapsed_time: ElapsedTime(C)
  call_rate: CallRate(P)
  target_rate: TargetRate
histogram_prefix: ResponseTimeRepartition1
delimiter: ";"
window:
  min: 0
  max: 100
webhooks:
  - name: ci
    url: https://example.com/hook
`)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Configuration valid!", "[0s, 100s]", "[on_diagnostics] ci", "ElapsedTime(C)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestRunValidate_TOML(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "config.toml", `histogram_prefix = "ResponseTimeRepartition1"
delimiter = ","

[columns]
elapsed_time = "ElapsedTime(C)"
call_rate = "CallRate(P)"
target_rate = "TargetRate"
`)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !strings.Contains(buf.String(), `","`) {
		t.Errorf("Expected comma delimiter in output:\n%s", buf.String())
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "invalid.yaml", "invalid: yaml: content")

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestRunValidate_InvalidWindow(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "config.yaml", `window:
  min: 100
  max: 10
`)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("Expected error for inverted window")
	}
	if !strings.Contains(err.Error(), "invalid window") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetArgs([]string{"/nonexistent/config.yaml"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"no flags", nil, "[-inf, +inf]", false},
		{"min only", []string{"--min", "10"}, "[10s, +inf]", false},
		{"max only", []string{"--max", "90"}, "[-inf, 90s]", false},
		{"both", []string{"--min", "0", "--max", "90"}, "[0s, 90s]", false},
		{"inverted", []string{"--min", "90", "--max", "0"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRenderCommand()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}

			minSeconds, _ := cmd.Flags().GetInt64("min")
			maxSeconds, _ := cmd.Flags().GetInt64("max")

			w, err := resolveWindow(cmd, config.DefaultConfig(), minSeconds, maxSeconds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && w.String() != tt.want {
				t.Errorf("resolveWindow() = %s, want %s", w, tt.want)
			}
		})
	}
}

func TestResolveWindow_FlagOverridesConfig(t *testing.T) {
	lo, hi := int64(0), int64(100)
	cfg := config.DefaultConfig()
	cfg.Window.Min = &lo
	cfg.Window.Max = &hi

	cmd := NewRenderCommand()
	if err := cmd.ParseFlags([]string{"--max", "50"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	w, err := resolveWindow(cmd, cfg, 0, 50)
	if err != nil {
		t.Fatalf("resolveWindow: %v", err)
	}
	if w.Min != 0 || w.Max != 50 {
		t.Errorf("Expected [0, 50], got %s", w)
	}
}

func TestCollectWebhooks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Webhooks = []config.WebhookConfig{
		{Name: "from-config", URL: "https://example.com/a", Trigger: config.WebhookTriggerAlways},
	}

	t.Run("config only", func(t *testing.T) {
		got, err := collectWebhooks(cfg, &NormalizeOptions{})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(got) != 1 || got[0].Name != "from-config" {
			t.Errorf("Unexpected webhooks: %+v", got)
		}
	})

	t.Run("cli appended", func(t *testing.T) {
		got, err := collectWebhooks(cfg, &NormalizeOptions{
			WebhookURL:   "https://example.com/b",
			WebhookToken: "secret",
		})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 webhooks, got %d", len(got))
		}
		cli := got[1]
		if cli.Name != "cli" || cli.Token != "secret" {
			t.Errorf("Unexpected CLI webhook: %+v", cli)
		}
		if cli.Trigger != config.WebhookTriggerOnDiagnostics {
			t.Errorf("Expected default trigger on_diagnostics, got %s", cli.Trigger)
		}
		if cli.Timeout.Std() != config.DefaultWebhookTimeout {
			t.Errorf("Expected default timeout, got %s", cli.Timeout.Std())
		}
	})

	t.Run("cli trigger", func(t *testing.T) {
		got, err := collectWebhooks(config.DefaultConfig(), &NormalizeOptions{
			WebhookURL:     "https://example.com/b",
			WebhookTrigger: "never",
		})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(got) != 1 || got[0].Trigger != config.WebhookTriggerNever {
			t.Errorf("Unexpected webhooks: %+v", got)
		}
	})

	t.Run("invalid cli webhook", func(t *testing.T) {
		tests := []struct {
			name string
			opts NormalizeOptions
		}{
			{"misspelled trigger", NormalizeOptions{WebhookURL: "https://example.com/b", WebhookTrigger: "alway"}},
			{"bad scheme", NormalizeOptions{WebhookURL: "ftp://example.com/b"}},
		}
		for _, tt := range tests {
			if _, err := collectWebhooks(cfg, &tt.opts); err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
		}
	})
}
