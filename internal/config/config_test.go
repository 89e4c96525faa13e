package config

import (
	"context"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
)

func parse(t *testing.T, args ...string) *Configuration {
	t.Helper()
	var cfg *Configuration
	cmd := &cli.Command{
		Name:  "toolshack",
		Flags: GetFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg = NewConfiguration(c)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"toolshack"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg
}

func TestNewConfiguration_Defaults(t *testing.T) {
	cfg := parse(t)

	if cfg.Tools.MaxToolCalls != 7 {
		t.Errorf("expected maxtoolcalls 7, got %d", cfg.Tools.MaxToolCalls)
	}
	if cfg.Tools.Mode != "embedded" {
		t.Errorf("expected embedded mode, got %q", cfg.Tools.Mode)
	}
	if cfg.Session.MaxTokens != 64000 || cfg.Session.CPUMaxTokens != 3700 {
		t.Errorf("unexpected token budgets: %d/%d", cfg.Session.MaxTokens, cfg.Session.CPUMaxTokens)
	}
	if cfg.Gate.RequiredGB != 11 || cfg.Gate.Timeout != 20*time.Second || cfg.Gate.Interval != time.Second {
		t.Errorf("unexpected gate defaults: %+v", cfg.Gate)
	}
	if cfg.Reasoning.Model != "gpt-oss:20b" || cfg.Reasoning.Think != "low" {
		t.Errorf("unexpected reasoning defaults: %+v", cfg.Reasoning)
	}
	if cfg.Model.KeepAlive != 10*time.Minute {
		t.Errorf("expected keepalive 10m, got %s", cfg.Model.KeepAlive)
	}
}

func TestNewConfiguration_Flags(t *testing.T) {
	cfg := parse(t,
		"--toolmode", "native",
		"--maxtoolcalls", "3",
		"--denyrecursive",
		"--tooltags", "alpha,beta",
		"--discordtoken", "secret-token",
	)

	if cfg.Tools.Mode != "native" {
		t.Errorf("expected native, got %q", cfg.Tools.Mode)
	}
	if cfg.Tools.MaxToolCalls != 3 {
		t.Errorf("expected 3, got %d", cfg.Tools.MaxToolCalls)
	}
	if !cfg.Tools.DenyRecursive {
		t.Error("expected denyrecursive")
	}
	if len(cfg.Tools.Tags) != 2 || cfg.Tools.Tags[0] != "alpha" || cfg.Tools.Tags[1] != "beta" {
		t.Errorf("unexpected tags %v", cfg.Tools.Tags)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid configuration, got %v", err)
	}
}

func TestValidate_NoFrontend(t *testing.T) {
	cfg := parse(t)
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without a frontend")
	}
}

func TestValidate_BadMode(t *testing.T) {
	cfg := parse(t, "--server", "irc.example.net", "--toolmode", "telepathy")
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown tool mode")
	}
}

func TestYamlSource_Lookup(t *testing.T) {
	data := map[string]any{
		"model":    "qwen3:8b",
		"tooltags": []any{"a", "b"},
		"port":     6697,
	}

	v, ok := (&YamlSource{data: data, key: "model"}).Lookup()
	if !ok || v != "qwen3:8b" {
		t.Errorf("model: got %q, %v", v, ok)
	}
	v, ok = (&YamlSource{data: data, key: "tooltags"}).Lookup()
	if !ok || v != "a,b" {
		t.Errorf("tooltags: got %q, %v", v, ok)
	}
	v, ok = (&YamlSource{data: data, key: "port"}).Lookup()
	if !ok || v != "6697" {
		t.Errorf("port: got %q, %v", v, ok)
	}
	if _, ok := (&YamlSource{data: data, key: "missing"}).Lookup(); ok {
		t.Error("expected missing key to be absent")
	}
}

func TestMask(t *testing.T) {
	if got := Mask("abcdef"); got != "***def" {
		t.Errorf("got %q", got)
	}
	if got := Mask("ab"); got != "**" {
		t.Errorf("got %q", got)
	}
	if got := Mask(""); got != "" {
		t.Errorf("got %q", got)
	}
}
