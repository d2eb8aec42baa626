package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestAppCommands(t *testing.T) {
	app := newApp()

	want := []string{"full", "reload", "refresh", "validate", "status", "history"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestSetupLoggingRejectsBadLevel(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level"},
			&cli.StringFlag{Name: "log-format", Value: "text"},
		},
		Before: setupLogging,
		Action: func(*cli.Context) error { return nil },
	}

	if err := app.Run([]string{"copypg", "--log-level", "verbose"}); err == nil {
		t.Error("expected error for unknown log level")
	}
	if err := app.Run([]string{"copypg", "--log-level", "debug"}); err != nil {
		t.Errorf("unexpected error for valid level: %v", err)
	}
}

func TestBadConfigFailsInvocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copypg.yaml")
	bad := `
tables:
  sampled:
    events: 2.0
partition:
  values: [shop_42]
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	app := newApp()
	if err := app.Run([]string{"copypg", "--config", path, "reload"}); err == nil {
		t.Error("expected error for invalid config")
	}
}
