package main

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/timebank/internal/app"
)

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"version"}, 0},
		{"help", []string{"-h"}, 0},
		{"unknown_flag", []string{"-nope"}, 2},
		{"unknown_command", []string{"bogus"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := run(tc.args); got != tc.want {
				t.Fatalf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}

func TestStatusRequiresLogin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIMEBANK_LOG_DIR", dir)
	env, err := app.Open(app.Options{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		StatePath:  filepath.Join(dir, "state.toml"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.Close()

	var out bytes.Buffer
	err = status(context.Background(), env, &out)
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("status error = %v, want not logged in", err)
	}
	if out.Len() != 0 {
		t.Fatalf("status wrote %q before failing", out.String())
	}
}

func TestPromptKeepsFlagValue(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("typed@example.com\nsecond\n"))

	preset := "flag@example.com"
	if err := prompt(in, "Email", &preset); err != nil {
		t.Fatalf("prompt returned error: %v", err)
	}
	if preset != "flag@example.com" {
		t.Fatalf("prompt replaced a flag value with %q", preset)
	}

	var empty string
	if err := prompt(in, "Email", &empty); err != nil {
		t.Fatalf("prompt returned error: %v", err)
	}
	if empty != "typed@example.com" {
		t.Fatalf("prompt read %q, want typed@example.com", empty)
	}
}
