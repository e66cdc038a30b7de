package localstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", "timebank", "state.toml"); s.Path() != want {
		t.Fatalf("Path = %q, want %q", s.Path(), want)
	}
	if s.Token() != "" || s.User() != nil || s.Theme() != defaultTheme {
		t.Fatalf("state = %+v, want empty with default theme", s.Snapshot())
	}
}

func TestOpen_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	content := "token = \"abc\"\nuser = '{\"id\":42,\"full_name\":\"Ada\"}'\ntheme = \"Slate\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	want := State{Token: "abc", User: `{"id":42,"full_name":"Ada"}`, Theme: "Slate"}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("state (-want +got):\n%s", diff)
	}
}

func TestOpen_InvalidContentDegrades(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    State
	}{
		{name: "invalid toml", content: "not valid toml {{{\n", want: State{Theme: defaultTheme}},
		{name: "empty theme", content: "token = \"abc\"\ntheme = \"\"\n", want: State{Token: "abc", Theme: defaultTheme}},
		{name: "broken user json", content: "token = \"abc\"\nuser = \"{oops\"\n", want: State{Token: "abc", Theme: defaultTheme}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			s, err := Open(path)
			if err != nil {
				t.Fatalf("Open returned error: %v", err)
			}
			if diff := cmp.Diff(tt.want, s.Snapshot()); diff != "" {
				t.Fatalf("state (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveAuth_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	user := json.RawMessage(`{"id":42,"credit_balance":"7.0"}`)
	if err := s.SaveAuth("tok", user); err != nil {
		t.Fatalf("SaveAuth returned error: %v", err)
	}
	if err := s.SetTheme("Nord"); err != nil {
		t.Fatalf("SetTheme returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode = %o, want 600", perm)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if reloaded.Token() != "tok" || string(reloaded.User()) != string(user) || reloaded.Theme() != "Nord" {
		t.Fatalf("reloaded state = %+v", reloaded.Snapshot())
	}
}

func TestClearAuth_KeepsTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	s, _ := Open(path)
	if err := s.SetTheme("Nord"); err != nil {
		t.Fatalf("SetTheme returned error: %v", err)
	}
	if err := s.SaveAuth("tok", json.RawMessage(`{"id":1}`)); err != nil {
		t.Fatalf("SaveAuth returned error: %v", err)
	}
	if err := s.ClearAuth(); err != nil {
		t.Fatalf("ClearAuth returned error: %v", err)
	}

	reloaded, _ := Open(path)
	if diff := cmp.Diff(State{Theme: "Nord"}, reloaded.Snapshot()); diff != "" {
		t.Fatalf("state (-want +got):\n%s", diff)
	}
}

func TestSaveAuth_RejectsBadInputWithoutChangingState(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "state.toml"))
	if err := s.SaveAuth(" ", nil); err == nil {
		t.Fatalf("SaveAuth accepted empty token")
	}
	if err := s.SaveUser(json.RawMessage(`{oops`)); err == nil {
		t.Fatalf("SaveUser accepted invalid json")
	}
	if s.Token() != "" || s.User() != nil {
		t.Fatalf("state changed: %+v", s.Snapshot())
	}
}
