package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestWorkspaceDir_LivesUnderConfigDir(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("RULEBOARD_CONFIG_DIR", cfgDir)

	dir, err := WorkspaceDir("  team ")
	if err != nil {
		t.Fatalf("WorkspaceDir: %v", err)
	}
	if want := filepath.Join(cfgDir, "workspaces", "team"); dir != want {
		t.Fatalf("expected %q, got %q", want, dir)
	}

	if _, err := WorkspaceDir("../escape"); err == nil {
		t.Fatalf("expected invalid workspace name to be rejected")
	}
}

func TestListWorkspaces_SortedDirsOnly(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("RULEBOARD_CONFIG_DIR", cfgDir)

	ws, err := ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces (empty): %v", err)
	}
	if len(ws) != 0 {
		t.Fatalf("expected no workspaces, got %#v", ws)
	}

	root := filepath.Join(cfgDir, "workspaces")
	for _, name := range []string{"team", "default"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ws, err = ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(ws) != 2 || ws[0] != "default" || ws[1] != "team" {
		t.Fatalf("unexpected workspaces: %#v", ws)
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	got, err := ExpandPath(" ~/boards/q3/ ")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if want := filepath.Join(home, "boards", "q3"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got, _ := ExpandPath("rel/dir"); got != filepath.Join("rel", "dir") {
		t.Fatalf("relative paths pass through, got %q", got)
	}
	if got, _ := ExpandPath("  "); got != "" {
		t.Fatalf("blank stays blank, got %q", got)
	}
}
