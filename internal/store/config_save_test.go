package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	t.Setenv("RULEBOARD_CONFIG_DIR", t.TempDir())

	const n = 32
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := &GlobalConfig{
				CurrentWorkspace: fmt.Sprintf("ws-%d", i),
				Remote:           &RemoteConfig{SubmitURL: fmt.Sprintf("http://127.0.0.1/%d", i)},
			}
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v\n%s", err, raw)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "config.json.*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestLoadConfigMissingIsEmpty(t *testing.T) {
	t.Setenv("RULEBOARD_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CurrentWorkspace != "" || cfg.Remote != nil {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
	if got := cfg.Remote.Timeout(); got != 10*time.Second {
		t.Fatalf("expected default timeout, got %s", got)
	}
}

func TestWorkspaceDirRejectsPaths(t *testing.T) {
	t.Setenv("RULEBOARD_CONFIG_DIR", t.TempDir())
	if _, err := WorkspaceDir("../escape"); err == nil {
		t.Fatalf("expected error for path-like workspace name")
	}
	dir, err := WorkspaceDir(" team ")
	if err != nil {
		t.Fatalf("WorkspaceDir: %v", err)
	}
	if filepath.Base(dir) != "team" {
		t.Fatalf("unexpected dir %q", dir)
	}
}
