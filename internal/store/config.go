package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

type GlobalConfig struct {
	CurrentWorkspace string `json:"currentWorkspace,omitempty"`

	// Remote configures the HTTP load/submit backend used by `--remote` and the web dashboard.
	Remote *RemoteConfig `json:"remote,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
	Log *LogConfig `json:"log,omitempty"`
}

type RemoteConfig struct {
	LoadURL        string            `json:"loadUrl,omitempty"`
	SubmitURL      string            `json:"submitUrl,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
}

// Timeout defaults to 10s.
func (r *RemoteConfig) Timeout() time.Duration {
	if r == nil || r.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

type TUIConfig struct {
	// ShowHelp keeps the key help footer expanded.
	ShowHelp bool `json:"showHelp,omitempty"`
}

type LogConfig struct {
	// Level is one of debug|info|warn|error.
	Level string `json:"level,omitempty"`
}

func (c *GlobalConfig) LogLevel() string {
	if c == nil || c.Log == nil {
		return ""
	}
	return c.Log.Level
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.ruleboard).
	if v := strings.TrimSpace(os.Getenv("RULEBOARD_CONFIG_DIR")); v != "" {
		return ExpandPath(v)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ruleboard"), nil
}

// ExpandPath resolves a leading ~ so flags and env vars can name paths like ~/boards/q3.
func ExpandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Unique temp name + rename: the CLI, TUI and web server may write concurrently.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

func NormalizeWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("workspace name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errors.New("workspace name must be a plain directory name")
	}
	return name, nil
}

// ListWorkspaces returns the names under ~/.ruleboard/workspaces, sorted.
func ListWorkspaces() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	out := []string{}
	ents, err := os.ReadDir(filepath.Join(dir, "workspaces"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
