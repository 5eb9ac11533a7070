package main

import (
	"os"
	"strings"

	"ruleboard/internal/cli"
)

func isInstanceID(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "copy-") {
		return false
	}
	return len(s) > len("copy-")
}

// rewriteDirectInstanceArgs turns `ruleboard <instance-id>` into `ruleboard show <instance-id>`.
// Persistent flags may come first, so the first positional token is located rather than argv[1].
func rewriteDirectInstanceArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":       true,
		"--workspace": true,
		"--format":    true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--verbose": true,
		"-v":        true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isInstanceID(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			// Unknown flags: skip without consuming a value.
			continue
		}
		if isInstanceID(a) {
			return insert(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectInstanceArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
