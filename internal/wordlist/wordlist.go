package wordlist

import (
	"fmt"
	"os"
	"strings"
)

// Load reads a parameter wordlist file and returns de-duplicated candidate
// names in file order. Blank lines and '#' comments are skipped.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wordlist %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	seen := make(map[string]struct{}, len(lines))
	var names []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; !ok {
			seen[line] = struct{}{}
			names = append(names, line)
		}
	}

	return names, nil
}
