// Package seeds loads the seed-URL and manual-exclusion files spec.md §6
// takes as crawl inputs: plain text, one entry per line, '#'-prefixed
// comments and blank lines skipped.
package seeds

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLines reads a newline-delimited file, skipping blank lines and lines
// starting with '#'. Used for both the seed-URL file and the exclusion file.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seeds: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("seeds: scan %s: %w", path, err)
	}
	return lines, nil
}

// LoadExclusionDomains reads an exclusion file and lowercases every entry,
// since domain exclusion matching is case-insensitive (spec.md §4.5).
func LoadExclusionDomains(path string) ([]string, error) {
	lines, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ToLower(l)
	}
	return out, nil
}
