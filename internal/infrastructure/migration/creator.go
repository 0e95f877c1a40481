package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateFiles scaffolds an empty up/down migration pair in dir and
// returns the two paths created.
func CreateFiles(dir, name string) (string, string, error) {
	name = nameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "", "", fmt.Errorf("migration name is empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations dir: %w", err)
	}

	version := time.Now().UTC().Format("20060102150405")
	upPath := filepath.Join(dir, fmt.Sprintf("%s_%s.up.sql", version, name))
	downPath := filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", version, name))

	header := fmt.Sprintf("-- %s\n\n", name)
	if err := os.WriteFile(upPath, []byte(header), 0o644); err != nil {
		return "", "", fmt.Errorf("write up migration: %w", err)
	}
	if err := os.WriteFile(downPath, []byte(header), 0o644); err != nil {
		return "", "", fmt.Errorf("write down migration: %w", err)
	}

	return upPath, downPath, nil
}
