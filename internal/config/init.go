package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

//go:embed all:templates
var starterFS embed.FS

// starterFiles maps embedded starter files to their destination names.
var starterFiles = map[string]string{
	"templates/trinity.toml": ConfigFileName,
	"templates/env.example":  ".env.example",
}

// WriteStarter creates a commented trinity.toml and a .env.example in
// destDir. Existing files are skipped unless force is set. It returns the
// paths of the files written.
func WriteStarter(destDir string, force bool) ([]string, error) {
	var created []string

	for src, name := range starterFiles {
		dest := filepath.Join(destDir, name)

		if _, err := os.Stat(dest); err == nil && !force {
			log.Debug("skipping existing file", "path", dest)
			continue
		}

		content, err := starterFS.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("config: reading embedded %s: %w", src, err)
		}
		if err := os.WriteFile(dest, content, 0o600); err != nil {
			return nil, fmt.Errorf("config: writing %s: %w", dest, err)
		}
		created = append(created, dest)
	}

	return created, nil
}
