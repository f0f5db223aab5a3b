// Package project locates the Defold project inside a workspace.
package project

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// FileName is the project descriptor bob builds from.
const FileName = "game.project"

// ErrNotFound is returned when no project file exists under the root.
var ErrNotFound = errors.New("no game.project found")

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"build":        true,
	".internal":    true,
}

// Find returns the path of the shallowest game.project under root. Entries
// at the same depth are visited in lexical order.
func Find(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", root)
	}

	// A direct hit is the common case.
	direct := filepath.Join(abs, FileName)
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, nil
	}

	queue := []string{abs}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == abs {
				return "", errors.Wrapf(err, "read %s", dir)
			}
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && e.Name() == FileName {
				return filepath.Join(dir, e.Name()), nil
			}
		}
		for _, e := range entries {
			if e.IsDir() && !skipDirs[e.Name()] && e.Type()&fs.ModeSymlink == 0 {
				queue = append(queue, filepath.Join(dir, e.Name()))
			}
		}
	}
	return "", errors.WithHint(errors.Wrapf(ErrNotFound, "under %s", abs),
		"Run dbuild from a Defold project or pass --project.")
}
