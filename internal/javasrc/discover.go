package javasrc

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludeDirs are build output and tooling directories skipped when
// no other filter is configured.
var DefaultExcludeDirs = []string{"target", "build", "out", "bin", "node_modules"}

// IsDefaultExcluded reports whether dir's base name is one of
// DefaultExcludeDirs.
func IsDefaultExcluded(dir string) bool {
	return slices.Contains(DefaultExcludeDirs, filepath.Base(dir))
}

// FindFiles returns the absolute paths of files named name under root,
// sorted. Hidden directories, directories excluded reports true for and
// paths matched by the root .gitignore are skipped. A nil excluded skips
// nothing beyond those.
func FindFiles(root, name string, excluded func(dir string) bool) ([]string, error) {
	gi := loadGitignore(root)

	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			base := d.Name()
			if strings.HasPrefix(base, ".") || (excluded != nil && excluded(path)) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != name {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
