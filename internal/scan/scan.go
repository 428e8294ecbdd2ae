// Package scan finds candidate memory images on the local filesystem.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// memoryExtensions are the filename suffixes treated as likely memory dumps,
// matched case-insensitively.
var memoryExtensions = []string{
	".raw", ".vmem", ".dmp", ".mem", ".bin", ".img", ".001", ".dump",
}

// Candidate is one matching file with its size in megabytes.
type Candidate struct {
	Path   string
	SizeMB float64
}

// MatchesExtension reports whether name carries one of the recognized memory
// dump extensions.
func MatchesExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range memoryExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Scan walks dir recursively and returns every file matching the extension
// allow-list. Ordering follows filesystem traversal order; callers must not
// rely on it being stable across platforms.
func Scan(dir string) ([]Candidate, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Errorf("directory not found at %s", dir)
	}

	var found []Candidate
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() || !MatchesExtension(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, Candidate{
			Path:   path,
			SizeMB: float64(fi.Size()) / (1024 * 1024),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking search directory")
	}

	return found, nil
}

// Report formats the scan result as display text. A missing directory or an
// empty result produce a message rather than an error; callers treat all
// outcomes as text.
func Report(dir string) string {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Sprintf("Error: cannot determine working directory: %v", err)
		}
		dir = cwd
	}

	found, err := Scan(dir)
	if err != nil {
		return fmt.Sprintf("Error: Directory not found at %s", filepath.Clean(dir))
	}
	if len(found) == 0 {
		return fmt.Sprintf("No memory dump files found in %s", filepath.Clean(dir))
	}

	var b strings.Builder
	b.WriteString("Found memory dump files:")
	for _, c := range found {
		fmt.Fprintf(&b, "\n%s (Size: %.2f MB)", c.Path, c.SizeMB)
	}
	return b.String()
}
