package skystack

import (
	"os"
	"path/filepath"
	"strings"
)

// Directories that must never be the target of a recursive removal, no
// matter what the workspace setting says.
var forbiddenRemovalDirs = map[string]struct{}{
	"/":                {},
	"/Applications":    {},
	"/Library":         {},
	"/System":          {},
	"/Users":           {},
	"/Volumes":         {},
	"/bin":             {},
	"/etc":             {},
	"/opt":             {},
	"/opt/homebrew":    {},
	"/private":         {},
	"/sbin":            {},
	"/tmp":             {},
	"/usr":             {},
	"/usr/bin":         {},
	"/usr/lib":         {},
	"/usr/local":       {},
	"/usr/local/bin":   {},
	"/usr/local/lib":   {},
	"/usr/local/share": {},
	"/var":             {},
	"/var/log":         {},
	"/var/tmp":         {},
}

// isUnsafeRemovalPath reports whether path is too dangerous to hand to a
// recursive delete: a known system directory, the user's home itself, or
// anything not expressed as an absolute path.
func isUnsafeRemovalPath(path string) bool {
	if path == "" || !filepath.IsAbs(path) {
		return true
	}
	clean := filepath.Clean(path)
	if _, bad := forbiddenRemovalDirs[clean]; bad {
		return true
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return true
	}
	// Anything directly under /Users/<name> needs at least one more path
	// element; refusing those catches a workspace configured as the home
	// directory of another account.
	if strings.HasPrefix(clean, "/Users/") && strings.Count(clean, "/") <= 2 {
		return true
	}
	return false
}
