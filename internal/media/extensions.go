package media

import (
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
}

// AllowedExtension reports whether the filename carries a supported video
// container extension.
func AllowedExtension(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// AllowedExtensions returns the supported extensions in stable order.
func AllowedExtensions() []string {
	return []string{".mp4", ".avi", ".mov", ".mkv", ".webm"}
}
