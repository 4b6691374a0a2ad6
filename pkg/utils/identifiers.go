package utils

import (
	"path/filepath"
	"strings"
)

// SafeExtension returns the lowercased extension of an uploaded file name,
// or "" when it contains anything but letters and digits.
func SafeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
