package tools

import (
	"path/filepath"
	"strings"
)

//nolint:gochecknoglobals // Fixed lookup tables
var (
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true, ".webm": true,
	}
	documentExtensions = map[string]bool{
		".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".webp": true,
	}
)

// IsAudioPath reports whether path has a supported audio extension.
func IsAudioPath(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsDocumentPath reports whether path has a supported document extension.
func IsDocumentPath(path string) bool {
	return documentExtensions[strings.ToLower(filepath.Ext(path))]
}
