package storage

import (
	"path/filepath"
	"regexp"
	"strings"
)

// AudioExtensions lists the file extensions accepted for upload and
// recognized when scanning input directories.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wma":  true,
	".aac":  true,
	".aiff": true,
}

// IsAudioFile reports whether the filename has a supported audio extension.
func IsAudioFile(name string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(name))]
}

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedScores  = regexp.MustCompile(`_+`)
)

// SanitizeFilename strips path components and problematic characters from a
// client-supplied filename so it is safe to join under the storage root.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed_file"
	}

	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.ReplaceAll(filename, " ", "_")
	filename = disallowedChars.ReplaceAllString(filename, "_")
	filename = repeatedScores.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, "._ ")

	// Common filesystem name limit
	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		stem := strings.TrimSuffix(filename, ext)
		if ext != "" && len(ext) < 255 {
			filename = stem[:255-len(ext)] + ext
		} else {
			filename = filename[:255]
		}
	}

	if filename == "" || filename == "." || filename == ".." {
		return "unnamed_file"
	}
	return filename
}
