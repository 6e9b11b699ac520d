package shared

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Constants
const (
	DefaultMaxRetries = 3
	UserAgent         = "spots/1.0"

	// maxFileNameLength is the longest file name most filesystems accept
	maxFileNameLength = 255
	hashedNameLength  = 25
)

// SanitizeFileName cleans a string to make it safe for use as a file name
func SanitizeFileName(name string) string {
	invalidChars := []string{"<", ">", ":", `"`, `/`, `\`, `|`, `?`, `*`, "\x00"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.Trim(result, " .")
	if result == "" {
		result = "unknown"
	}
	return result
}

// FormatHistoryEntry builds the "Artist - Title" ledger entry from the
// trimmed parts. Path separators are replaced with '|' so the entry doubles
// as a file stem.
func FormatHistoryEntry(artist, title string) string {
	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	entry := fmt.Sprintf("%s - %s", artist, title)
	switch {
	case artist == "":
		entry = title
	case title == "":
		entry = artist
	}
	return strings.ReplaceAll(entry, "/", "|")
}

// TrackFileName returns the MP3 file name for a track. Names longer than the
// filesystem limit are replaced by a truncated MD5 of the full name.
func TrackFileName(artist, title string) string {
	stem := SanitizeFileName(FormatHistoryEntry(artist, title))
	if len(stem)+len(".mp3") > maxFileNameLength {
		sum := md5.Sum([]byte(stem))
		stem = hex.EncodeToString(sum[:])[:hashedNameLength]
	}
	return stem + ".mp3"
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDirIfNotExists creates a directory if it does not exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// TruncateString truncates a string to the specified length, adding ellipsis if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// IsTTY reports whether stdout is attached to a terminal
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
