package shared

import (
	"os"
)

// DebugPrint prints debug messages when debug mode is enabled
func DebugPrint(debug bool, format string, args ...interface{}) {
	if debug {
		ColorDebug.Printf("DEBUG: "+format+"\n", args...)
	}
}

// IsDebugMode checks if debug mode is enabled via environment variable
func IsDebugMode() bool {
	v := os.Getenv("SPOTS_DEBUG")
	return v == "1" || v == "true"
}

// Plural returns "s" when n != 1
func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
