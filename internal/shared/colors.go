package shared

import (
	"github.com/fatih/color"
)

// Package-level color variables
var (
	ColorInfo    = color.New(color.FgCyan)
	ColorSuccess = color.New(color.FgGreen)
	ColorWarning = color.New(color.FgYellow)
	ColorError   = color.New(color.FgRed)
	ColorDebug   = color.New(color.FgMagenta)
	ColorHeader  = color.New(color.FgBlue, color.Bold)
)

// InitializeColors disables colour output when stdout is not a terminal
func InitializeColors() {
	color.NoColor = !IsTTY()
}
