package main

import (
	"os"

	"spots/cmd/spots/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
