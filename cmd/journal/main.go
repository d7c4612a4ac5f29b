package main

import (
	"os"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/cmd/journal/commands"
)

// main is the entry point for the journal CLI
// ⭐ Single CLI entry point: go run ./cmd/journal [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
