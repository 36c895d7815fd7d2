package main

import (
	"os"

	"github.com/wonny/indexrep/cmd/indexrep/commands"
)

// main is the entry point for the indexrep CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/indexrep [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
