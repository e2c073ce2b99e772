// Command flmctl is the session/task management CLI for Flame, talking
// to flame-session-manager over its HTTP API.
package main

import (
	"context"
	"os"

	"github.com/GeauxEric/flame/cmd/flmctl/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
