// Command trinity is the autonomous coding-agent orchestrator.
package main

import (
	"os"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
