package main

import (
	"os"

	"github.com/MythologIQ/Hearthlink-CORE/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
