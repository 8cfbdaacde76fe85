package main

import (
	"os"

	"github.com/mcollina/githuman-sub002/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
