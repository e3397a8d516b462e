package main

import (
	"os"

	"github.com/sadopc/rollday/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
