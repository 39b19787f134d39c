package main

import (
	"os"

	"github.com/ALT-F4-LLC/spacerestore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
