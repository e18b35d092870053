package main

import (
	"os"

	"github.com/samaelod/spy/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
