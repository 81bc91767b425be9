package main

import (
	"os"

	"github.com/soliform/notifeed/cmd/notifeed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
