package main

import (
	"os"

	"github.com/abhisek/skillquest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
