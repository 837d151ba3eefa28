package main

import (
	"os"

	"github.com/bnema/boxtoplay-keeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
